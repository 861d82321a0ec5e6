package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/banddepth/banddepth/internal/ensemble"
	"github.com/banddepth/banddepth/internal/scoring"
	"github.com/banddepth/banddepth/pkg/mbd"
)

const namespace = "banddepth"

// UnknownEnsemble labels requests for ensembles that are not loaded, so
// arbitrary client IDs cannot create new series.
const UnknownEnsemble = "unknown"

var (
	// latencyBuckets are upper bounds in seconds for request latency.
	latencyBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

	// depthBuckets are upper bounds for the depth of scored curves.
	depthBuckets = []float64{0.01, 0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.75, 1}
)

// Registry holds depthd's metrics and adapts scored batches onto them.
//
// Registry is safe for concurrent use.
type Registry struct {
	store *ensemble.Store
	reg   *prometheus.Registry

	queries   *prometheus.CounterVec
	curves    *prometheus.CounterVec
	cacheHits *prometheus.CounterVec
	latency   prometheus.Histogram
	depth     prometheus.Histogram
}

// NewRegistry returns a Registry reporting ensemble gauges from st.
func NewRegistry(st *ensemble.Store) *Registry {
	r := &Registry{
		store: st,
		reg:   prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Depth requests by ensemble and outcome.",
		}, []string{"ensemble", "outcome"}),
		curves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "curves_scored_total",
			Help:      "Curves scored by ensemble.",
		}, []string{"ensemble"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Curves served from the depth cache by ensemble.",
		}, []string{"ensemble"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Depth request latency.",
			Buckets:   latencyBuckets,
		}),
		depth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "curve_depth",
			Help:      "Distribution of scored curve depths.",
			Buckets:   depthBuckets,
		}),
	}
	r.reg.MustRegister(r.queries, r.curves, r.cacheHits, r.latency, r.depth, newEnsembleCollector(st))
	return r
}

// AddGauge registers a gauge whose value is read from fn at scrape time.
// name is prefixed with the banddepth_ namespace.
func (r *Registry) AddGauge(name, help string, fn func() float64) {
	r.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// Observe implements scoring.Sink.
func (r *Registry) Observe(b *scoring.Batch) {
	outcome := Outcome(b.Err)
	r.queries.WithLabelValues(r.ensembleLabel(b.EnsembleID, outcome), outcome).Inc()
	r.latency.Observe(b.Elapsed.Seconds())
	if b.Err != nil {
		return
	}
	r.curves.WithLabelValues(b.EnsembleID).Add(float64(len(b.Results)))
	r.cacheHits.WithLabelValues(b.EnsembleID).Add(float64(b.CacheHits()))
	for _, res := range b.Results {
		r.depth.Observe(res.Depth)
	}
}

// ensembleLabel returns id when it names a live ensemble and
// UnknownEnsemble otherwise.
func (r *Registry) ensembleLabel(id, outcome string) string {
	if outcome == "not_found" {
		return UnknownEnsemble
	}
	if _, err := r.store.Get(id); err != nil {
		return UnknownEnsemble
	}
	return id
}

// Outcome classifies a Score error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ensemble.ErrNotFound):
		return "not_found"
	case errors.Is(err, mbd.ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, mbd.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, mbd.ErrDegenerateReferenceSet):
		return "degenerate"
	case errors.Is(err, scoring.ErrEmptyRequest),
		errors.Is(err, scoring.ErrTooManyCurves),
		errors.Is(err, scoring.ErrLabelMismatch):
		return "bad_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

// Gather returns every family that has samples, sorted by name.
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	return r.reg.Gather()
}

// ServeHTTP writes all families in the format negotiated from the Accept header.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{
		ErrorLog:      errorLog{},
		ErrorHandling: promhttp.ContinueOnError,
	}).ServeHTTP(w, req)
}

// errorLog routes promhttp errors to slog.
type errorLog struct{}

func (errorLog) Println(v ...interface{}) {
	slog.Error("metrics: scrape failed", "err", fmt.Sprint(v...))
}

// ensembleCollector reads the live ensembles from the store on every scrape.
type ensembleCollector struct {
	store      *ensemble.Store
	count      *prometheus.Desc
	samples    *prometheus.Desc
	timepoints *prometheus.Desc
}

func newEnsembleCollector(st *ensemble.Store) *ensembleCollector {
	labels := []string{"ensemble", "origin"}
	return &ensembleCollector{
		store: st,
		count: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "ensembles"),
			"Live reference ensembles.", nil, nil),
		samples: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "ensemble_samples"),
			"Curves in each ensemble.", labels, nil),
		timepoints: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "ensemble_timepoints"),
			"Timepoints in each ensemble.", labels, nil),
	}
}

func (c *ensembleCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.count
	ch <- c.samples
	ch <- c.timepoints
}

func (c *ensembleCollector) Collect(ch chan<- prometheus.Metric) {
	entries := c.store.List()
	ch <- prometheus.MustNewConstMetric(c.count, prometheus.GaugeValue, float64(len(entries)))
	for _, e := range entries {
		origin := string(e.Origin)
		ch <- prometheus.MustNewConstMetric(c.samples, prometheus.GaugeValue,
			float64(e.Index.NumSamples()), e.ID, origin)
		ch <- prometheus.MustNewConstMetric(c.timepoints, prometheus.GaugeValue,
			float64(e.Index.NumTimepoints()), e.ID, origin)
	}
}
