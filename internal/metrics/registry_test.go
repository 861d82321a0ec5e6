package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/banddepth/banddepth/internal/ensemble"
	"github.com/banddepth/banddepth/internal/scoring"
	"github.com/banddepth/banddepth/pkg/mbd"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	st := ensemble.NewStore(time.Hour)
	ix, err := mbd.FromCurves([][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}})
	if err != nil {
		t.Fatalf("FromCurves: %v", err)
	}
	st.Put("ref", ix, ensemble.OriginFile, true)
	return NewRegistry(st)
}

// scrape serves the registry and parses the text exposition back.
func scrape(t *testing.T, r *Registry) map[string]*dto.MetricFamily {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q, want text/plain", ct)
	}
	var parser expfmt.TextParser
	fams, err := parser.TextToMetricFamilies(rr.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}
	return fams
}

// value returns the counter or gauge value of the sample whose labels
// match want.
func value(t *testing.T, fams map[string]*dto.MetricFamily, name string, want map[string]string) float64 {
	t.Helper()
	mf, ok := fams[name]
	if !ok {
		t.Fatalf("family %s missing", name)
	}
next:
	for _, m := range mf.GetMetric() {
		got := map[string]string{}
		for _, lp := range m.GetLabel() {
			got[lp.GetName()] = lp.GetValue()
		}
		for k, v := range want {
			if got[k] != v {
				continue next
			}
		}
		if m.Counter != nil {
			return m.GetCounter().GetValue()
		}
		return m.GetGauge().GetValue()
	}
	t.Fatalf("%s%v: no such sample", name, want)
	return 0
}

func TestRegistry_ObserveAndScrape(t *testing.T) {
	r := newRegistry(t)
	r.Observe(&scoring.Batch{
		EnsembleID: "ref",
		Elapsed:    2 * time.Millisecond,
		Results: []scoring.Result{
			{Depth: 0.02},
			{Depth: 0.6, Cached: true},
			{Depth: 1},
		},
	})
	r.Observe(&scoring.Batch{EnsembleID: "ref", Err: fmt.Errorf("wrap: %w", mbd.ErrDimensionMismatch)})
	r.Observe(&scoring.Batch{EnsembleID: "gone", Err: ensemble.ErrNotFound})
	r.AddGauge("ws_clients", "Connected clients.", func() float64 { return 4 })

	fams := scrape(t, r)

	checks := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"banddepth_queries_total", map[string]string{"ensemble": "ref", "outcome": "ok"}, 1},
		{"banddepth_queries_total", map[string]string{"ensemble": "ref", "outcome": "dimension_mismatch"}, 1},
		{"banddepth_queries_total", map[string]string{"ensemble": UnknownEnsemble, "outcome": "not_found"}, 1},
		{"banddepth_curves_scored_total", map[string]string{"ensemble": "ref"}, 3},
		{"banddepth_cache_hits_total", map[string]string{"ensemble": "ref"}, 1},
		{"banddepth_ensembles", nil, 1},
		{"banddepth_ensemble_samples", map[string]string{"ensemble": "ref", "origin": "file"}, 3},
		{"banddepth_ensemble_timepoints", map[string]string{"ensemble": "ref"}, 3},
		{"banddepth_ws_clients", nil, 4},
	}
	for _, c := range checks {
		if got := value(t, fams, c.name, c.labels); got != c.want {
			t.Errorf("%s%v: got %v, want %v", c.name, c.labels, got, c.want)
		}
	}

	h := fams["banddepth_curve_depth"].GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 3 {
		t.Errorf("curve_depth count: got %d, want 3", h.GetSampleCount())
	}
	// Buckets: 0.01, 0.05, ... 0.5, 0.75, 1.
	wantCum := map[float64]uint64{0.01: 0, 0.05: 1, 0.5: 1, 0.75: 2, 1: 3}
	for _, b := range h.GetBucket() {
		if want, ok := wantCum[b.GetUpperBound()]; ok && b.GetCumulativeCount() != want {
			t.Errorf("curve_depth le=%v: got %d, want %d", b.GetUpperBound(), b.GetCumulativeCount(), want)
		}
	}

	lat := fams["banddepth_query_duration_seconds"].GetMetric()[0].GetHistogram()
	if lat.GetSampleCount() != 3 {
		t.Errorf("query_duration count: got %d, want 3", lat.GetSampleCount())
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{mbd.ErrInvalidInput, "invalid_input"},
		{mbd.ErrDegenerateReferenceSet, "degenerate"},
		{scoring.ErrTooManyCurves, "bad_request"},
		{context.Canceled, "canceled"},
		{errors.New("disk on fire"), "internal"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v): got %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestGather_SortedAndStable(t *testing.T) {
	r := newRegistry(t)
	fams, err := r.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for i := 1; i < len(fams); i++ {
		if fams[i-1].GetName() >= fams[i].GetName() {
			t.Errorf("families not sorted: %s before %s", fams[i-1].GetName(), fams[i].GetName())
		}
	}
}

func TestGather_SkipsEmptyFamilies(t *testing.T) {
	r := NewRegistry(ensemble.NewStore(time.Hour))
	gathered, err := r.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range gathered {
		if len(mf.GetMetric()) == 0 {
			t.Errorf("family %s has no samples", mf.GetName())
		}
	}
	// An idle registry must still produce a parseable scrape.
	fams := scrape(t, r)
	if _, ok := fams["banddepth_queries_total"]; ok {
		t.Error("queries_total exported before any query")
	}
	if got := value(t, fams, "banddepth_ensembles", nil); got != 0 {
		t.Errorf("ensembles: got %v, want 0", got)
	}
}

func TestObserve_UnknownEnsemblesShareOneSeries(t *testing.T) {
	r := newRegistry(t)
	for i := 0; i < 50; i++ {
		r.Observe(&scoring.Batch{EnsembleID: fmt.Sprintf("random-%d", i), Err: ensemble.ErrNotFound})
	}
	// Rejected before lookup, but still not a live ensemble.
	r.Observe(&scoring.Batch{EnsembleID: "never-loaded", Err: scoring.ErrEmptyRequest})

	fams := scrape(t, r)
	queries := fams["banddepth_queries_total"].GetMetric()
	if len(queries) != 2 {
		t.Fatalf("queries_total series: got %d, want 2", len(queries))
	}
	if got := value(t, fams, "banddepth_queries_total", map[string]string{"ensemble": UnknownEnsemble, "outcome": "not_found"}); got != 50 {
		t.Errorf("not_found: got %v, want 50", got)
	}
	if got := value(t, fams, "banddepth_queries_total", map[string]string{"ensemble": UnknownEnsemble, "outcome": "bad_request"}); got != 1 {
		t.Errorf("bad_request: got %v, want 1", got)
	}
}

func TestAddGauge_ReadAtScrapeTime(t *testing.T) {
	r := newRegistry(t)
	var n float64
	r.AddGauge("ws_clients", "Connected clients.", func() float64 { return n })
	n = 7
	if got := value(t, scrape(t, r), "banddepth_ws_clients", nil); got != 7 {
		t.Errorf("ws_clients: got %v, want 7", got)
	}
}
