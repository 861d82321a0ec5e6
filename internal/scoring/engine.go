package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banddepth/banddepth/internal/config"
	"github.com/banddepth/banddepth/internal/ensemble"
)

var (
	// ErrEmptyRequest is returned for a request without curves.
	ErrEmptyRequest = errors.New("request holds no curves")

	// ErrTooManyCurves is returned when a request exceeds Options.MaxCurves.
	ErrTooManyCurves = errors.New("too many curves in request")

	// ErrLabelMismatch is returned when a request carries labels but not
	// exactly one per curve.
	ErrLabelMismatch = errors.New("curve labels do not match curves")
)

// Request asks for the depth of each curve relative to one ensemble.
type Request struct {
	EnsembleID string
	Curves     [][]float64
	// Labels optionally names the curves. When set it must have one entry
	// per curve.
	Labels []string
}

// Options tunes the engine. See config.QueryConfig for field meanings.
type Options struct {
	Workers              int
	ConcurrentTimepoints int
	CacheTTL             time.Duration
	MaxCurves            int
}

// OptionsFrom converts the query section of the config.
func OptionsFrom(q config.QueryConfig) Options {
	return Options{
		Workers:              q.Workers,
		ConcurrentTimepoints: q.ConcurrentTimepoints,
		CacheTTL:             q.CacheTTL,
		MaxCurves:            q.MaxCurves,
	}
}

// Engine scores requests against the ensembles held in a Store.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	store *ensemble.Store

	mu    sync.RWMutex
	opts  Options
	cache *depthCache
	sinks []Sink

	now func() time.Time // injectable for deterministic tests
}

// NewEngine returns an Engine reading from st. Sinks are notified of every
// batch in the order given.
func NewEngine(st *ensemble.Store, opts Options, sinks ...Sink) *Engine {
	return &Engine{
		store: st,
		opts:  opts,
		cache: newDepthCache(opts.CacheTTL),
		sinks: sinks,
		now:   time.Now,
	}
}

// AddSink registers s for all subsequent batches.
func (e *Engine) AddSink(s Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, s)
}

// SetOptions applies new options, e.g. after a config reload. The cache is
// rebuilt empty only when its TTL changes.
func (e *Engine) SetOptions(opts Options) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if opts.CacheTTL != e.opts.CacheTTL {
		e.cache = newDepthCache(opts.CacheTTL)
	}
	e.opts = opts
}

// CacheLen returns the number of cached depths, including expired ones not
// yet swept.
func (e *Engine) CacheLen() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cache.len()
}

// Store returns the ensemble store the engine reads from.
func (e *Engine) Store() *ensemble.Store { return e.store }

// Score computes the depth of every curve in req. Results are in request
// order. The first failing curve fails the whole request; its error wraps
// the mbd sentinel (ErrDimensionMismatch, ErrInvalidInput or
// ErrDegenerateReferenceSet). Every call, failed or not, is reported to the
// registered sinks.
func (e *Engine) Score(ctx context.Context, req Request) (*Batch, error) {
	e.mu.RLock()
	opts, cache := e.opts, e.cache
	sinks := append([]Sink(nil), e.sinks...)
	e.mu.RUnlock()

	start := e.now()
	b := &Batch{EnsembleID: req.EnsembleID, At: start}
	results, err := e.score(ctx, req, opts, cache, b)
	b.Elapsed = e.now().Sub(start)
	if err != nil {
		b.Err = err
	} else {
		b.Results = results
	}

	for _, s := range sinks {
		s.Observe(b)
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("scoring: batch scored",
		"ensemble", b.EnsembleID,
		"version", b.Version,
		"curves", len(b.Results),
		"cache_hits", b.CacheHits(),
		"elapsed", b.Elapsed,
	)
	return b, nil
}

func (e *Engine) score(ctx context.Context, req Request, opts Options, cache *depthCache, b *Batch) ([]Result, error) {
	if len(req.Curves) == 0 {
		return nil, fmt.Errorf("scoring: %w", ErrEmptyRequest)
	}
	if opts.MaxCurves > 0 && len(req.Curves) > opts.MaxCurves {
		return nil, fmt.Errorf("scoring: %d curves, limit %d: %w", len(req.Curves), opts.MaxCurves, ErrTooManyCurves)
	}
	if req.Labels != nil && len(req.Labels) != len(req.Curves) {
		return nil, fmt.Errorf("scoring: %d labels for %d curves: %w", len(req.Labels), len(req.Curves), ErrLabelMismatch)
	}

	entry, err := e.store.Get(req.EnsembleID)
	if err != nil {
		return nil, fmt.Errorf("scoring: ensemble %q: %w", req.EnsembleID, err)
	}
	ix := entry.Index
	b.Version = entry.Version
	b.Samples = ix.NumSamples()
	b.Timepoints = ix.NumTimepoints()

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	split := opts.ConcurrentTimepoints > 0 && workers > 1 && ix.NumTimepoints() >= opts.ConcurrentTimepoints

	results := make([]Result, len(req.Curves))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, curve := range req.Curves {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := Result{Index: i, CurveID: strconv.Itoa(i)}
			if req.Labels != nil {
				r.CurveID = req.Labels[i]
			}

			key := cacheKey(entry.ID, entry.Version, curve)
			if c, ok := cache.get(key); ok {
				r.Count, r.Total, r.Cached = c.count, c.total, true
			} else {
				var err error
				if split {
					r.Count, r.Total, err = ix.CountConcurrent(gctx, curve, workers)
				} else {
					r.Count, r.Total, err = ix.Count(curve)
				}
				if err != nil {
					return fmt.Errorf("scoring: curve %s: %w", r.CurveID, err)
				}
				cache.set(key, cachedCount{count: r.Count, total: r.Total})
			}
			r.Depth = float64(r.Count) / float64(r.Total)
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
