package scoring

import "time"

// Result is the depth of one curve of a request.
type Result struct {
	// CurveID is the caller-supplied label, or the decimal position when
	// the request carried no labels.
	CurveID string
	// Index is the position of the curve in the request.
	Index int
	Depth float64
	// Count is the raw enclosure count and Total the normaliser T·C(N,2),
	// so Depth == Count/Total.
	Count  uint64
	Total  uint64
	Cached bool
}

// Batch is the outcome of one Score call, handed to every Sink.
type Batch struct {
	EnsembleID string
	Version    uint64
	Samples    int
	Timepoints int
	Results    []Result
	// Err is set when the request failed; Results is then empty.
	Err     error
	Elapsed time.Duration
	At      time.Time
}

// Deepest returns the position in Results of the curve with the highest
// depth, the first one on ties, or -1 for an empty batch.
func (b *Batch) Deepest() int {
	best := -1
	for i, r := range b.Results {
		if best < 0 || r.Depth > b.Results[best].Depth {
			best = i
		}
	}
	return best
}

// CacheHits returns how many results were served from the cache.
func (b *Batch) CacheHits() int {
	n := 0
	for _, r := range b.Results {
		if r.Cached {
			n++
		}
	}
	return n
}

// Sink observes scored batches. Observe is called synchronously after each
// Score call, successful or not, and must not block.
type Sink interface {
	Observe(b *Batch)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(b *Batch)

// Observe calls f(b).
func (f SinkFunc) Observe(b *Batch) { f(b) }
