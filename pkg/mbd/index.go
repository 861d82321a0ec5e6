package mbd

import (
	"fmt"
	"math"
	"slices"
)

// Index is the sorted-per-timepoint representation of a reference ensemble.
//
// sorted holds numTimepoints contiguous blocks of numSamples values; block t
// is the ascending sequence of every reference curve's value at timepoint t.
// An Index is never mutated after construction.
type Index struct {
	numSamples    int
	numTimepoints int
	sorted        []float64
	strategy      Strategy
}

// FromMatrix builds an Index from a row-major matrix of rows curves, each
// with timepoints values: data[i*timepoints+t] is curve i at timepoint t.
func FromMatrix(rows, timepoints int, data []float64, opts ...Option) (*Index, error) {
	if err := checkDims(rows, timepoints); err != nil {
		return nil, err
	}
	if len(data) != rows*timepoints {
		return nil, fmt.Errorf("mbd: flat buffer has %d values, want %d×%d=%d: %w",
			len(data), rows, timepoints, rows*timepoints, ErrDimensionMismatch)
	}
	return build(rows, timepoints, func(i, t int) float64 {
		return data[i*timepoints+t]
	}, opts)
}

// FromCurves builds an Index from a list of curves. Every curve must have
// the same, non-zero length.
func FromCurves(curves [][]float64, opts ...Option) (*Index, error) {
	if len(curves) == 0 {
		return nil, fmt.Errorf("mbd: empty ensemble: %w", ErrInvalidInput)
	}
	timepoints := len(curves[0])
	for i, c := range curves {
		if len(c) != timepoints {
			return nil, fmt.Errorf("mbd: curve %d has %d timepoints, curve 0 has %d: %w",
				i, len(c), timepoints, ErrInvalidInput)
		}
	}
	if err := checkDims(len(curves), timepoints); err != nil {
		return nil, err
	}
	return build(len(curves), timepoints, func(i, t int) float64 {
		return curves[i][t]
	}, opts)
}

func checkDims(rows, timepoints int) error {
	switch {
	case rows <= 0:
		return fmt.Errorf("mbd: ensemble has %d curves: %w", rows, ErrInvalidInput)
	case timepoints <= 0:
		return fmt.Errorf("mbd: curves have %d timepoints: %w", timepoints, ErrInvalidInput)
	case uint64(rows) > MaxSamples:
		return fmt.Errorf("mbd: ensemble has %d curves, limit is %d: %w", rows, uint64(MaxSamples), ErrInvalidInput)
	case timepoints > math.MaxInt/rows:
		return fmt.Errorf("mbd: %d curves × %d timepoints does not fit in memory: %w", rows, timepoints, ErrInvalidInput)
	}
	if _, ok := normaliser(rows, timepoints); !ok {
		return fmt.Errorf("mbd: %d curves × %d timepoints overflows the pair count: %w",
			rows, timepoints, ErrInvalidInput)
	}
	return nil
}

// build transposes the ensemble into column-major blocks and sorts each one.
// at(i, t) returns curve i at timepoint t.
func build(rows, timepoints int, at func(i, t int) float64, opts []Option) (*Index, error) {
	ix := &Index{
		numSamples:    rows,
		numTimepoints: timepoints,
		sorted:        make([]float64, 0, rows*timepoints),
	}
	for _, opt := range opts {
		opt(ix)
	}

	for t := 0; t < timepoints; t++ {
		start := len(ix.sorted)
		for i := 0; i < rows; i++ {
			v := at(i, t)
			if math.IsNaN(v) {
				return nil, fmt.Errorf("mbd: curve %d is NaN at timepoint %d: %w", i, t, ErrInvalidInput)
			}
			ix.sorted = append(ix.sorted, v)
		}
		block := ix.sorted[start:]
		slices.Sort(block)
		if !slices.IsSorted(block) {
			return nil, fmt.Errorf("mbd: block %d is not ascending after sort: %w", t, ErrInvalidInput)
		}
	}
	return ix, nil
}

// NumSamples returns N, the number of reference curves.
func (ix *Index) NumSamples() int { return ix.numSamples }

// NumTimepoints returns T, the number of values per curve.
func (ix *Index) NumTimepoints() int { return ix.numTimepoints }

// Strategy returns the rank-counting strategy used by queries.
func (ix *Index) Strategy() Strategy { return ix.strategy }

// Block returns a copy of the sorted reference values at timepoint t.
// It panics if t is out of range.
func (ix *Index) Block(t int) []float64 {
	return slices.Clone(ix.block(t))
}

func (ix *Index) block(t int) []float64 {
	start := t * ix.numSamples
	return ix.sorted[start : start+ix.numSamples : start+ix.numSamples]
}

// Envelope returns the pointwise minimum and maximum of the ensemble.
func (ix *Index) Envelope() (lower, upper []float64) {
	lower = make([]float64, ix.numTimepoints)
	upper = make([]float64, ix.numTimepoints)
	for t := range lower {
		b := ix.block(t)
		lower[t] = b[0]
		upper[t] = b[len(b)-1]
	}
	return lower, upper
}

// Equal reports whether ix and other hold the same dimensions and
// bit-identical sorted values. The query strategy is not compared.
func (ix *Index) Equal(other *Index) bool {
	if ix == nil || other == nil {
		return ix == other
	}
	if ix.numSamples != other.numSamples || ix.numTimepoints != other.numTimepoints {
		return false
	}
	return slices.EqualFunc(ix.sorted, other.sorted, func(a, b float64) bool {
		return math.Float64bits(a) == math.Float64bits(b)
	})
}
