package mbd

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// Query returns the Modified Band Depth of sample relative to the ensemble:
// the fraction of (timepoint, reference pair) combinations whose band
// encloses the sample value, ties included. The result is in [0, 1].
//
// Query fails with ErrDimensionMismatch if len(sample) differs from
// NumTimepoints, ErrInvalidInput if sample contains NaN, and
// ErrDegenerateReferenceSet if the ensemble has fewer than two curves.
func (ix *Index) Query(sample []float64) (float64, error) {
	count, total, err := ix.Count(sample)
	if err != nil {
		return 0, err
	}
	return float64(count) / float64(total), nil
}

// Count returns the raw enclosure count of sample and the normaliser
// T·C(N,2) that Query divides it by.
func (ix *Index) Count(sample []float64) (count, total uint64, err error) {
	total, err = ix.check(sample)
	if err != nil {
		return 0, 0, err
	}
	return ix.countRange(sample, 0, ix.numTimepoints), total, nil
}

// QueryConcurrent is Query with the timepoint loop split into at most
// workers contiguous chunks scored on separate goroutines. Partial counts
// are integers summed in chunk order, so the result is identical to Query
// for any worker count. workers <= 1 falls back to Query.
func (ix *Index) QueryConcurrent(ctx context.Context, sample []float64, workers int) (float64, error) {
	count, total, err := ix.CountConcurrent(ctx, sample, workers)
	if err != nil {
		return 0, err
	}
	return float64(count) / float64(total), nil
}

// CountConcurrent is the concurrent form of Count.
func (ix *Index) CountConcurrent(ctx context.Context, sample []float64, workers int) (count, total uint64, err error) {
	total, err = ix.check(sample)
	if err != nil {
		return 0, 0, err
	}
	if workers > ix.numTimepoints {
		workers = ix.numTimepoints
	}
	if workers <= 1 {
		return ix.countRange(sample, 0, ix.numTimepoints), total, nil
	}

	partial := make([]uint64, workers)
	chunk := (ix.numTimepoints + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		from := w * chunk
		to := min(from+chunk, ix.numTimepoints)
		if from >= to {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			partial[w] = ix.countRange(sample, from, to)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, fmt.Errorf("mbd: concurrent query: %w", err)
	}

	for _, c := range partial {
		count += c
	}
	return count, total, nil
}

// check validates sample against the index and returns T·C(N,2).
func (ix *Index) check(sample []float64) (uint64, error) {
	if len(sample) != ix.numTimepoints {
		return 0, fmt.Errorf("mbd: sample has %d timepoints, index has %d: %w",
			len(sample), ix.numTimepoints, ErrDimensionMismatch)
	}
	if ix.numSamples < 2 {
		return 0, fmt.Errorf("mbd: index holds %d curve(s), need at least 2: %w",
			ix.numSamples, ErrDegenerateReferenceSet)
	}
	for t, v := range sample {
		if math.IsNaN(v) {
			return 0, fmt.Errorf("mbd: sample is NaN at timepoint %d: %w", t, ErrInvalidInput)
		}
	}
	total, _ := normaliser(ix.numSamples, ix.numTimepoints)
	return total, nil
}

// countRange sums the enclosure counts of timepoints [from, to).
func (ix *Index) countRange(sample []float64, from, to int) uint64 {
	partition := ix.strategy.partitionFunc(ix.numSamples)
	var count uint64
	for t := from; t < to; t++ {
		lt, eq, gt := partition(ix.block(t), sample[t])
		l, e, g := uint64(lt), uint64(eq), uint64(gt)
		// Pairs straddling the value, pairs with one member tied, and pairs
		// tied at both ends all enclose it.
		count += l*e + e*g + l*g + Choose2(e)
	}
	return count
}
