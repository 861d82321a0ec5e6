package mbd

import (
	"fmt"
	"math"
)

// ScanThreshold is the block size up to which StrategyAuto uses the linear
// scan. Above it the binary search wins on continuous data.
const ScanThreshold = 32

// Strategy selects the rank-counting algorithm used by queries.
type Strategy int

const (
	// StrategyAuto picks StrategyScan for blocks of at most ScanThreshold
	// elements and StrategySearch otherwise.
	StrategyAuto Strategy = iota

	// StrategyScan walks the block linearly. O(N) per timepoint.
	StrategyScan

	// StrategySearch binary-searches for the value and expands over the
	// equal run. O(log N) per timepoint plus the length of the run.
	StrategySearch
)

// String returns the configuration name of s.
func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyScan:
		return "scan"
	case StrategySearch:
		return "search"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy maps a configuration name to a Strategy.
// The empty string selects StrategyAuto.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", "auto":
		return StrategyAuto, nil
	case "scan":
		return StrategyScan, nil
	case "search":
		return StrategySearch, nil
	default:
		return StrategyAuto, fmt.Errorf("mbd: unknown strategy %q: want auto|scan|search", name)
	}
}

// partitionFunc returns the rank-counting function for a block of n values.
func (s Strategy) partitionFunc(n int) func([]float64, float64) (int, int, int) {
	switch s {
	case StrategyScan:
		return PartitionScan
	case StrategySearch:
		return PartitionSearch
	default:
		if n <= ScanThreshold {
			return PartitionScan
		}
		return PartitionSearch
	}
}

// Partition counts the elements of the ascending slice sorted that are
// strictly less than, exactly equal to, and strictly greater than x.
// It uses the StrategyAuto choice for len(sorted).
func Partition(sorted []float64, x float64) (lt, eq, gt int) {
	return StrategyAuto.partitionFunc(len(sorted))(sorted, x)
}

// PartitionScan is the linear variant of Partition. lt is the first index
// holding a value >= x, lt+eq the first index after it holding a value > x.
func PartitionScan(sorted []float64, x float64) (lt, eq, gt int) {
	n := len(sorted)
	for lt < n && sorted[lt] < x {
		lt++
	}
	i := lt
	for i < n && sorted[i] <= x {
		i++
	}
	eq = i - lt
	return lt, eq, n - i
}

// PartitionSearch is the binary-search variant of Partition. It stops at the
// first probe equal to x and walks outwards to the ends of the equal run; if
// x is absent the insertion point splits the block and eq is 0.
//
// The walk is linear in the run length, which only matters when a large share
// of the block is tied with x.
func PartitionSearch(sorted []float64, x float64) (lt, eq, gt int) {
	n := len(sorted)
	if math.IsNaN(x) {
		// NaN is unordered: nothing is below, equal or above-by-comparison,
		// and the scan reports the whole block as greater.
		return 0, 0, n
	}
	lo, hi := 0, n
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		switch v := sorted[mid]; {
		case v < x:
			lo = mid + 1
		case v > x:
			hi = mid
		default:
			first, last := mid, mid+1
			for first > 0 && sorted[first-1] == x {
				first--
			}
			for last < n && sorted[last] == x {
				last++
			}
			return first, last - first, n - last
		}
	}
	return lo, 0, n - lo
}
