package mbd

import "math/bits"

// MaxSamples is the largest reference ensemble an Index accepts.
// Choose2(MaxSamples) is just below 2^63, which leaves the per-timepoint
// enclosure count (never larger than C(N,2)) comfortably inside uint64.
const MaxSamples = 1 << 32

// Choose2 returns the number of unordered pairs that can be drawn from n
// items, n(n-1)/2. It returns 0 for n < 2.
//
// The even factor is halved before multiplying, so the result is exact for
// every n up to MaxSamples.
func Choose2(n uint64) uint64 {
	if n < 2 {
		return 0
	}
	if n%2 == 0 {
		return (n / 2) * (n - 1)
	}
	return n * ((n - 1) / 2)
}

// normaliser returns T·C(N,2) and false if the product overflows uint64.
func normaliser(samples, timepoints int) (uint64, bool) {
	hi, lo := bits.Mul64(uint64(timepoints), Choose2(uint64(samples)))
	return lo, hi == 0
}
