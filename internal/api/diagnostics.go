package api

import (
	"fmt"
	"math"
	"sort"

	"github.com/banddepth/banddepth/pkg/mbd"
)

// DiagnosticHint is one human-readable observation about an ensemble.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label.
	Title string `json:"title"`
	// Detail is the full explanation.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

const (
	// fewCurves is the ensemble size below which bands are coarse.
	fewCurves = 5
	// heavyTieFraction is the share of tied neighbours that triggers a warning.
	heavyTieFraction = 0.5
)

var levelRank = map[string]int{"critical": 0, "warning": 1, "info": 2}

// computeDiagnostics inspects ix and returns hints ordered critical first,
// then warnings, then info.
func computeDiagnostics(ix *mbd.Index) []DiagnosticHint {
	var hints []DiagnosticHint
	n, t := ix.NumSamples(), ix.NumTimepoints()

	if n < 2 {
		hints = append(hints, DiagnosticHint{
			Key:   "degenerate",
			Level: "critical",
			Title: "Fewer than two curves",
			Detail: fmt.Sprintf("The ensemble holds %d curve. A band needs two curves, "+
				"so every depth query against it fails. Upload at least one more curve.", n),
		})
		return hints
	}

	if n < fewCurves {
		v := float64(mbd.Choose2(uint64(n)))
		hints = append(hints, DiagnosticHint{
			Key:   "few_curves",
			Level: "info",
			Title: fmt.Sprintf("Only %d curves", n),
			Detail: fmt.Sprintf("With %d curves there are only %.0f bands per timepoint, "+
				"so depths take few distinct values and many query curves will tie.", n, v),
			Value: &v,
		})
	}

	var ties, flat int
	inf := false
	for i := 0; i < t; i++ {
		b := ix.Block(i)
		if b[0] == b[len(b)-1] {
			flat++
		}
		if math.IsInf(b[0], 0) || math.IsInf(b[len(b)-1], 0) {
			inf = true
		}
		for j := 1; j < len(b); j++ {
			if b[j] == b[j-1] {
				ties++
			}
		}
	}

	if flat > 0 {
		v := float64(flat)
		hints = append(hints, DiagnosticHint{
			Key:   "flat_timepoints",
			Level: "warning",
			Title: fmt.Sprintf("%d flat timepoints", flat),
			Detail: fmt.Sprintf("At %d of %d timepoints every curve has the same value. "+
				"A query curve gets full credit there only if it matches that value exactly "+
				"and none otherwise.", flat, t),
			Value: &v,
		})
	}

	if frac := float64(ties) / float64(t*(n-1)); frac >= heavyTieFraction {
		v := frac
		hints = append(hints, DiagnosticHint{
			Key:   "heavy_ties",
			Level: "warning",
			Title: fmt.Sprintf("%.0f%% tied values", frac*100),
			Detail: "Most neighbouring values in the sorted timepoints are equal. Ties count as " +
				"enclosed, so depths run high for query values that hit the tied levels.",
			Value: &v,
		})
	}

	if inf {
		hints = append(hints, DiagnosticHint{
			Key:   "infinite_values",
			Level: "info",
			Title: "Contains infinities",
			Detail: "Some curves hold +Inf or -Inf. They are ordered like any other value, " +
				"but the envelope cannot be returned as JSON.",
		})
	}

	sort.SliceStable(hints, func(i, j int) bool { return levelRank[hints[i].Level] < levelRank[hints[j].Level] })
	return hints
}

// hasInf reports whether any value in vs is infinite.
func hasInf(vs ...[]float64) bool {
	for _, v := range vs {
		for _, x := range v {
			if math.IsInf(x, 0) {
				return true
			}
		}
	}
	return false
}
