package depthv1

import "time"

// QueryRequest asks for the depth of each curve relative to one ensemble.
type QueryRequest struct {
	EnsembleID string      `json:"ensemble_id"`
	Curves     [][]float64 `json:"curves"`
	// Labels optionally names the curves, one per curve.
	Labels []string `json:"labels,omitempty"`
}

// CurveDepth is the depth of one query curve.
type CurveDepth struct {
	CurveID string  `json:"curve_id"`
	Depth   float64 `json:"depth"`
	Count   uint64  `json:"count"`
	Total   uint64  `json:"total"`
	Cached  bool    `json:"cached,omitempty"`
}

// QueryResponse carries results in request order.
type QueryResponse struct {
	EnsembleID string       `json:"ensemble_id"`
	Version    uint64       `json:"version"`
	Samples    int          `json:"samples"`
	Timepoints int          `json:"timepoints"`
	Results    []CurveDepth `json:"results"`
	// Deepest is the CurveID with the highest depth.
	Deepest   string  `json:"deepest,omitempty"`
	ElapsedMs float64 `json:"elapsed_ms"`
}

// EnsembleInfo summarises one reference ensemble.
type EnsembleInfo struct {
	ID         string    `json:"id"`
	Origin     string    `json:"origin"`
	Pinned     bool      `json:"pinned"`
	Samples    int       `json:"samples"`
	Timepoints int       `json:"timepoints"`
	Strategy   string    `json:"strategy"`
	Version    uint64    `json:"version"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ListEnsemblesRequest struct{}

type ListEnsemblesResponse struct {
	Ensembles []EnsembleInfo `json:"ensembles"`
}

// PutEnsembleRequest uploads or replaces an ensemble.
type PutEnsembleRequest struct {
	EnsembleID string      `json:"ensemble_id"`
	Curves     [][]float64 `json:"curves"`
	// Strategy is auto | scan | search. Empty selects the server default.
	Strategy string `json:"strategy,omitempty"`
}

type PutEnsembleResponse struct {
	Ensemble EnsembleInfo `json:"ensemble"`
}
