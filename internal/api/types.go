package api

import "github.com/banddepth/banddepth/pkg/depthv1"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status        string `json:"status"`
	EnsembleCount int    `json:"ensemble_count"`
	PinnedCount   int    `json:"pinned_count"`
	FiringAlerts  int    `json:"firing_alerts"`
	GeneratedAt   string `json:"generated_at"`
}

// EnsembleResponse is the payload for GET /api/v1/ensembles/{id} and for
// each element of GET /api/v1/ensembles.
type EnsembleResponse struct {
	depthv1.EnsembleInfo
	Diagnostics []DiagnosticHint `json:"diagnostics,omitempty"`
	// Lower and Upper are the pointwise minimum and maximum over the
	// ensemble, present only when requested.
	Lower []float64 `json:"lower,omitempty"`
	Upper []float64 `json:"upper,omitempty"`
}

// PutEnsembleRequest is the body of PUT /api/v1/ensembles/{id}. Either
// Curves (one curve per row) or Rows, Timepoints and Data (row-major) must
// be set.
type PutEnsembleRequest struct {
	Curves     [][]float64 `json:"curves,omitempty"`
	Rows       int         `json:"rows,omitempty"`
	Timepoints int         `json:"timepoints,omitempty"`
	Data       []float64   `json:"data,omitempty"`
	Strategy   string      `json:"strategy,omitempty"`
}

// DepthRequest is the body of POST /api/v1/ensembles/{id}/depth.
type DepthRequest struct {
	Curves [][]float64 `json:"curves"`
	Labels []string    `json:"labels,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
