// Package api implements the depthd HTTP REST API.
//
// New(deps) returns an http.Handler that serves:
//
//	GET    /api/v1/health                  service status and counts
//	GET    /api/v1/ensembles               all live ensembles
//	GET    /api/v1/ensembles/{id}          one ensemble with diagnostics; ?envelope=1 adds the pointwise min/max
//	PUT    /api/v1/ensembles/{id}          upload or replace an ensemble (curves or row-major matrix)
//	DELETE /api/v1/ensembles/{id}          remove an uploaded ensemble
//	POST   /api/v1/ensembles/{id}/depth    depth of each posted curve
//	GET    /api/v1/alerts                  firing and recently resolved alerts
//
// All endpoints respond with Content-Type: application/json and return 405
// for unsupported methods. Domain errors map to 400 (bad input), 404
// (unknown ensemble), 409 (pinned ensemble) and 422 (fewer than two curves).
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
