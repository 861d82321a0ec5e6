// Package receiver implements the banddepth.v1.DepthService gRPC server.
//
// Query runs the request through the scoring engine, PutEnsemble goes through
// the ensemble manager and ListEnsembles reads the store. Domain errors are
// mapped to gRPC status codes by Code:
//
//	ensemble.ErrNotFound                         -> NotFound
//	mbd.ErrDimensionMismatch, mbd.ErrInvalidInput,
//	scoring request errors, ensemble.ErrInvalidID -> InvalidArgument
//	mbd.ErrDegenerateReferenceSet                -> FailedPrecondition
//	ensemble.ErrPinned                           -> PermissionDenied
//	context cancellation / deadline              -> Canceled / DeadlineExceeded
//
// Authentication is enforced by the server interceptor before any handler runs.
package receiver
