package receiver

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/banddepth/banddepth/internal/ensemble"
	"github.com/banddepth/banddepth/internal/scoring"
	"github.com/banddepth/banddepth/pkg/depthv1"
	"github.com/banddepth/banddepth/pkg/mbd"
)

// Server implements depthv1.DepthServiceServer.
type Server struct {
	depthv1.UnimplementedDepthServiceServer
	engine  *scoring.Engine
	manager *ensemble.Manager
}

// New creates a Server scoring with engine and applying uploads through m.
func New(engine *scoring.Engine, m *ensemble.Manager) *Server {
	return &Server{engine: engine, manager: m}
}

// Query scores every curve of the request against the named ensemble.
func (s *Server) Query(ctx context.Context, req *depthv1.QueryRequest) (*depthv1.QueryResponse, error) {
	if req.EnsembleID == "" {
		return nil, status.Error(codes.InvalidArgument, "ensemble_id is required")
	}
	b, err := s.engine.Score(ctx, scoring.RequestFrom(req))
	if err != nil {
		return nil, statusError(err)
	}
	slog.Debug("receiver: query served",
		"ensemble", req.EnsembleID,
		"curves", len(b.Results),
	)
	return b.Response(), nil
}

// ListEnsembles returns every live ensemble sorted by ID.
func (s *Server) ListEnsembles(ctx context.Context, _ *depthv1.ListEnsemblesRequest) (*depthv1.ListEnsemblesResponse, error) {
	entries := s.engine.Store().List()
	out := &depthv1.ListEnsemblesResponse{Ensembles: make([]depthv1.EnsembleInfo, len(entries))}
	for i, e := range entries {
		out.Ensembles[i] = e.Info()
	}
	return out, nil
}

// PutEnsemble uploads or replaces an ensemble.
func (s *Server) PutEnsemble(ctx context.Context, req *depthv1.PutEnsembleRequest) (*depthv1.PutEnsembleResponse, error) {
	e, err := s.manager.Put(ctx, req.EnsembleID, req.Curves, req.Strategy)
	if err != nil {
		return nil, statusError(err)
	}
	return &depthv1.PutEnsembleResponse{Ensemble: e.Info()}, nil
}

// Code maps a domain error to its gRPC status code.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ensemble.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, mbd.ErrDegenerateReferenceSet):
		return codes.FailedPrecondition
	case errors.Is(err, ensemble.ErrPinned):
		return codes.PermissionDenied
	case errors.Is(err, mbd.ErrDimensionMismatch),
		errors.Is(err, mbd.ErrInvalidInput),
		errors.Is(err, ensemble.ErrInvalidID),
		errors.Is(err, scoring.ErrEmptyRequest),
		errors.Is(err, scoring.ErrTooManyCurves),
		errors.Is(err, scoring.ErrLabelMismatch):
		return codes.InvalidArgument
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

func statusError(err error) error {
	code := Code(err)
	if code == codes.Internal {
		slog.Error("receiver: internal error", "err", err)
	}
	return status.Error(code, err.Error())
}
