package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/banddepth/banddepth/internal/alerts"
	"github.com/banddepth/banddepth/internal/ensemble"
	"github.com/banddepth/banddepth/internal/scoring"
	"github.com/banddepth/banddepth/pkg/mbd"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 20

const ensemblesPrefix = "/api/v1/ensembles/"

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	engine  *scoring.Engine
	manager *ensemble.Manager
	alerts  *alerts.Engine
	mux     *http.ServeMux
}

// New creates a Handler and registers all routes. alertEngine may be nil,
// in which case /api/v1/alerts returns an empty list.
func New(engine *scoring.Engine, m *ensemble.Manager, alertEngine *alerts.Engine) http.Handler {
	h := &Handler{engine: engine, manager: m, alerts: alertEngine, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/ensembles", h.listEnsembles)
	h.mux.HandleFunc(ensemblesPrefix, h.ensemble) // subtree: {id} and {id}/depth
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.manager.Store().List()
	resp := HealthResponse{
		Status:        "ok",
		EnsembleCount: len(entries),
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	for _, e := range entries {
		if e.Pinned {
			resp.PinnedCount++
		}
	}
	if h.alerts != nil {
		resp.FiringAlerts = h.alerts.Firing()
	}
	jsonResp(w, http.StatusOK, resp)
}

// listEnsembles returns GET /api/v1/ensembles.
func (h *Handler) listEnsembles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.manager.Store().List()
	out := make([]EnsembleResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EnsembleResponse{EnsembleInfo: e.Info()})
	}
	jsonResp(w, http.StatusOK, out)
}

// ensemble dispatches /api/v1/ensembles/{id} and /api/v1/ensembles/{id}/depth.
func (h *Handler) ensemble(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, ensemblesPrefix)
	if rest == "" {
		h.listEnsembles(w, r)
		return
	}

	id, sub, _ := strings.Cut(rest, "/")
	switch {
	case sub == "depth":
		h.depth(w, r, id)
	case sub != "":
		jsonErr(w, http.StatusNotFound, "not found")
	default:
		switch r.Method {
		case http.MethodGet:
			h.getEnsemble(w, r, id)
		case http.MethodPut:
			h.putEnsemble(w, r, id)
		case http.MethodDelete:
			h.deleteEnsemble(w, r, id)
		default:
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

// getEnsemble returns GET /api/v1/ensembles/{id}.
func (h *Handler) getEnsemble(w http.ResponseWriter, r *http.Request, id string) {
	e, err := h.manager.Store().Get(id)
	if err != nil {
		domainErr(w, err)
		return
	}

	resp := EnsembleResponse{
		EnsembleInfo: e.Info(),
		Diagnostics:  computeDiagnostics(e.Index),
	}
	if v := r.URL.Query().Get("envelope"); v == "1" || v == "true" {
		lower, upper := e.Index.Envelope()
		if hasInf(lower, upper) {
			jsonErr(w, http.StatusUnprocessableEntity, "envelope holds infinite values")
			return
		}
		resp.Lower, resp.Upper = lower, upper
	}
	jsonResp(w, http.StatusOK, resp)
}

// putEnsemble handles PUT /api/v1/ensembles/{id}.
func (h *Handler) putEnsemble(w http.ResponseWriter, r *http.Request, id string) {
	var req PutEnsembleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		e   *ensemble.Entry
		err error
	)
	switch {
	case req.Curves != nil && req.Data != nil:
		jsonErr(w, http.StatusBadRequest, "set either curves or rows/timepoints/data, not both")
		return
	case req.Data != nil || req.Rows != 0 || req.Timepoints != 0:
		e, err = h.manager.PutMatrix(r.Context(), id, req.Rows, req.Timepoints, req.Data, req.Strategy)
	default:
		e, err = h.manager.Put(r.Context(), id, req.Curves, req.Strategy)
	}
	if err != nil {
		domainErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, EnsembleResponse{EnsembleInfo: e.Info(), Diagnostics: computeDiagnostics(e.Index)})
}

// deleteEnsemble handles DELETE /api/v1/ensembles/{id}.
func (h *Handler) deleteEnsemble(w http.ResponseWriter, r *http.Request, id string) {
	ok, err := h.manager.Delete(r.Context(), id)
	if err != nil {
		domainErr(w, err)
		return
	}
	if !ok {
		jsonErr(w, http.StatusNotFound, fmt.Sprintf("ensemble %q not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// depth handles POST /api/v1/ensembles/{id}/depth.
func (h *Handler) depth(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req DepthRequest
	if !decodeBody(w, r, &req) {
		return
	}

	b, err := h.engine.Score(r.Context(), scoring.Request{EnsembleID: id, Curves: req.Curves, Labels: req.Labels})
	if err != nil {
		domainErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, b.Response())
}

// listAlerts returns GET /api/v1/alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// decodeBody reads a JSON body into v, writing a 400 and returning false on
// failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps a domain error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ensemble.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ensemble.ErrPinned):
		return http.StatusConflict
	case errors.Is(err, mbd.ErrDegenerateReferenceSet):
		return http.StatusUnprocessableEntity
	case errors.Is(err, mbd.ErrDimensionMismatch),
		errors.Is(err, mbd.ErrInvalidInput),
		errors.Is(err, ensemble.ErrInvalidID),
		errors.Is(err, scoring.ErrEmptyRequest),
		errors.Is(err, scoring.ErrTooManyCurves),
		errors.Is(err, scoring.ErrLabelMismatch):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func domainErr(w http.ResponseWriter, err error) {
	jsonErr(w, statusFor(err), err.Error())
}
