// internal/api/handlers.go
package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"localesync/internal/content"
	"localesync/internal/coverage"
	"localesync/internal/errors"
	"localesync/internal/lock"
	"localesync/internal/logging"
	"localesync/internal/middleware"
	"localesync/internal/status"

	"go.uber.org/zap"
)

// Toggle switches event handling on and off
type Toggle interface {
	SetDisabled(disabled bool)
	SetCategoryDisabled(category string, disabled bool)
}

type Deps struct {
	Board    *status.Board
	Content  *content.Store
	Locks    *lock.Store
	Coverage *coverage.Tracker
	// Toggle may be nil when nothing is being watched
	Toggle Toggle
	Logger *logging.Logger
}

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	Status     status.Snapshot `json:"status"`
	Files      int             `json:"files"`
	Namespaces []string        `json:"namespaces"`
	Locks      []lock.Entry    `json:"locks"`
}

// KeyResponse is the body of GET /api/keys/{namespace}/{key}
type KeyResponse struct {
	Namespace string         `json:"namespace"`
	Key       string         `json:"key"`
	Values    map[string]any `json:"values"`
}

// ToggleRequest is the body of PUT /api/disabled. An empty category
// applies to every category.
type ToggleRequest struct {
	Disabled bool   `json:"disabled"`
	Category string `json:"category,omitempty"`
}

type Handler struct {
	deps Deps
}

func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	return &Handler{deps: deps}
}

// Routes returns the mux wrapped in the standard middleware
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// Health checks
	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("GET /api/status", h.Status)
	mux.HandleFunc("GET /api/keys/{namespace}/{key}", h.Key)
	mux.HandleFunc("GET /api/coverage", h.CoverageList)
	mux.HandleFunc("GET /api/coverage/{namespace}", h.Coverage)
	mux.HandleFunc("PUT /api/disabled", h.SetDisabled)

	return middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger(h.deps.Logger),
		middleware.Recover(h.deps.Logger),
	)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Files:      h.deps.Content.Len(),
		Namespaces: h.deps.Content.Namespaces(),
		Locks:      h.deps.Locks.Entries(),
	}
	if h.deps.Board != nil {
		resp.Status = h.deps.Board.Snapshot()
	}
	sort.Slice(resp.Locks, func(i, j int) bool { return resp.Locks[i].Path < resp.Locks[j].Path })
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Key(w http.ResponseWriter, r *http.Request) {
	ns, key := r.PathValue("namespace"), r.PathValue("key")
	if ns == "" || key == "" {
		h.writeError(w, r, errors.ValidationError("namespace and key are required", nil))
		return
	}

	values := h.deps.Content.Values(ns, key)
	if len(values) == 0 {
		h.writeError(w, r, errors.NotFound("key not found: "+ns+"."+key))
		return
	}
	writeJSON(w, http.StatusOK, KeyResponse{Namespace: ns, Key: key, Values: values})
}

func (h *Handler) CoverageList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Coverage.Reports())
}

func (h *Handler) Coverage(w http.ResponseWriter, r *http.Request) {
	ns := r.PathValue("namespace")
	report, ok := h.deps.Coverage.Report(ns)
	if !ok {
		h.writeError(w, r, errors.NotFound("namespace not found: "+ns))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) SetDisabled(w http.ResponseWriter, r *http.Request) {
	if h.deps.Toggle == nil {
		h.writeError(w, r, errors.ValidationError("not watching", nil))
		return
	}

	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.ValidationError("invalid request body", err.Error()))
		return
	}

	if req.Category == "" {
		h.deps.Toggle.SetDisabled(req.Disabled)
	} else {
		h.deps.Toggle.SetCategoryDisabled(req.Category, req.Disabled)
	}
	h.deps.Logger.WithRequestID(r.Context()).Info("event handling toggled",
		zap.Bool("disabled", req.Disabled),
		zap.String("category", req.Category))
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.StatusCode(err)
	if code >= http.StatusInternalServerError {
		h.deps.Logger.WithRequestID(r.Context()).Error("request failed", zap.Error(err))
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
