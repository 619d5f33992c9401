package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/yndnr/sessbox-go/internal/core/domain"
	"github.com/yndnr/sessbox-go/internal/core/syncer"
	"github.com/yndnr/sessbox-go/internal/infra/buildinfo"
	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
)

// Syncer is the part of the sync engine the handlers use.
type Syncer interface {
	State() syncer.State
	Trigger()
	Sync(ctx context.Context) *syncer.Report
}

// Config wires the handlers.
type Config struct {
	Engine Syncer

	// Remote is the server base URL shown by /v1/status; empty when
	// running local-only.
	Remote string

	// Sessions counts cached sessions.
	Sessions func() int

	Logger logger.Logger
}

// Handler serves the agent endpoints.
type Handler struct {
	engine   Syncer
	remote   string
	sessions func() int
	logger   logger.Logger
	mux      *http.ServeMux
}

// New creates a new Handler.
func New(cfg Config) *Handler {
	h := &Handler{
		engine:   cfg.Engine,
		remote:   cfg.Remote,
		sessions: cfg.Sessions,
		logger:   cfg.Logger,
		mux:      http.NewServeMux(),
	}
	if h.logger == nil {
		h.logger = logger.Default()
	}
	if h.sessions == nil {
		h.sessions = func() int { return 0 }
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	h.mux.HandleFunc("GET /readyz", h.handleReady)
	h.mux.HandleFunc("GET /v1/status", h.handleStatus)
	h.mux.HandleFunc("POST /v1/sync", h.handleSync)
}

// handleHealth handles GET /healthz. The process is alive if it answers.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, &HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /readyz: ready while the remote server is
// reachable.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if !h.engine.State().Online {
		h.writeError(w, r, http.StatusServiceUnavailable, domain.ErrNetworkUnavailable.Code, "remote server unreachable")
		return
	}
	h.writeJSON(w, r, http.StatusOK, &HealthResponse{
		Status: "ready",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus handles GET /v1/status.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	remote := h.remote
	if remote == "" {
		remote = "local only"
	}
	h.writeJSON(w, r, http.StatusOK, &StatusResponse{
		State:    h.engine.State(),
		Version:  buildinfo.Get().Version,
		Remote:   remote,
		Sessions: h.sessions(),
	})
}

// handleSync handles POST /v1/sync. By default it schedules a cycle and
// returns 202; with ?wait=true it runs one and returns its report.
func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	wait := false
	if v := r.URL.Query().Get("wait"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, domain.ErrInvalidArgument.Code, "wait must be a boolean")
			return
		}
		wait = b
	}

	if !wait {
		h.engine.Trigger()
		h.writeJSON(w, r, http.StatusAccepted, &SyncResponse{Scheduled: true})
		return
	}

	rep := h.engine.Sync(r.Context())
	resp := &SyncResponse{Report: rep}
	if rep.Err != nil {
		resp.Error = rep.Err.Error()
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := r.Header.Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := r.Header.Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message)); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
