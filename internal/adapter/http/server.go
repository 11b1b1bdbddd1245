// Package http exposes the service's operational endpoints and the
// consolidation trigger.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/alert-consolidation-service/internal/consolidate"
)

// BatchRunner executes one consolidation batch.
type BatchRunner interface {
	RunBatch(ctx context.Context, window time.Duration, limit int) (*consolidate.Report, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Defaults fill in trigger requests that omit window or batch size.
type Defaults struct {
	TimeWindowMinutes int
	BatchSize         int
}

// Server exposes health, readiness, metrics, and the consolidation trigger.
type Server struct {
	httpServer *http.Server
	runner     BatchRunner
	defaults   Defaults
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// POST /v1/consolidations routes.
func NewServer(addr string, runner BatchRunner, ready ReadinessChecker, defaults Defaults, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		runner:   runner,
		defaults: defaults,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/consolidations", s.handleConsolidate)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// consolidateRequest is the trigger payload; both fields are optional.
type consolidateRequest struct {
	TimeWindowMinutes int `json:"timeWindowMinutes"`
	BatchSize         int `json:"batchSize"`
}

// handleConsolidate runs one batch and returns its statistics. A batch either
// fully succeeds or fails; there is no partial-success payload.
func (s *Server) handleConsolidate(w http.ResponseWriter, r *http.Request) {
	var req consolidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "invalid request body",
			"error":   err.Error(),
		})
		return
	}

	window := time.Duration(s.defaults.TimeWindowMinutes) * time.Minute
	if req.TimeWindowMinutes > 0 {
		window = time.Duration(req.TimeWindowMinutes) * time.Minute
	}
	limit := s.defaults.BatchSize
	if req.BatchSize > 0 {
		limit = req.BatchSize
	}

	report, err := s.runner.RunBatch(r.Context(), window, limit)
	if err != nil {
		s.logger.Error("consolidation batch failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message": "consolidation batch failed",
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "consolidation batch complete",
		"results": report,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}
