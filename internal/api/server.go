// Package api implements the HTTP surface: the chat endpoint, the
// conversation read endpoints, and health/metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nugget/todo-agent/internal/agent"
	"github.com/nugget/todo-agent/internal/buildinfo"
	"github.com/nugget/todo-agent/internal/metrics"
	"github.com/nugget/todo-agent/internal/ratelimit"
	"github.com/nugget/todo-agent/internal/store"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response,
// which is not actionable but worth tracking for debugging.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address    string
	port       int
	store      *store.Store
	runner     *agent.Runner
	limiter    *ratelimit.Limiter
	metrics    *metrics.Collector
	validate   *validator.Validate
	maxHistory int
	logger     *slog.Logger
	server     *http.Server
}

// NewServer creates a new API server. maxHistory caps the conversation
// window handed to the agent; <= 0 selects 50.
func NewServer(address string, port int, st *store.Store, runner *agent.Runner, limiter *ratelimit.Limiter, collector *metrics.Collector, maxHistory int, logger *slog.Logger) *Server {
	if maxHistory <= 0 {
		maxHistory = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:    address,
		port:       port,
		store:      st,
		runner:     runner,
		limiter:    limiter,
		metrics:    collector,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		maxHistory: maxHistory,
		logger:     logger,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /{user_id}/chat", s.handleChat)
	mux.HandleFunc("GET /{user_id}/conversations", s.handleConversationList)
	mux.HandleFunc("GET /{user_id}/conversations/{conversation_id}", s.handleConversationGet)
	mux.HandleFunc("GET /{user_id}/rate-limit", s.handleRateLimitStats)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /version", s.handleVersion)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second, // the chat endpoint waits on the model
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// statusRecorder captures the response code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		duration := time.Since(start)
		if s.metrics != nil {
			s.metrics.RecordRequest(duration, rec.status < 500)
		}
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", duration,
		)
	})
}

// errorResponse writes an error the way FastAPI-era clients of this
// API expect: {"detail": "..."}.
func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]string{"detail": message}, s.logger)
	if s.metrics != nil && code >= 500 {
		s.metrics.RecordError(http.StatusText(code))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.metrics.GetSummary(), s.logger)
}

func (s *Server) handleRateLimitStats(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.limiter.GetStats(userID), s.logger)
}
