// Package api exposes the underwriting service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"auto-uw-agent/internal/common/errors"
	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/underwriting"
	"auto-uw-agent/pkg/registry"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Handler struct {
	svc      *underwriting.Service
	registry *registry.AgentRegistry
	checks   map[string]ReadinessCheck
	logger   logger.Logger
}

type Option func(*Handler)

// WithReadinessCheck adds a named dependency to /ready.
func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(h *Handler) { h.checks[name] = check }
}

func NewHandler(svc *underwriting.Service, reg *registry.AgentRegistry, log logger.Logger, opts ...Option) *Handler {
	h := &Handler{
		svc:      svc,
		registry: reg,
		checks:   make(map[string]ReadinessCheck),
		logger:   log.WithFields(map[string]interface{}{"component": "api"}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers every API route on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /submissions", h.handleSubmit)
	mux.HandleFunc("GET /submissions", h.handleList)
	mux.HandleFunc("GET /submissions/{id}", h.handleGet)
	mux.HandleFunc("POST /submissions/{id}/run", h.handleRun)
	mux.HandleFunc("GET /submissions/{id}/pipeline", h.handlePipeline)
	mux.HandleFunc("POST /submissions/{id}/decision", h.handleDecision)
	mux.HandleFunc("POST /submissions/{id}/policy", h.handleIssuePolicy)
	mux.HandleFunc("POST /submissions/{id}/proposal/send", h.handleSendProposal)
	mux.HandleFunc("POST /submissions/{id}/info-requests", h.handleRequestInfo)
	mux.HandleFunc("GET /dashboard", h.handleDashboard)
	mux.HandleFunc("GET /agents", h.handleAgents)
	mux.HandleFunc("GET /agents/{id}", h.handleAgent)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /ready", h.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// Routes returns the full router wrapped in request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h.logRequests(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if r.URL.Path == "/metrics" || r.URL.Path == "/health" {
			return
		}
		h.logger.Debug("request served", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not_ready",
			"failed": failed,
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}

// statusFor maps an error code onto an HTTP status.
func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeSubmissionNotFound:
		return http.StatusNotFound
	case errors.ErrCodeSubmissionValidationFailed:
		return http.StatusBadRequest
	case errors.ErrCodeInvalidStatusTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := errors.Normalize(err)
	status := statusFor(stdErr.Code)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).Error("request failed", map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
			"code":   string(stdErr.Code),
		})
	}
	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
	}})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return errors.NewSubmissionValidationFailedError("request body: " + err.Error())
	}
	return nil
}
