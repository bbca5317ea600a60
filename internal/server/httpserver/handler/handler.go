package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/core/service"
	"github.com/testwebinoue-debug/sept3/internal/telemetry/logger"
	"github.com/testwebinoue-debug/sept3/internal/telemetry/metric"
)

// Config holds the collaborators of a Handler.
type Config struct {
	Tokens   *service.TokenIssuer
	Pipeline *service.Pipeline
	Sessions *Sessions

	// RetryAfter is sent with 429 responses. Zero omits the header.
	RetryAfter time.Duration

	// Ready reports backend readiness for /ready. Nil means always ready.
	Ready func(ctx context.Context) error

	// Events records failures that happen before the pipeline runs.
	// Nil discards them.
	Events service.EventRecorder

	// Metrics is optional.
	Metrics *metric.Registry
	Logger  *slog.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Handler serves the contact API.
type Handler struct {
	tokens   *service.TokenIssuer
	pipeline *service.Pipeline
	sessions *Sessions
	retry    time.Duration
	ready    func(ctx context.Context) error
	events   service.EventRecorder
	metrics  *metric.Registry
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Handler.
func New(cfg Config) *Handler {
	h := &Handler{
		tokens:   cfg.Tokens,
		pipeline: cfg.Pipeline,
		sessions: cfg.Sessions,
		retry:    cfg.RetryAfter,
		ready:    cfg.Ready,
		events:   cfg.Events,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		now:      cfg.Clock,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.events == nil {
		h.events = service.NopRecorder{}
	}
	return h
}

// requestMeta collects the per-request facts the pipeline and log sinks need.
func (h *Handler) requestMeta(r *http.Request) domain.RequestMeta {
	return domain.RequestMeta{
		RequestID: logger.RequestIDFromContext(r.Context()),
		ClientIP:  ClientIPFromContext(r.Context()),
		UserAgent: r.UserAgent(),
		At:        h.now(),
	}
}

// writeJSON writes v as a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logger.L(r.Context()).Error("failed to encode response", "error", err)
	}
}

// writeResult writes the {success, message} shape.
func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, status int, success bool, message string) {
	h.writeJSON(w, r, status, Result{Success: success, Message: message})
}

// WriteError writes a failure response for a domain error. It is used by
// middleware that rejects requests before they reach a handler.
func WriteError(w http.ResponseWriter, status int, de *domain.DomainError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Error-Code", de.Code)
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(Result{Success: false, Message: de.Message})
}
