package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/testwebinoue-debug/sept3/internal/core/service"
	"github.com/testwebinoue-debug/sept3/internal/server/httpserver/handler"
	"github.com/testwebinoue-debug/sept3/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Handler *handler.Handler

	// Metrics backs the Metrics middleware and /metrics. Nil disables both.
	Metrics *metric.Registry

	// Events receives IP-policy denials.
	Events service.EventRecorder

	Logger *slog.Logger

	// TrustProxyHeaders lets Client-IP, X-Forwarded-For and X-Real-IP
	// decide the client address.
	TrustProxyHeaders bool

	// CORSOrigins are accepted in addition to the service's own origin.
	CORSOrigins []string

	// GlobalRPS and GlobalBurst size the per-IP flood limiter.
	GlobalRPS   float64
	GlobalBurst int

	IPPolicy IPPolicyConfig
}

// NewRouter creates the HTTP router with all routes and middleware.
//
// API routes run Recover → RequestID → ClientIP → SecurityHeaders →
// Metrics → AccessLog → CORS → GlobalRateLimit → IPPolicy → handler.
// Health and metrics routes skip the limiter, CORS and the IP policy.
// Paths the mux does not match still pass through the first five.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	h := cfg.Handler

	ipPolicy := cfg.IPPolicy
	if ipPolicy.Events == nil {
		ipPolicy.Events = cfg.Events
	}
	if ipPolicy.Logger == nil {
		ipPolicy.Logger = log
	}

	base := []Middleware{
		Recover(log),
		RequestID(),
		ClientIP(cfg.TrustProxyHeaders),
		SecurityHeaders(),
		Metrics(cfg.Metrics),
	}
	api := []Middleware{
		AccessLog(log),
		CORS(cfg.CORSOrigins),
		GlobalRateLimit(cfg.GlobalRPS, cfg.GlobalBurst),
		IPPolicy(ipPolicy),
	}

	mux := http.NewServeMux()

	// Method checks happen in the handlers so that wrong methods get the
	// JSON 405 body.
	mux.Handle("/api/csrf-token", Chain(http.HandlerFunc(h.CSRFToken), api...))
	mux.Handle("/api/contact", Chain(http.HandlerFunc(h.Contact), api...))

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	// The base chain wraps the mux so unmatched paths get it too.
	return Chain(mux, base...)
}
