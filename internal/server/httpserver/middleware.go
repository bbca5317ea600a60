package httpserver

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/core/service"
	"github.com/testwebinoue-debug/sept3/internal/server/httpserver/handler"
	"github.com/testwebinoue-debug/sept3/internal/telemetry/logger"
	"github.com/testwebinoue-debug/sept3/internal/telemetry/metric"
)

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first middleware is the
// outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID adds a request ID to the context and the response. A valid
// inbound X-Request-ID is kept.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if !validRequestID(requestID) {
				requestID = "req-" + strings.ToLower(ulid.Make().String())
			}

			w.Header().Set("X-Request-ID", requestID)
			ctx := logger.WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// ClientIP resolves the client address once and stores it in the context.
func ClientIP(trustHeaders bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := handler.ResolveClientIP(r, trustHeaders)
			next.ServeHTTP(w, r.WithContext(handler.WithClientIP(r.Context(), ip)))
		})
	}
}

// Recover recovers from panics and returns a 500 JSON error.
func Recover(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					log.ErrorContext(r.Context(), "panic recovered",
						"error", fmt.Sprint(err),
						"path", r.URL.Path,
					)
					handler.WriteError(w, http.StatusInternalServerError, domain.ErrInternalServer)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Security headers sent on every response.
var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
	{"Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline' https://www.google.com https://www.gstatic.com; frame-src https://www.google.com; connect-src 'self';"},
}

// SecurityHeaders sets the browser hardening headers.
func SecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range securityHeaders {
				h.Set(kv[0], kv[1])
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Metrics records request count and latency by route pattern.
func Metrics(reg *metric.Registry) Middleware {
	return func(next http.Handler) http.Handler {
		if reg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			reg.RecordRequest(route, r.Method, fmt.Sprint(wrapped.statusCode), time.Since(start).Seconds())
		})
	}
}

// AccessLog logs one line per request.
func AccessLog(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", handler.ClientIPFromContext(r.Context()),
			}

			ctx := r.Context()
			switch {
			case wrapped.statusCode >= 500:
				log.ErrorContext(ctx, "request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				log.WarnContext(ctx, "request completed with client error", attrs...)
			default:
				log.InfoContext(ctx, "request completed", attrs...)
			}
		})
	}
}

// CORS echoes the Origin header when it is the service's own origin
// (http or https on the request Host) or one of extraOrigins.
func CORS(extraOrigins []string) Middleware {
	extra := make(map[string]struct{}, len(extraOrigins))
	for _, o := range extraOrigins {
		extra[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(origin, r.Host, extra) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", "GET, POST")
				h.Set("Access-Control-Allow-Headers", "Content-Type")
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin, host string, extra map[string]struct{}) bool {
	if origin == "https://"+host || origin == "http://"+host {
		return true
	}
	_, ok := extra[origin]
	return ok
}

// GlobalRateLimit applies a per-IP token bucket. A non-positive rps
// disables it.
func GlobalRateLimit(rps float64, burst int) Middleware {
	return func(next http.Handler) http.Handler {
		if rps <= 0 {
			return next
		}
		limiters := newIPLimiters(rate.Limit(rps), burst, 10*time.Minute)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(handler.ClientIPFromContext(r.Context()), time.Now()) {
				w.Header().Set("Retry-After", "1")
				handler.WriteError(w, http.StatusTooManyRequests, domain.ErrRateLimited.WithMessage("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ipLimiters keeps one rate.Limiter per client IP and drops limiters idle
// for longer than idle.
type ipLimiters struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	entries   map[string]*ipLimiter
	lastSweep time.Time
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiters(limit rate.Limit, burst int, idle time.Duration) *ipLimiters {
	if burst < 1 {
		burst = 1
	}
	return &ipLimiters{
		limit:   limit,
		burst:   burst,
		idle:    idle,
		entries: make(map[string]*ipLimiter),
	}
}

func (l *ipLimiters) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.idle {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > l.idle {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.entries[ip]
	if !ok {
		e = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// IPPolicyConfig configures the IP allow/deny middleware.
type IPPolicyConfig struct {
	Enabled   bool
	Allowlist []string
	Denylist  []string

	Events service.EventRecorder
	Logger *slog.Logger
}

// IPPolicy rejects denylisted clients with 403. Allowlisted clients pass
// without consulting the denylist. Invalid entries are logged and skipped.
func IPPolicy(cfg IPPolicyConfig) Middleware {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}
		log := cfg.Logger
		if log == nil {
			log = slog.Default()
		}
		events := cfg.Events
		if events == nil {
			events = service.NopRecorder{}
		}
		allow := parseIPList(cfg.Allowlist, log)
		deny := parseIPList(cfg.Denylist, log)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ipStr := handler.ClientIPFromContext(ctx)
			ip := net.ParseIP(ipStr)

			if allow.contains(ip) || !deny.contains(ip) {
				next.ServeHTTP(w, r)
				return
			}

			meta := domain.RequestMeta{
				RequestID: logger.RequestIDFromContext(ctx),
				ClientIP:  ipStr,
				UserAgent: r.UserAgent(),
				At:        time.Now(),
			}
			events.Security(ctx, meta, "IP restriction: Access denied")
			events.Audit(ctx, meta, domain.ActionAccessDenied, map[string]string{
				"path": r.URL.Path,
			})
			log.WarnContext(ctx, "request denied by ip policy", "client_ip", ipStr, "path", r.URL.Path)
			handler.WriteError(w, http.StatusForbidden, domain.ErrAccessDenied)
		})
	}
}

type ipList struct {
	networks []*net.IPNet
	ips      []net.IP
}

func parseIPList(entries []string, log *slog.Logger) ipList {
	var l ipList
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				log.Warn("invalid CIDR in ip list", "entry", entry, "error", err)
				continue
			}
			l.networks = append(l.networks, ipNet)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			log.Warn("invalid IP in ip list", "entry", entry)
			continue
		}
		l.ips = append(l.ips, ip)
	}
	return l
}

func (l ipList) contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range l.ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range l.networks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
