package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/server/httpserver/handler"
	"github.com/testwebinoue-debug/sept3/internal/telemetry/logger"
	"github.com/testwebinoue-debug/sept3/internal/telemetry/metric"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type eventLog struct {
	mu       sync.Mutex
	security []string
	audit    []domain.AuditAction
}

func (e *eventLog) Security(_ context.Context, _ domain.RequestMeta, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.security = append(e.security, msg)
}

func (e *eventLog) Audit(_ context.Context, _ domain.RequestMeta, action domain.AuditAction, _ map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.audit = append(e.audit, action)
}

func (e *eventLog) ContactSuccess(context.Context, domain.RequestMeta, string, string) {}

func (e *eventLog) ContactError(context.Context, domain.RequestMeta, string) {}

func withIP(ip string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(handler.WithClientIP(r.Context(), ip)))
		})
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler, mark("a"), mark("b"), mark("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := strings.Join(order, ","); got != "a,b,c" {
		t.Errorf("order = %s, want a,b,c", got)
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		inbound  string
		wantKeep bool
	}{
		{"generated", "", false},
		{"kept", "abc-123_x.y", true},
		{"replaced when unsafe", "bad id\r\n", false},
		{"replaced when long", strings.Repeat("a", 65), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = logger.RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.inbound != "" {
				req.Header["X-Request-Id"] = []string{tt.inbound}
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get("X-Request-ID")
			if got != seen {
				t.Errorf("header %q != context %q", got, seen)
			}
			if tt.wantKeep && got != tt.inbound {
				t.Errorf("request ID = %q, want %q", got, tt.inbound)
			}
			if !tt.wantKeep && !strings.HasPrefix(got, "req-") {
				t.Errorf("request ID = %q, want generated req- prefix", got)
			}
		})
	}
}

func TestRecover(t *testing.T) {
	h := Recover(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/contact", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := rec.Header().Get("X-Error-Code"); got != "CF-SYS-5000" {
		t.Errorf("X-Error-Code = %q", got)
	}
	var body handler.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Success {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders()(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-XSS-Protection":       "1; mode=block",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "frame-src https://www.google.com") {
		t.Errorf("Content-Security-Policy = %q", csp)
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		extra  []string
		want   string
	}{
		{"same origin https", "https://example.com", nil, "https://example.com"},
		{"same origin http", "http://example.com", nil, "http://example.com"},
		{"foreign origin", "https://evil.example", nil, ""},
		{"configured origin", "https://www.example.org", []string{"https://www.example.org/"}, "https://www.example.org"},
		{"no origin", "", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://example.com/api/csrf-token", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			CORS(tt.extra)(okHandler).ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.want)
			}
			if tt.want != "" && rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
				t.Error("Allow-Credentials not set")
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodOptions, "http://example.com/api/contact", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if called {
		t.Error("preflight reached the handler")
	}
}

func TestGlobalRateLimit(t *testing.T) {
	h := Chain(okHandler, withIP("192.0.2.1"), GlobalRateLimit(1, 2))

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = rec.Code
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "1" {
			t.Error("429 without Retry-After")
		}
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// Another client has its own bucket.
	rec := httptest.NewRecorder()
	Chain(okHandler, withIP("192.0.2.2"), GlobalRateLimit(1, 2)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rec.Code)
	}
}

func TestGlobalRateLimit_Disabled(t *testing.T) {
	h := GlobalRateLimit(0, 0)(okHandler)
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}
}

func TestIPLimiters_SweepsIdle(t *testing.T) {
	l := newIPLimiters(1, 1, time.Minute)
	start := time.Now()

	l.allow("a", start)
	l.allow("b", start)
	l.allow("c", start.Add(2*time.Minute))

	if len(l.entries) != 1 {
		t.Errorf("entries = %d, want 1 after sweep", len(l.entries))
	}
	if !l.allow("a", start.Add(2*time.Minute)) {
		t.Error("swept client should start with a full bucket")
	}
}

func TestIPPolicy(t *testing.T) {
	tests := []struct {
		name     string
		cfg      IPPolicyConfig
		ip       string
		wantCode int
	}{
		{"disabled", IPPolicyConfig{Denylist: []string{"192.0.2.1"}}, "192.0.2.1", http.StatusOK},
		{"denied ip", IPPolicyConfig{Enabled: true, Denylist: []string{"192.0.2.1"}}, "192.0.2.1", http.StatusForbidden},
		{"denied cidr", IPPolicyConfig{Enabled: true, Denylist: []string{"198.51.100.0/24"}}, "198.51.100.7", http.StatusForbidden},
		{"not listed", IPPolicyConfig{Enabled: true, Denylist: []string{"198.51.100.0/24"}}, "203.0.113.1", http.StatusOK},
		{"allowlist wins", IPPolicyConfig{Enabled: true, Allowlist: []string{"198.51.100.7"}, Denylist: []string{"198.51.100.0/24"}}, "198.51.100.7", http.StatusOK},
		{"invalid entry skipped", IPPolicyConfig{Enabled: true, Denylist: []string{"nonsense", "192.0.2.1"}}, "192.0.2.1", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &eventLog{}
			cfg := tt.cfg
			cfg.Events = events
			cfg.Logger = logger.Discard()

			rec := httptest.NewRecorder()
			Chain(okHandler, withIP(tt.ip), IPPolicy(cfg)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/contact", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusForbidden {
				return
			}

			var body handler.Result
			_ = json.Unmarshal(rec.Body.Bytes(), &body)
			if body.Success || body.Message != "Access denied" {
				t.Errorf("body = %+v", body)
			}
			if len(events.security) != 1 || events.security[0] != "IP restriction: Access denied" {
				t.Errorf("security events = %v", events.security)
			}
			if len(events.audit) != 1 || events.audit[0] != domain.ActionAccessDenied {
				t.Errorf("audit events = %v", events.audit)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	reg := metric.NewRegistry()
	mux := http.NewServeMux()
	mux.Handle("GET /health", Metrics(reg)(okHandler))

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `sept3_http_requests_total{method="GET",route="GET /health",status="200"} 1`) {
		t.Errorf("request not recorded:\n%s", rec.Body.String())
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}), withIP("192.0.2.9"), AccessLog(log))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/contact", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output %q: %v", buf.String(), err)
	}
	if entry["level"] != "WARN" || entry["status"] != float64(400) || entry["client_ip"] != "192.0.2.9" {
		t.Errorf("entry = %v", entry)
	}
}
