package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/core/service"
	"github.com/testwebinoue-debug/sept3/internal/notify"
	"github.com/testwebinoue-debug/sept3/internal/storage/memory"
	"github.com/testwebinoue-debug/sept3/internal/telemetry/logger"
	"github.com/testwebinoue-debug/sept3/internal/telemetry/metric"
)

const testCookie = "SEPT3SESSID"

type fakeMailer struct {
	mu   sync.Mutex
	sent []*domain.Mail
	err  error
}

func (m *fakeMailer) Name() string { return "fake" }

func (m *fakeMailer) Send(_ context.Context, mail *domain.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fixture struct {
	h       *Handler
	store   *memory.Store
	mailer  *fakeMailer
	metrics *metric.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New(memory.WithJanitorInterval(0))
	t.Cleanup(func() { store.Close() })

	mailer := &fakeMailer{}
	tokens := service.NewTokenIssuer(store, service.TokenConfig{CSRFLifetime: time.Hour, DoubleSubmit: true})
	pipeline := service.NewPipeline(service.PipelineConfig{
		Honeypot:       true,
		TimestampCheck: true,
		MinFillTime:    3 * time.Second,
		MaxFillTime:    time.Hour,
	}, service.PipelineDeps{
		Store:  store,
		Tokens: tokens,
		Limiter: service.NewRateLimiter(store, service.RateLimitConfig{
			Limit: 3, Period: time.Hour, Strict: true, EmailKey: []byte("test-key"),
		}),
		Validator: service.NewValidator(service.ValidationRules{
			MaxNameLength:    50,
			MaxCompanyLength: 100,
			MaxContentLength: 5000,
			MinContentLength: 10,
			MaxEmailLength:   254,
			MaxPhoneLength:   15,
		}, nil),
		Dispatcher: service.NewDispatcher(service.DispatcherConfig{
			Primary: mailer,
			Composer: notify.NewComposer(notify.TemplateConfig{
				AdminAddr: "admin@example.com",
				FromAddr:  "noreply@example.com",
				FromName:  "sept.3",
			}),
		}),
	})

	reg := metric.NewRegistry()
	h := New(Config{
		Tokens:     tokens,
		Pipeline:   pipeline,
		Sessions:   NewSessions(store, SessionConfig{CookieName: testCookie, IdleTTL: 24 * time.Hour}),
		RetryAfter: time.Hour,
		Metrics:    reg,
		Logger:     logger.Discard(),
	})
	return &fixture{h: h, store: store, mailer: mailer, metrics: reg}
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	return nil
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (f *fixture) fetchTokens(t *testing.T, cookie *http.Cookie) (TokenResponse, *http.Cookie) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.h.CSRFToken(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("CSRFToken status = %d, body %s", rec.Code, rec.Body.String())
	}
	if c := sessionCookie(rec); c != nil {
		cookie = c
	}
	return decodeBody[TokenResponse](t, rec), cookie
}

func submissionBody(tok TokenResponse) []byte {
	body := map[string]any{
		"inquiryType":         "consultation",
		"lastName":            "山田",
		"firstName":           "太郎",
		"lastNameKana":        "ヤマダ",
		"firstNameKana":       "タロウ",
		"phone":               "06-1234-5678",
		"email":               "taro@example.com",
		"content":             "お見積りをお願いしたいです。",
		"website":             "",
		"timestamp":           time.Now().Add(-30 * time.Second).Unix(),
		"csrf_token":          tok.CSRFToken,
		"double_submit_token": "",
	}
	if tok.DoubleSubmitToken != nil {
		body["double_submit_token"] = *tok.DoubleSubmitToken
	}
	b, _ := json.Marshal(body)
	return b
}

func (f *fixture) post(cookie *http.Cookie, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.h.Contact(rec, req)
	return rec
}

func TestCSRFToken_IssuesPairAndCookie(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	rec := httptest.NewRecorder()
	f.h.CSRFToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeBody[TokenResponse](t, rec)
	if !resp.Success {
		t.Error("success = false")
	}
	if len(resp.CSRFToken) != 64 {
		t.Errorf("len(csrf_token) = %d, want 64", len(resp.CSRFToken))
	}
	if resp.DoubleSubmitToken == nil || len(*resp.DoubleSubmitToken) != 64 {
		t.Errorf("double_submit_token = %v, want 64 hex chars", resp.DoubleSubmitToken)
	}
	if resp.Timestamp == 0 {
		t.Error("timestamp = 0")
	}

	c := sessionCookie(rec)
	if c == nil {
		t.Fatal("session cookie not set")
	}
	if !c.HttpOnly || c.SameSite != http.SameSiteStrictMode || c.Path != "/" {
		t.Errorf("cookie attributes = %+v", c)
	}
	if c.Secure {
		t.Error("cookie Secure on plain HTTP request")
	}
	if !domain.IsValidSessionID(c.Value) {
		t.Errorf("cookie value %q is not a session ID", c.Value)
	}

	state, err := f.store.Load(context.Background(), c.Value)
	if err != nil || state == nil {
		t.Fatalf("Load() = %v, %v", state, err)
	}
	if !state.Initiated || state.CSRFToken != resp.CSRFToken {
		t.Errorf("stored state = %+v", state)
	}
	if f.store.Count() != 1 {
		t.Errorf("store holds %d sessions, want 1 after bootstrap regeneration", f.store.Count())
	}
}

func TestCSRFToken_ReusesSession(t *testing.T) {
	f := newFixture(t)
	_, cookie := f.fetchTokens(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	f.h.CSRFToken(rec, req)

	if c := sessionCookie(rec); c != nil {
		t.Errorf("known session should not be reissued, got cookie %q", c.Value)
	}
}

func TestCSRFToken_UnknownSessionIsReplaced(t *testing.T) {
	f := newFixture(t)
	forged, _ := domain.GenerateSessionID()

	_, cookie := f.fetchTokens(t, &http.Cookie{Name: testCookie, Value: forged})
	if cookie.Value == forged {
		t.Error("unknown session ID was adopted")
	}
}

func TestCSRFToken_SecureCookieBehindTLSProxy(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	f.h.CSRFToken(rec, req)

	if c := sessionCookie(rec); c == nil || !c.Secure {
		t.Errorf("cookie = %+v, want Secure", c)
	}
}

func TestCSRFToken_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/csrf-token", nil)
	rec := httptest.NewRecorder()
	f.h.CSRFToken(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	resp := decodeBody[Result](t, rec)
	if resp.Success || resp.Message != "Method not allowed" {
		t.Errorf("body = %+v", resp)
	}
	if sessionCookie(rec) != nil {
		t.Error("405 response set a session cookie")
	}
}

func TestContact_AcceptsAndRegeneratesSession(t *testing.T) {
	f := newFixture(t)
	tok, cookie := f.fetchTokens(t, nil)

	rec := f.post(cookie, submissionBody(tok))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[Result](t, rec)
	if !resp.Success || resp.Message != service.SuccessMessage {
		t.Errorf("body = %+v", resp)
	}
	if got := f.mailer.count(); got != 2 {
		t.Errorf("mails sent = %d, want 2", got)
	}

	next := sessionCookie(rec)
	if next == nil || next.Value == cookie.Value {
		t.Fatalf("session not regenerated: %+v", next)
	}
	if st, _ := f.store.Load(context.Background(), cookie.Value); st != nil {
		t.Error("old session ID still resolves")
	}

	// The double-submit token was consumed; replaying the form fails.
	replay := f.post(next, submissionBody(tok))
	if replay.Code != http.StatusBadRequest {
		t.Fatalf("replay status = %d, want 400", replay.Code)
	}
	if got := decodeBody[Result](t, replay).Message; got != service.DoubleSubmitMessage {
		t.Errorf("replay message = %q, want %q", got, service.DoubleSubmitMessage)
	}
}

func TestContact_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(body map[string]any)
		noCookie   bool
		wantStatus int
		wantCode   string
		wantField  string
	}{
		{
			name:       "no session",
			noCookie:   true,
			wantStatus: http.StatusBadRequest,
			wantCode:   "CF-SEC-4000",
		},
		{
			name:       "wrong csrf token",
			mutate:     func(b map[string]any) { b["csrf_token"] = strings.Repeat("0", 64) },
			wantStatus: http.StatusBadRequest,
			wantCode:   "CF-SEC-4000",
		},
		{
			name:       "honeypot filled",
			mutate:     func(b map[string]any) { b["website"] = "http://spam.example" },
			wantStatus: http.StatusBadRequest,
			wantCode:   "CF-SEC-4000",
		},
		{
			name:       "too fast",
			mutate:     func(b map[string]any) { b["timestamp"] = time.Now().Unix() },
			wantStatus: http.StatusBadRequest,
			wantCode:   "CF-SEC-4000",
		},
		{
			name:       "bad kana",
			mutate:     func(b map[string]any) { b["lastNameKana"] = "やまだ" },
			wantStatus: http.StatusBadRequest,
			wantCode:   "CF-VAL-4000",
			wantField:  "lastNameKana",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tok, cookie := f.fetchTokens(t, nil)

			var body map[string]any
			_ = json.Unmarshal(submissionBody(tok), &body)
			if tt.mutate != nil {
				tt.mutate(body)
			}
			raw, _ := json.Marshal(body)
			if tt.noCookie {
				cookie = nil
			}

			rec := f.post(cookie, raw)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := rec.Header().Get("X-Error-Code"); got != tt.wantCode {
				t.Errorf("X-Error-Code = %q, want %q", got, tt.wantCode)
			}
			resp := decodeBody[Result](t, rec)
			if resp.Success || resp.Message == "" {
				t.Errorf("body = %+v", resp)
			}
			if resp.Field != tt.wantField {
				t.Errorf("field = %q, want %q", resp.Field, tt.wantField)
			}
			if f.mailer.count() != 0 {
				t.Error("rejected submission sent mail")
			}
		})
	}
}

func TestContact_RateLimited(t *testing.T) {
	f := newFixture(t)
	_, cookie := f.fetchTokens(t, nil)

	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		tok, c := f.fetchTokens(t, cookie)
		cookie = c
		last = f.post(cookie, submissionBody(tok))
		if c := sessionCookie(last); c != nil {
			cookie = c
		}
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("4th submission status = %d, want 429", last.Code)
	}
	if got := last.Header().Get("Retry-After"); got != "3600" {
		t.Errorf("Retry-After = %q, want 3600", got)
	}
	if got := f.mailer.count(); got != 6 {
		t.Errorf("mails sent = %d, want 6", got)
	}
}

func TestContact_DispatchFailure(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp down")
	tok, cookie := f.fetchTokens(t, nil)

	rec := f.post(cookie, submissionBody(tok))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := decodeBody[Result](t, rec).Message; got != domain.ErrDispatchFailed.Message {
		t.Errorf("message = %q", got)
	}
}

func TestContact_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/contact", nil)
	rec := httptest.NewRecorder()
	f.h.Contact(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if sessionCookie(rec) != nil {
		t.Error("GET created a session")
	}
	if f.store.Count() != 0 {
		t.Errorf("store holds %d sessions, want 0", f.store.Count())
	}
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || decodeBody[HealthResponse](t, rec).Status != "healthy" {
		t.Errorf("Health() = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	f.h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Ready() without check = %d, want 200", rec.Code)
	}

	f.h.ready = func(context.Context) error { return errors.New("backend down") }
	rec = httptest.NewRecorder()
	f.h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Ready() with failing check = %d, want 503", rec.Code)
	}
	if got := decodeBody[HealthResponse](t, rec); got.Status != "unavailable" || got.Error != "backend down" {
		t.Errorf("Ready() body = %+v", got)
	}
}

// brokenStore refuses every write.
type brokenStore struct {
	*memory.Store
}

func (brokenStore) Update(context.Context, string, func(*domain.SessionState) error) error {
	return errors.New("disk full")
}

type eventSink struct {
	security []string
	audit    []domain.AuditAction
	contact  []string
}

func (e *eventSink) Security(_ context.Context, _ domain.RequestMeta, msg string) {
	e.security = append(e.security, msg)
}

func (e *eventSink) Audit(_ context.Context, _ domain.RequestMeta, action domain.AuditAction, _ map[string]string) {
	e.audit = append(e.audit, action)
}

func (e *eventSink) ContactSuccess(context.Context, domain.RequestMeta, string, string) {}

func (e *eventSink) ContactError(_ context.Context, _ domain.RequestMeta, msg string) {
	e.contact = append(e.contact, msg)
}

func TestContact_SessionFailureIsRecorded(t *testing.T) {
	store := memory.New(memory.WithJanitorInterval(0))
	t.Cleanup(func() { store.Close() })

	events := &eventSink{}
	h := New(Config{
		Sessions: NewSessions(brokenStore{store}, SessionConfig{CookieName: testCookie}),
		Events:   events,
		Logger:   logger.Discard(),
	})

	rec := httptest.NewRecorder()
	h.Contact(rec, httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader("{}")))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := rec.Header().Get("X-Error-Code"); got != domain.ErrInternalServer.Code {
		t.Errorf("X-Error-Code = %q, want %q", got, domain.ErrInternalServer.Code)
	}
	if len(events.security) != 1 || !strings.Contains(events.security[0], "disk full") {
		t.Errorf("security = %v, want one entry naming the store error", events.security)
	}
	if len(events.audit) != 1 || events.audit[0] != domain.ActionSubmitError {
		t.Errorf("audit = %v, want [%s]", events.audit, domain.ActionSubmitError)
	}
	if len(events.contact) != 1 {
		t.Errorf("contact = %v, want one entry", events.contact)
	}
}
