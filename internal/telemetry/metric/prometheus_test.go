package metric

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
}

func TestHandler(t *testing.T) {
	body := scrape(t, Handler())

	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if !strings.Contains(body, "process_") {
		t.Error("expected process metrics")
	}
}

func TestRecordRequest(t *testing.T) {
	r := NewRegistry()
	r.RecordRequest("/api/contact", "POST", "200", 0.01)
	r.RecordRequest("/api/contact", "POST", "200", 0.02)

	body := scrape(t, r.Handler())

	if !strings.Contains(body, `sept3_http_requests_total{method="POST",route="/api/contact",status="200"} 2`) {
		t.Error("expected sept3_http_requests_total for POST /api/contact 200")
	}
	if !strings.Contains(body, "sept3_http_request_duration_seconds_count") {
		t.Error("expected sept3_http_request_duration_seconds_count")
	}
}

func TestPipelineMetrics(t *testing.T) {
	r := NewRegistry()
	r.RecordSubmission("accepted", "")
	r.RecordSubmission("rejected", "honeypot")
	r.RecordSubmission("rejected", "honeypot")
	r.IncTokensIssued()
	r.RecordBotScore("pass")
	r.RecordBotScore("")

	body := scrape(t, r.Handler())

	for _, want := range []string{
		`sept3_submissions_total{outcome="accepted"} 1`,
		`sept3_submissions_total{outcome="rejected"} 2`,
		`sept3_rejections_total{stage="honeypot"} 2`,
		`sept3_tokens_issued_total 1`,
		`sept3_botscore_checks_total{result="pass"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s", want)
		}
	}
}

func TestRecordMail(t *testing.T) {
	r := NewRegistry()
	r.RecordMail("admin", "smtp", nil)
	r.RecordMail("admin", "smtp", errors.New("boom"))

	body := scrape(t, r.Handler())

	if !strings.Contains(body, `sept3_mail_dispatch_total{kind="admin",result="ok",transport="smtp"} 1`) {
		t.Error("expected ok mail counter")
	}
	if !strings.Contains(body, `sept3_mail_dispatch_total{kind="admin",result="error",transport="smtp"} 1`) {
		t.Error("expected error mail counter")
	}
}
