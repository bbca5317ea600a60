package command

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/urfave/cli/v2"
)

// runResult captures one App run.
type runResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// runApp runs contact-cli with args and captures output. cli.Exit
// errors are recorded instead of terminating the test binary.
func runApp(t *testing.T, args ...string) runResult {
	t.Helper()

	var stdout, stderr bytes.Buffer
	res := runResult{ExitCode: -1}

	prevExiter, prevErrWriter := cli.OsExiter, cli.ErrWriter
	cli.OsExiter = func(code int) { res.ExitCode = code }
	cli.ErrWriter = &stderr
	t.Cleanup(func() {
		cli.OsExiter = prevExiter
		cli.ErrWriter = prevErrWriter
	})

	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr

	res.Err = app.Run(append([]string{"contact-cli"}, args...))
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	if res.Err == nil && res.ExitCode == -1 {
		res.ExitCode = 0
	}
	return res
}

// mockServer mimics the public endpoints of contact-server.
type mockServer struct {
	*httptest.Server

	ready    bool
	reject   bool
	lastBody map[string]any
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{ready: true}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/csrf-token", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "SEPT3SESSID", Value: "cfss-test", Path: "/"})
		writeJSONBody(w, http.StatusOK, map[string]any{
			"success":             true,
			"csrf_token":          "csrf-abc",
			"double_submit_token": "ds-xyz",
			"timestamp":           1760000000,
		})
	})
	mux.HandleFunc("/api/contact", func(w http.ResponseWriter, r *http.Request) {
		m.lastBody = nil
		json.NewDecoder(r.Body).Decode(&m.lastBody)
		if m.reject {
			w.Header().Set("X-Error-Code", "CF-VAL-4000")
			writeJSONBody(w, http.StatusBadRequest, map[string]any{
				"success": false, "message": "フリガナはカタカナで入力してください", "field": "lastNameKana",
			})
			return
		}
		writeJSONBody(w, http.StatusOK, map[string]any{"success": true, "message": "送信しました"})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(w, http.StatusOK, map[string]any{"status": "ok", "time": "2026-10-16T00:00:00Z"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if !m.ready {
			writeJSONBody(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "time": "t", "error": "store down"})
			return
		}
		writeJSONBody(w, http.StatusOK, map[string]any{"status": "ready", "time": "t"})
	})

	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Close)
	return m
}

func writeJSONBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
