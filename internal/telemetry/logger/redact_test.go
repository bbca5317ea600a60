package logger

import (
	"testing"
)

func TestRedactSensitive_Keys(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"password", "hunter2", redactedValue},
		{"recaptcha_secret", "6Lc-abc", redactedValue},
		{"csrf_token", "abcdef", redactedValue},
		{"email_key", "pepper", redactedValue},
		{"Authorization", "Bearer x", redactedValue},
		{"set_cookie", "SEPT3SESSID=abc", redactedValue},
		{"token", "", ""},
		{"email", "taro@example.com", "t***@example.com"},
		{"reply_to", "hanako@example.jp", "h***@example.jp"},
		{"stage", "csrf", "csrf"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			l, buf := newBufferLogger(t, "info", "json")
			l.Info("event", tt.key, tt.value)

			entry := decode(t, buf)
			if got := entry[tt.key]; got != tt.want {
				t.Errorf("%s = %v, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestRedactSensitive_SessionIDValue(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	id := "cfss-01hz3m7q9x0000000000000000abcdefghijklmnopqrstuv"
	l.Info("session renamed", "new", id)

	entry := decode(t, buf)
	if got := entry["new"]; got != "cfss-01h...tuv" {
		t.Errorf("new = %v, want cfss-01h...tuv", got)
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")
	l.WithGroup("smtp").Info("dial", "host", "mail.example.com", "password", "pw")

	entry := decode(t, buf)
	group, ok := entry["smtp"].(map[string]any)
	if !ok {
		t.Fatalf("smtp group missing: %v", entry)
	}
	if group["password"] != redactedValue {
		t.Errorf("smtp.password = %v, want redacted", group["password"])
	}
	if group["host"] != "mail.example.com" {
		t.Errorf("smtp.host = %v", group["host"])
	}
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"taro@example.com", "t***@example.com"},
		{"a@b.c", "a***@b.c"},
		{"no-at-sign", redactedValue},
		{"@example.com", redactedValue},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := MaskEmail(tt.in); got != tt.want {
				t.Errorf("MaskEmail(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRedactString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cfss-abcdefghij", "cfss-abc...hij"},
		{"cfss-short", "cfss-***"},
		{"plain value", "plain value"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := RedactString(tt.in); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"API_KEY", true},
		{"session_cookie", true},
		{"ip", false},
		{"stage", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := IsSensitiveKey(tt.key); got != tt.want {
				t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}
