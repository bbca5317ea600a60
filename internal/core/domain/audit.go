package domain

import "time"

// AuditAction is the action code written to the audit log.
type AuditAction string

const (
	ActionSubmitSuccess AuditAction = "FORM_SUBMIT_SUCCESS"
	ActionSubmitFailed  AuditAction = "FORM_SUBMIT_FAILED"
	ActionSubmitBlocked AuditAction = "FORM_SUBMIT_BLOCKED"
	ActionSubmitError   AuditAction = "FORM_SUBMIT_ERROR"
	ActionAccessDenied  AuditAction = "ACCESS_DENIED_IP"
)

// AuditEvent is one structured audit record.
type AuditEvent struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	Action    AuditAction       `json:"action"`
	IP        string            `json:"ip"`
	Details   map[string]string `json:"details"`
	UserAgent string            `json:"user_agent,omitempty"`
}

// AuditTimeLayout is the timestamp layout used by every log sink.
const AuditTimeLayout = "2006-01-02 15:04:05"

// RequestMeta carries per-request facts the log sinks need.
type RequestMeta struct {
	RequestID string
	ClientIP  string
	UserAgent string
	At        time.Time
}
