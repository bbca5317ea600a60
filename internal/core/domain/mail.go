package domain

// Mail is one outbound message handed to a transport.
//
// Headers hold everything except To and Subject, which transports place
// themselves so they can encode them.
type Mail struct {
	To      string
	Subject string
	Body    string
	Headers map[string]string

	// FromName and FromAddr are kept apart so the fallback transport can
	// MIME-encode the display name.
	FromName string
	FromAddr string
}

// MailKind labels a message for logs and metrics.
type MailKind string

const (
	MailAdmin     MailKind = "admin"
	MailAutoReply MailKind = "auto_reply"
	MailError     MailKind = "error_notice"
)
