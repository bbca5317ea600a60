package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/core/service"
)

// Config configures a Recorder.
type Config struct {
	// Dir is the log directory. Created on first write.
	Dir string

	// AuditEnabled turns the structured audit log on.
	AuditEnabled bool

	// UserAgent adds the client User-Agent to audit records.
	UserAgent bool

	Logger *slog.Logger

	// Clock stamps records whose RequestMeta carries no time.
	Clock func() time.Time
}

// Recorder writes pipeline events to the monthly log files.
type Recorder struct {
	cfg      Config
	logger   *slog.Logger
	security *monthlySink
	audit    *monthlySink
	contact  *monthlySink
}

// NewRecorder creates a recorder writing under cfg.Dir.
func NewRecorder(cfg Config) (*Recorder, error) {
	if cfg.Dir == "" {
		return nil, errors.New("audit: dir is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Recorder{
		cfg:      cfg,
		logger:   cfg.Logger,
		security: newMonthlySink(cfg.Dir, KindSecurity),
		audit:    newMonthlySink(cfg.Dir, KindAudit),
		contact:  newMonthlySink(cfg.Dir, KindContact),
	}, nil
}

// Security appends "time | ip | message" to the security log.
func (r *Recorder) Security(ctx context.Context, meta domain.RequestMeta, message string) {
	at := r.at(meta)
	line := pipeLine(at, meta.ClientIP, message)
	if err := r.security.Append(at, line); err != nil {
		r.logger.ErrorContext(ctx, "security log write failed", "error", err)
	}
	r.logger.WarnContext(ctx, "security event",
		"request_id", meta.RequestID,
		"client_ip", meta.ClientIP,
		"message", message)
}

// Audit appends one JSON record to the audit log when enabled.
func (r *Recorder) Audit(ctx context.Context, meta domain.RequestMeta, action domain.AuditAction, details map[string]string) {
	if !r.cfg.AuditEnabled {
		return
	}

	at := r.at(meta)
	ev := domain.AuditEvent{
		ID:        strings.ToLower(ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()),
		Timestamp: at.Format(domain.AuditTimeLayout),
		Action:    action,
		IP:        meta.ClientIP,
		Details:   details,
	}
	if ev.Details == nil {
		ev.Details = map[string]string{}
	}
	if r.cfg.UserAgent {
		ev.UserAgent = meta.UserAgent
		if ev.UserAgent == "" {
			ev.UserAgent = "Unknown"
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ev); err != nil {
		r.logger.ErrorContext(ctx, "audit record encode failed", "error", err)
		return
	}
	if err := r.audit.Append(at, buf.Bytes()); err != nil {
		r.logger.ErrorContext(ctx, "audit log write failed", "error", err)
	}
}

// ContactSuccess appends "time | SUCCESS | ip | email | inquiry".
func (r *Recorder) ContactSuccess(ctx context.Context, meta domain.RequestMeta, email, inquiry string) {
	at := r.at(meta)
	line := pipeLine(at, "SUCCESS", meta.ClientIP, email, inquiry)
	if err := r.contact.Append(at, line); err != nil {
		r.logger.ErrorContext(ctx, "contact log write failed", "error", err)
	}
}

// ContactError appends "time | ERROR | ip | message".
func (r *Recorder) ContactError(ctx context.Context, meta domain.RequestMeta, message string) {
	at := r.at(meta)
	line := pipeLine(at, "ERROR", meta.ClientIP, message)
	if err := r.contact.Append(at, line); err != nil {
		r.logger.ErrorContext(ctx, "contact log write failed", "error", err)
	}
}

// Close closes all open log files.
func (r *Recorder) Close() error {
	return errors.Join(r.security.Close(), r.audit.Close(), r.contact.Close())
}

func (r *Recorder) at(meta domain.RequestMeta) time.Time {
	if !meta.At.IsZero() {
		return meta.At
	}
	return r.cfg.Clock()
}

// pipeLine joins the timestamp and fields with " | ". Line breaks inside
// fields are flattened so that one event stays one line.
func pipeLine(at time.Time, fields ...string) []byte {
	var b strings.Builder
	b.WriteString(at.Format(domain.AuditTimeLayout))
	for _, f := range fields {
		b.WriteString(" | ")
		b.WriteString(flatten(f))
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func flatten(s string) string {
	return lineBreaks.Replace(s)
}

var _ service.EventRecorder = (*Recorder)(nil)
