package notify

import (
	"context"
	"log/slog"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/core/service"
)

// LogTransport writes mails to the structured log instead of sending them.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a log transport.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

// Name implements service.Mailer.
func (t *LogTransport) Name() string { return "log" }

// Send implements service.Mailer.
func (t *LogTransport) Send(ctx context.Context, m *domain.Mail) error {
	if err := checkHeaders(m); err != nil {
		return err
	}
	t.logger.InfoContext(ctx, "mail (log transport)",
		"to", m.To,
		"subject", m.Subject,
		"message_id", m.Headers["Message-ID"],
		"body_bytes", len(m.Body))
	t.logger.DebugContext(ctx, "mail body", "body", m.Body)
	return nil
}

var _ service.Mailer = (*LogTransport)(nil)
