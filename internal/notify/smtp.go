package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/core/service"
)

// DefaultSMTPTimeout bounds one delivery.
const DefaultSMTPTimeout = 30 * time.Second

// SMTPConfig configures an SMTP transport.
type SMTPConfig struct {
	// Name labels the transport in logs and metrics.
	Name string

	Host     string
	Port     int
	Username string
	Password string

	// HeloName is sent in EHLO. Default: localhost.
	HeloName string

	// EncodeHeaders writes subject and display name as encoded words
	// even when they are plain ASCII.
	EncodeHeaders bool

	Timeout time.Duration

	// TLSConfig overrides the STARTTLS configuration.
	TLSConfig *tls.Config
}

// SMTPTransport delivers mail over SMTP. STARTTLS is used when the server
// offers it; PLAIN auth is used when a username is configured.
type SMTPTransport struct {
	cfg SMTPConfig
	now func() time.Time
}

// NewSMTPTransport creates an SMTP transport.
func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	if cfg.Host == "" {
		return nil, errors.New("notify: smtp host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	if cfg.Name == "" {
		cfg.Name = "smtp"
	}
	if cfg.HeloName == "" {
		cfg.HeloName = "localhost"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSMTPTimeout
	}
	return &SMTPTransport{cfg: cfg, now: time.Now}, nil
}

// Name implements service.Mailer.
func (t *SMTPTransport) Name() string { return t.cfg.Name }

// Send implements service.Mailer.
func (t *SMTPTransport) Send(ctx context.Context, m *domain.Mail) error {
	msg, err := render(m, t.now(), t.cfg.EncodeHeaders)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp: dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp: greeting: %w", err)
	}
	defer c.Close()

	if err := c.Hello(t.cfg.HeloName); err != nil {
		return fmt.Errorf("smtp: hello: %w", err)
	}

	if ok, _ := c.Extension("STARTTLS"); ok {
		tlsCfg := t.cfg.TLSConfig
		if tlsCfg == nil {
			tlsCfg = &tls.Config{ServerName: t.cfg.Host, MinVersion: tls.VersionTLS12}
		}
		if err := c.StartTLS(tlsCfg); err != nil {
			return fmt.Errorf("smtp: starttls: %w", err)
		}
	}

	if t.cfg.Username != "" {
		auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}

	if err := c.Mail(m.FromAddr); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	if err := c.Rcpt(m.To); err != nil {
		return fmt.Errorf("smtp: rcpt to: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp: data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("smtp: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp: data close: %w", err)
	}

	return c.Quit()
}

var _ service.Mailer = (*SMTPTransport)(nil)
