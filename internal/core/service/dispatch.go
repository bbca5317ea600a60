package service

import (
	"context"
	"errors"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
)

// Mailer delivers one message.
type Mailer interface {
	// Name identifies the transport in logs and metrics.
	Name() string

	Send(ctx context.Context, m *domain.Mail) error
}

// MailComposer renders the messages sent for a submission.
type MailComposer interface {
	AdminNotice(sub *domain.Submission, meta domain.RequestMeta) *domain.Mail
	AutoReply(sub *domain.Submission, meta domain.RequestMeta) *domain.Mail
	ErrorNotice(subject, message string, meta domain.RequestMeta) *domain.Mail
}

// MailObserver is told about every send attempt.
type MailObserver func(kind domain.MailKind, transport string, err error)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Primary  Mailer
	Fallback Mailer // second transport tried once; defaults to Primary
	Composer MailComposer
	Events   EventRecorder

	// ErrorNotification sends an error notice when the admin mail fails.
	ErrorNotification bool

	Observer MailObserver
}

// Dispatcher sends the admin notification and the customer auto-reply.
//
// The admin notice is required: it is tried on the primary transport, then
// once on the fallback, and a double failure fails the request. The
// auto-reply gets the same two attempts but its failure is only logged.
type Dispatcher struct {
	cfg DispatcherConfig
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Events == nil {
		cfg.Events = NopRecorder{}
	}
	if cfg.Fallback == nil {
		cfg.Fallback = cfg.Primary
	}
	return &Dispatcher{cfg: cfg}
}

// Dispatch sends both messages. It returns ErrDispatchFailed only when the
// admin notice could not be delivered by any transport.
func (d *Dispatcher) Dispatch(ctx context.Context, sub *domain.Submission, meta domain.RequestMeta) error {
	admin := d.cfg.Composer.AdminNotice(sub, meta)
	if err := d.deliver(ctx, domain.MailAdmin, admin); err != nil {
		d.cfg.Events.Security(ctx, meta, "Mail send failed to admin (both methods)")
		if d.cfg.ErrorNotification {
			notice := d.cfg.Composer.ErrorNotice("メール送信失敗", "お問い合わせフォームからのメール送信に失敗しました。", meta)
			_ = d.deliver(ctx, domain.MailError, notice)
		}
		return domain.ErrDispatchFailed.WithCause(err)
	}

	reply := d.cfg.Composer.AutoReply(sub, meta)
	if err := d.deliver(ctx, domain.MailAutoReply, reply); err != nil {
		d.cfg.Events.Security(ctx, meta, "Auto-reply mail send failed to: "+sub.Email)
	}
	return nil
}

// deliver tries the primary transport, then the fallback once.
func (d *Dispatcher) deliver(ctx context.Context, kind domain.MailKind, m *domain.Mail) error {
	err := d.attempt(ctx, kind, d.cfg.Primary, m)
	if err == nil {
		return err
	}
	if ferr := d.attempt(ctx, kind, d.cfg.Fallback, m); ferr != nil {
		return errors.Join(err, ferr)
	}
	return nil
}

func (d *Dispatcher) attempt(ctx context.Context, kind domain.MailKind, t Mailer, m *domain.Mail) error {
	err := t.Send(ctx, m)
	if d.cfg.Observer != nil {
		d.cfg.Observer(kind, t.Name(), err)
	}
	return err
}
