package service

import (
	"context"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
)

// EventRecorder is the append-only log surface the pipeline writes to.
//
// Implementations write synchronously and deal with their own I/O errors;
// a failing sink never changes the outcome of a request.
type EventRecorder interface {
	// Security appends one line to the security log.
	Security(ctx context.Context, meta domain.RequestMeta, message string)

	// Audit appends one structured audit record.
	Audit(ctx context.Context, meta domain.RequestMeta, action domain.AuditAction, details map[string]string)

	// ContactSuccess records an accepted submission in the contact log.
	ContactSuccess(ctx context.Context, meta domain.RequestMeta, email, inquiry string)

	// ContactError records a rejected submission in the contact log.
	ContactError(ctx context.Context, meta domain.RequestMeta, message string)
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) Security(context.Context, domain.RequestMeta, string) {}

func (NopRecorder) Audit(context.Context, domain.RequestMeta, domain.AuditAction, map[string]string) {}

func (NopRecorder) ContactSuccess(context.Context, domain.RequestMeta, string, string) {}

func (NopRecorder) ContactError(context.Context, domain.RequestMeta, string) {}
