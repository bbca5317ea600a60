package service

import (
	"context"
	"errors"
	"time"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
)

// SessionStore persists SessionState keyed by session ID.
//
// Update must be atomic per session: concurrent Update calls on the same
// ID run fn one at a time, each seeing the previous call's result. This is
// what makes double-submit consumption single use under races.
type SessionStore interface {
	// Load returns a copy of the state, or nil when the session is unknown
	// or expired.
	Load(ctx context.Context, id string) (*domain.SessionState, error)

	// Update runs fn on the current state (a fresh one when absent) and
	// saves the result unless fn returns an error. ErrSkipSave makes
	// Update return nil without writing.
	Update(ctx context.Context, id string, fn func(s *domain.SessionState) error) error

	// Delete removes the session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	// Rename moves the state from oldID to newID. A missing oldID yields a
	// fresh state under newID.
	Rename(ctx context.Context, oldID, newID string) error

	// Close releases backend resources.
	Close() error
}

// ErrSkipSave tells SessionStore.Update that fn made no change.
var ErrSkipSave = errors.New("session: skip save")

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
