package service

import (
	"context"
	"time"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/pkg/token"
)

// TokenConfig holds the token lifecycle settings.
type TokenConfig struct {
	// CSRFLifetime is how long an issued CSRF token stays valid.
	CSRFLifetime time.Duration

	// DoubleSubmit enables the single-use form token.
	DoubleSubmit bool
}

// IssuedTokens is returned to the client by the token endpoint.
type IssuedTokens struct {
	CSRFToken         string
	DoubleSubmitToken string // empty when double-submit is disabled
	Timestamp         int64  // server time, unix seconds
}

// TokenIssuer creates form tokens and validates them against the session.
type TokenIssuer struct {
	store    SessionStore
	cfg      TokenConfig
	clock    Clock
	generate func() (string, error)
}

// NewTokenIssuer creates a TokenIssuer.
func NewTokenIssuer(store SessionStore, cfg TokenConfig) *TokenIssuer {
	return &TokenIssuer{
		store:    store,
		cfg:      cfg,
		generate: token.Generate,
	}
}

// WithClock overrides the time source.
func (t *TokenIssuer) WithClock(c Clock) *TokenIssuer {
	t.clock = c
	return t
}

// DoubleSubmitEnabled reports whether the double-submit stage is active.
func (t *TokenIssuer) DoubleSubmitEnabled() bool {
	return t.cfg.DoubleSubmit
}

// Issue generates a fresh token pair and stores it in the session,
// replacing any previous pair.
func (t *TokenIssuer) Issue(ctx context.Context, sessionID string) (*IssuedTokens, error) {
	now := t.clock.now()

	csrf, err := t.generate()
	if err != nil {
		return nil, domain.ErrEntropy.WithCause(err)
	}
	out := &IssuedTokens{CSRFToken: csrf, Timestamp: now.Unix()}

	if t.cfg.DoubleSubmit {
		ds, err := t.generate()
		if err != nil {
			return nil, domain.ErrEntropy.WithCause(err)
		}
		out.DoubleSubmitToken = ds
	}

	err = t.store.Update(ctx, sessionID, func(s *domain.SessionState) error {
		s.SetCSRF(out.CSRFToken, now)
		if out.DoubleSubmitToken != "" {
			s.SetDoubleSubmit(out.DoubleSubmitToken, now)
		}
		s.Touch(now)
		return nil
	})
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return out, nil
}

// ValidateCSRF checks candidate against the stored CSRF token.
//
// A token older than the configured lifetime is evicted and fails. The
// comparison is constant time. The token is not consumed on success so
// that a client can retry after a validation error.
func (t *TokenIssuer) ValidateCSRF(ctx context.Context, sessionID, candidate string) (bool, error) {
	now := t.clock.now()
	ok := false

	err := t.store.Update(ctx, sessionID, func(s *domain.SessionState) error {
		ok = false
		if !s.HasCSRF() {
			return ErrSkipSave
		}
		if s.CSRFAge(now) > t.cfg.CSRFLifetime {
			s.ClearCSRF()
			s.Touch(now)
			return nil
		}
		ok = token.Equal(s.CSRFToken, candidate)
		return ErrSkipSave
	})
	if err != nil {
		return false, domain.ErrStorageError.WithCause(err)
	}
	return ok, nil
}

// ValidateAndConsumeDoubleSubmit checks candidate against the stored
// double-submit token and removes the stored token whatever the result.
func (t *TokenIssuer) ValidateAndConsumeDoubleSubmit(ctx context.Context, sessionID, candidate string) (bool, error) {
	now := t.clock.now()
	ok := false

	err := t.store.Update(ctx, sessionID, func(s *domain.SessionState) error {
		stored := s.TakeDoubleSubmit()
		if stored == "" {
			ok = false
			return ErrSkipSave
		}
		s.Touch(now)
		ok = token.Equal(stored, candidate)
		return nil
	})
	if err != nil {
		return false, domain.ErrStorageError.WithCause(err)
	}
	return ok, nil
}
