package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/core/service"
)

// SessionConfig configures the session cookie.
type SessionConfig struct {
	CookieName string

	// IdleTTL sets the cookie Max-Age. Zero makes it a browser-session cookie.
	IdleTTL time.Duration
}

// Sessions binds requests to server-side session state through a cookie.
type Sessions struct {
	store service.SessionStore
	cfg   SessionConfig
	newID func() (string, error)
	now   func() time.Time
}

// NewSessions creates a cookie session binder over store.
func NewSessions(store service.SessionStore, cfg SessionConfig) *Sessions {
	if cfg.CookieName == "" {
		cfg.CookieName = "SEPT3SESSID"
	}
	return &Sessions{
		store: store,
		cfg:   cfg,
		newID: domain.GenerateSessionID,
		now:   time.Now,
	}
}

// Resolve returns the session ID of the request, starting a new session
// when the cookie is missing, malformed or names an unknown session.
//
// A new session is created, marked initiated and immediately moved to a
// second ID, so an ID is never used before the server has regenerated it.
func (s *Sessions) Resolve(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(s.cfg.CookieName); err == nil && domain.IsValidSessionID(c.Value) {
		state, err := s.store.Load(ctx, c.Value)
		if err != nil {
			return "", domain.ErrStorageError.WithCause(err)
		}
		if state != nil {
			return c.Value, nil
		}
	}

	initial, err := s.newID()
	if err != nil {
		return "", domain.ErrEntropy.WithCause(err)
	}
	err = s.store.Update(ctx, initial, func(st *domain.SessionState) error {
		st.Initiated = true
		st.Touch(s.now())
		return nil
	})
	if err != nil {
		return "", domain.ErrStorageError.WithCause(err)
	}

	id, err := s.newID()
	if err != nil {
		return "", domain.ErrEntropy.WithCause(err)
	}
	if err := s.store.Rename(ctx, initial, id); err != nil {
		return "", domain.ErrStorageError.WithCause(err)
	}

	s.SetCookie(w, r, id)
	return id, nil
}

// SetCookie writes the session cookie for id.
func (s *Sessions) SetCookie(w http.ResponseWriter, r *http.Request, id string) {
	c := &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteStrictMode,
	}
	if s.cfg.IdleTTL > 0 {
		c.MaxAge = int(s.cfg.IdleTTL / time.Second)
	}
	http.SetCookie(w, c)
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
