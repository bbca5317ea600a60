package domain

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// SessionIDPrefix is the prefix for contact session IDs.
	SessionIDPrefix = "cfss-"

	// sessionSecretBytes is the random suffix appended to the ULID so that
	// IDs are unguessable even though the ULID part is time-ordered.
	sessionSecretBytes = 16

	// sessionIDLength is prefix (5) + ULID (26) + base64url(16 bytes) (22).
	sessionIDLength = len(SessionIDPrefix) + 26 + 22
)

// RateHit is one recorded submission attempt in a rate window.
type RateHit struct {
	Key string `json:"k"`
	At  int64  `json:"t"` // Unix milliseconds
}

// SessionState is the server-side state bound to one session cookie.
//
// CSRFToken and CSRFIssuedAt are either both set or both zero.
// DoubleSubmitToken is single use: any validation attempt clears it.
type SessionState struct {
	CSRFToken    string `json:"csrf_token,omitempty"`
	CSRFIssuedAt int64  `json:"csrf_issued_at,omitempty"`

	DoubleSubmitToken    string `json:"double_submit_token,omitempty"`
	DoubleSubmitIssuedAt int64  `json:"double_submit_issued_at,omitempty"`

	ClientHits []RateHit `json:"client_hits,omitempty"`
	EmailHits  []RateHit `json:"email_hits,omitempty"`

	Initiated bool  `json:"initiated,omitempty"`
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// NewSessionState returns an empty state stamped with now.
func NewSessionState(now time.Time) *SessionState {
	ms := now.UnixMilli()
	return &SessionState{CreatedAt: ms, UpdatedAt: ms}
}

// SetCSRF stores a CSRF token with its issue time.
func (s *SessionState) SetCSRF(token string, at time.Time) {
	s.CSRFToken = token
	s.CSRFIssuedAt = at.UnixMilli()
}

// ClearCSRF removes the CSRF token and its issue time together.
func (s *SessionState) ClearCSRF() {
	s.CSRFToken = ""
	s.CSRFIssuedAt = 0
}

// HasCSRF reports whether a CSRF token is present.
func (s *SessionState) HasCSRF() bool {
	return s.CSRFToken != "" && s.CSRFIssuedAt != 0
}

// CSRFAge returns the age of the stored CSRF token relative to now.
func (s *SessionState) CSRFAge(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(s.CSRFIssuedAt))
}

// SetDoubleSubmit stores a double-submit token.
func (s *SessionState) SetDoubleSubmit(token string, at time.Time) {
	s.DoubleSubmitToken = token
	s.DoubleSubmitIssuedAt = at.UnixMilli()
}

// TakeDoubleSubmit removes and returns the double-submit token.
func (s *SessionState) TakeDoubleSubmit() string {
	t := s.DoubleSubmitToken
	s.DoubleSubmitToken = ""
	s.DoubleSubmitIssuedAt = 0
	return t
}

// Touch updates the modification timestamp.
func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UnixMilli()
}

// Clone returns a deep copy of the state.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	c := *s
	if s.ClientHits != nil {
		c.ClientHits = append([]RateHit(nil), s.ClientHits...)
	}
	if s.EmailHits != nil {
		c.EmailHits = append([]RateHit(nil), s.EmailHits...)
	}
	return &c
}

// PruneHits drops entries at or before cutoff, preserving order.
func PruneHits(hits []RateHit, cutoff time.Time) []RateHit {
	c := cutoff.UnixMilli()
	kept := hits[:0]
	for _, h := range hits {
		if h.At > c {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// CountHits counts entries recorded for key.
func CountHits(hits []RateHit, key string) int {
	n := 0
	for _, h := range hits {
		if h.Key == key {
			n++
		}
	}
	return n
}

// GenerateSessionID returns a new session ID.
// Format: cfss-{ulid_lowercase}{base64url random}.
func GenerateSessionID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", ErrEntropy.WithCause(err)
	}
	secret := make([]byte, sessionSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", ErrEntropy.WithCause(err)
	}
	return SessionIDPrefix + strings.ToLower(id.String()) + base64.RawURLEncoding.EncodeToString(secret), nil
}

// IsValidSessionID checks if a string has the session ID shape.
func IsValidSessionID(id string) bool {
	if len(id) != sessionIDLength || !strings.HasPrefix(id, SessionIDPrefix) {
		return false
	}
	body := id[len(SessionIDPrefix):]
	if _, err := ulid.ParseStrict(strings.ToUpper(body[:26])); err != nil {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(body[26:])
	return err == nil
}
