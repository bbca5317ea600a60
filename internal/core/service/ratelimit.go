package service

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
)

// RateLimitConfig holds the sliding-window settings.
type RateLimitConfig struct {
	// Limit is the number of attempts admitted per Period.
	Limit int

	// Period is the trailing window length.
	Period time.Duration

	// Strict adds an independent window keyed by submitted email.
	Strict bool

	// EmailKey keys the digest used for email window entries, so raw
	// addresses never reach the session store.
	EmailKey []byte
}

// RateLimiter admits submissions against per-session sliding windows.
type RateLimiter struct {
	store SessionStore
	cfg   RateLimitConfig
	key   []byte
	clock Clock
}

// NewRateLimiter creates a RateLimiter.
func NewRateLimiter(store SessionStore, cfg RateLimitConfig) *RateLimiter {
	key := cfg.EmailKey
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	return &RateLimiter{store: store, cfg: cfg, key: key}
}

// WithClock overrides the time source.
func (r *RateLimiter) WithClock(c Clock) *RateLimiter {
	r.clock = c
	return r
}

// EmailKey returns the window key for an email address.
func (r *RateLimiter) EmailKey(email string) string {
	h, err := blake2b.New256(r.key)
	if err != nil {
		// Only reachable with a key over 64 bytes, which NewRateLimiter folds.
		panic(err)
	}
	h.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(h.Sum(nil))
}

// CheckAndRecord prunes the windows, rejects when either is at capacity,
// and records the attempt only when both admit it.
func (r *RateLimiter) CheckAndRecord(ctx context.Context, sessionID, clientID, email string) (bool, error) {
	now := r.clock.now()
	cutoff := now.Add(-r.cfg.Period)
	useEmail := r.cfg.Strict && strings.TrimSpace(email) != ""

	var emailKey string
	if useEmail {
		emailKey = r.EmailKey(email)
	}

	allowed := false
	err := r.store.Update(ctx, sessionID, func(s *domain.SessionState) error {
		allowed = false

		// 1. Session window. Every hit counts whatever client address it
		// was recorded under; the address is kept for the record only.
		s.ClientHits = domain.PruneHits(s.ClientHits, cutoff)
		if len(s.ClientHits) >= r.cfg.Limit {
			return nil
		}

		// 2. Email window (strict mode)
		if useEmail {
			s.EmailHits = domain.PruneHits(s.EmailHits, cutoff)
			if domain.CountHits(s.EmailHits, emailKey) >= r.cfg.Limit {
				return nil
			}
		}

		// 3. Record
		at := now.UnixMilli()
		s.ClientHits = append(s.ClientHits, domain.RateHit{Key: clientID, At: at})
		if useEmail {
			s.EmailHits = append(s.EmailHits, domain.RateHit{Key: emailKey, At: at})
		}
		s.Touch(now)
		allowed = true
		return nil
	})
	if err != nil {
		return false, domain.ErrStorageError.WithCause(err)
	}
	return allowed, nil
}
