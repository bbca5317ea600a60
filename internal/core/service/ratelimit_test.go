package service

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestLimiter(strict bool) (*RateLimiter, *fakeStore, *fakeClock) {
	store := newFakeStore()
	clock := newFakeClock()
	l := NewRateLimiter(store, RateLimitConfig{
		Limit:    3,
		Period:   time.Hour,
		Strict:   strict,
		EmailKey: []byte("pepper"),
	}).WithClock(clock.Now)
	return l, store, clock
}

func TestRateLimiter_ClientWindow(t *testing.T) {
	l, _, clock := newTestLimiter(false)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		ok, err := l.CheckAndRecord(ctx, "s", "203.0.113.7", "")
		if err != nil {
			t.Fatalf("CheckAndRecord() error = %v", err)
		}
		if !ok {
			t.Fatalf("attempt %d rejected, want admitted", i)
		}
		clock.Advance(time.Minute)
	}

	if ok, _ := l.CheckAndRecord(ctx, "s", "203.0.113.7", ""); ok {
		t.Error("4th attempt admitted, want rejected")
	}

	// First entry leaves the window one hour after it was recorded.
	clock.Advance(time.Hour - 3*time.Minute - time.Millisecond)
	if ok, _ := l.CheckAndRecord(ctx, "s", "203.0.113.7", ""); ok {
		t.Error("attempt just before expiry admitted")
	}
	clock.Advance(time.Millisecond)
	if ok, _ := l.CheckAndRecord(ctx, "s", "203.0.113.7", ""); !ok {
		t.Error("attempt after the earliest entry expired was rejected")
	}
}

func TestRateLimiter_RotatingClientAddress(t *testing.T) {
	l, _, _ := newTestLimiter(false)
	ctx := context.Background()

	for _, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		if ok, err := l.CheckAndRecord(ctx, "s", ip, ""); err != nil || !ok {
			t.Fatalf("CheckAndRecord(%s) = %v, %v; want true, nil", ip, ok, err)
		}
	}
	if ok, _ := l.CheckAndRecord(ctx, "s", "203.0.113.4", ""); ok {
		t.Error("CheckAndRecord() from a fresh address admitted, want rejected")
	}
}

func TestRateLimiter_RejectedAttemptsNotRecorded(t *testing.T) {
	l, store, _ := newTestLimiter(false)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		l.CheckAndRecord(ctx, "s", "ip", "")
	}

	s, _ := store.Load(ctx, "s")
	if len(s.ClientHits) != 3 {
		t.Errorf("ClientHits = %d, want 3", len(s.ClientHits))
	}
}

func TestRateLimiter_StrictEmailWindow(t *testing.T) {
	l, store, _ := newTestLimiter(true)
	ctx := context.Background()

	// Three different client identities, same email.
	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		if ok, _ := l.CheckAndRecord(ctx, "s", ip, "User@Example.com"); !ok {
			t.Fatalf("attempt from %s rejected", ip)
		}
	}
	if ok, _ := l.CheckAndRecord(ctx, "s", "10.0.0.4", "user@example.com "); ok {
		t.Error("4th attempt with the same email admitted under strict mode")
	}
	if ok, _ := l.CheckAndRecord(ctx, "s", "10.0.0.4", "other@example.com"); !ok {
		t.Error("different email rejected")
	}

	s, _ := store.Load(ctx, "s")
	for _, h := range s.EmailHits {
		if strings.Contains(h.Key, "@") {
			t.Errorf("email window stores raw address %q", h.Key)
		}
	}
}

func TestRateLimiter_NonStrictIgnoresEmail(t *testing.T) {
	l, store, _ := newTestLimiter(false)
	ctx := context.Background()

	for _, ip := range []string{"a", "b", "c", "d"} {
		if ok, _ := l.CheckAndRecord(ctx, "s", ip, "same@example.com"); !ok {
			t.Fatalf("attempt from %s rejected", ip)
		}
	}
	if s, _ := store.Load(ctx, "s"); len(s.EmailHits) != 0 {
		t.Errorf("EmailHits = %d, want 0 outside strict mode", len(s.EmailHits))
	}
}

func TestRateLimiter_EmailKey(t *testing.T) {
	l1, _, _ := newTestLimiter(true)
	l2 := NewRateLimiter(newFakeStore(), RateLimitConfig{EmailKey: []byte("other")})

	a := l1.EmailKey("a@example.com")
	if len(a) != 64 {
		t.Errorf("EmailKey() length = %d, want 64", len(a))
	}
	if a != l1.EmailKey("  A@EXAMPLE.COM") {
		t.Error("EmailKey() is not case and space insensitive")
	}
	if a == l2.EmailKey("a@example.com") {
		t.Error("EmailKey() ignores the key")
	}

	long := NewRateLimiter(newFakeStore(), RateLimitConfig{EmailKey: []byte(strings.Repeat("k", 100))})
	if got := long.EmailKey("a@example.com"); len(got) != 64 {
		t.Errorf("EmailKey() with long key length = %d, want 64", len(got))
	}
}
