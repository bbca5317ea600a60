package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/core/service"
	"github.com/testwebinoue-debug/sept3/pkg/cmap"
)

// Default configuration values.
const (
	DefaultTTL             = 24 * time.Hour
	DefaultJanitorInterval = time.Minute
)

// entry is one session slot. dead marks an entry that was removed from the
// map; a caller that locks a dead entry must look the ID up again.
type entry struct {
	mu      sync.Mutex
	state   *domain.SessionState
	expires time.Time
	dead    bool
}

// Store is an in-memory service.SessionStore.
type Store struct {
	sessions *cmap.Map[*entry]
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the idle lifetime of a session.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithJanitorInterval sets how often idle sessions are evicted.
// Zero or negative disables the janitor.
func WithJanitorInterval(d time.Duration) Option {
	return func(s *Store) {
		s.interval = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a new in-memory store and starts its janitor.
func New(opts ...Option) *Store {
	s := &Store{
		sessions: cmap.New[*entry](),
		ttl:      DefaultTTL,
		interval: DefaultJanitorInterval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.interval > 0 {
		go s.janitor()
	} else {
		close(s.doneCh)
	}
	return s
}

// Load returns a copy of the session state, or nil when absent or expired.
func (s *Store) Load(_ context.Context, id string) (*domain.SessionState, error) {
	e, ok := s.sessions.Get(id)
	if !ok {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dead || e.state == nil || s.expired(e) {
		return nil, nil
	}
	return e.state.Clone(), nil
}

// Update runs fn under the session's lock and stores the result.
func (s *Store) Update(_ context.Context, id string, fn func(*domain.SessionState) error) error {
	e := s.acquire(id)
	defer e.mu.Unlock()

	now := s.now()
	var cur *domain.SessionState
	if e.state != nil && !s.expired(e) {
		cur = e.state.Clone()
	} else {
		cur = domain.NewSessionState(now)
	}

	if err := fn(cur); err != nil {
		if e.state == nil {
			s.remove(id, e)
		}
		if errors.Is(err, service.ErrSkipSave) {
			return nil
		}
		return err
	}

	e.state = cur
	e.expires = now.Add(s.ttl)
	return nil
}

// Delete removes a session.
func (s *Store) Delete(_ context.Context, id string) error {
	e, ok := s.sessions.Get(id)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.dead {
		s.remove(id, e)
	}
	return nil
}

// Rename moves the state of oldID to newID.
func (s *Store) Rename(_ context.Context, oldID, newID string) error {
	if oldID == newID {
		return nil
	}

	var moved *domain.SessionState
	if e, ok := s.sessions.Get(oldID); ok {
		e.mu.Lock()
		if !e.dead {
			if e.state != nil && !s.expired(e) {
				moved = e.state
			}
			s.remove(oldID, e)
		}
		e.mu.Unlock()
	}

	now := s.now()
	if moved == nil {
		moved = domain.NewSessionState(now)
	}
	moved.Touch(now)

	ne := s.acquire(newID)
	ne.state = moved
	ne.expires = now.Add(s.ttl)
	ne.mu.Unlock()
	return nil
}

// Count returns the number of stored sessions, expired ones included
// until the janitor runs.
func (s *Store) Count() int {
	return s.sessions.Count()
}

// Close stops the janitor.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.doneCh
	return nil
}

// CleanupExpired evicts expired sessions and returns how many were removed.
func (s *Store) CleanupExpired() int {
	type candidate struct {
		id string
		e  *entry
	}
	var candidates []candidate

	// Collect first: entry locks must not be taken under a shard lock.
	s.sessions.Range(func(id string, e *entry) bool {
		candidates = append(candidates, candidate{id, e})
		return true
	})

	removed := 0
	for _, c := range candidates {
		c.e.mu.Lock()
		if !c.e.dead && c.e.state != nil && s.expired(c.e) {
			s.remove(c.id, c.e)
			removed++
		}
		c.e.mu.Unlock()
	}
	return removed
}

// acquire returns the live entry for id with its lock held.
func (s *Store) acquire(id string) *entry {
	for {
		e, _ := s.sessions.GetOrSet(id, &entry{})
		e.mu.Lock()
		if !e.dead {
			return e
		}
		e.mu.Unlock()
	}
}

// remove marks e dead and drops it from the map. Caller holds e.mu.
func (s *Store) remove(id string, e *entry) {
	e.dead = true
	e.state = nil
	s.sessions.RemoveIf(id, func(cur *entry) bool { return cur == e })
}

func (s *Store) expired(e *entry) bool {
	return !s.now().Before(e.expires)
}

func (s *Store) janitor() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.CleanupExpired()
		case <-s.stopCh:
			return
		}
	}
}

var _ service.SessionStore = (*Store)(nil)
