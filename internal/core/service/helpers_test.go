package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
)

// fakeStore is a map-backed SessionStore serialized by one mutex.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.SessionState
	writes   int
	failNext error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]*domain.SessionState)}
}

func (f *fakeStore) Load(_ context.Context, id string) (*domain.SessionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id].Clone(), nil
}

func (f *fakeStore) Update(_ context.Context, id string, fn func(*domain.SessionState) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failNext; err != nil {
		f.failNext = nil
		return err
	}
	s := f.sessions[id].Clone()
	if s == nil {
		s = domain.NewSessionState(time.Now())
	}
	if err := fn(s); err != nil {
		if errors.Is(err, ErrSkipSave) {
			return nil
		}
		return err
	}
	f.sessions[id] = s
	f.writes++
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeStore) Rename(_ context.Context, oldID, newID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[oldID]
	delete(f.sessions, oldID)
	if s == nil {
		s = domain.NewSessionState(time.Now())
	}
	f.sessions[newID] = s
	return nil
}

func (f *fakeStore) Close() error { return nil }

// fakeClock is a settable Clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recorder captures EventRecorder calls.
type recorder struct {
	mu       sync.Mutex
	security []string
	audit    []domain.AuditAction
	details  []map[string]string
	success  int
	errors   []string
}

func (r *recorder) Security(_ context.Context, _ domain.RequestMeta, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.security = append(r.security, msg)
}

func (r *recorder) Audit(_ context.Context, _ domain.RequestMeta, action domain.AuditAction, details map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audit = append(r.audit, action)
	r.details = append(r.details, details)
}

func (r *recorder) ContactSuccess(context.Context, domain.RequestMeta, string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success++
}

func (r *recorder) ContactError(_ context.Context, _ domain.RequestMeta, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

// plainComposer builds minimal messages.
type plainComposer struct{}

func (plainComposer) AdminNotice(sub *domain.Submission, _ domain.RequestMeta) *domain.Mail {
	return &domain.Mail{To: "admin@example.com", Subject: "admin", Body: sub.Content}
}

func (plainComposer) AutoReply(sub *domain.Submission, _ domain.RequestMeta) *domain.Mail {
	return &domain.Mail{To: sub.Email, Subject: "reply", Body: sub.Content}
}

func (plainComposer) ErrorNotice(subject, message string, _ domain.RequestMeta) *domain.Mail {
	return &domain.Mail{To: "admin@example.com", Subject: subject, Body: message}
}

// staticResolver answers HasMailHost from a fixed set.
type staticResolver struct {
	hosts map[string]bool
	err   error
}

func (r staticResolver) HasMailHost(_ context.Context, domain string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	return r.hosts[domain], nil
}
