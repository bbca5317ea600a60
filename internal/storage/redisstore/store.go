package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/core/service"
	"github.com/testwebinoue-debug/sept3/pkg/crypto/adaptive"
)

// Default configuration values.
const (
	DefaultPrefix      = "sept3:sess"
	DefaultTTL         = 24 * time.Hour
	DefaultDialTimeout = 5 * time.Second

	maxTxnRetries = 16
)

// ErrTxnConflict is returned when Update loses the WATCH race too often.
var ErrTxnConflict = errors.New("redis: session update conflicted too many times")

// Config describes how to reach the Redis server.
type Config struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	DialTimeout time.Duration
}

// Store is a Redis-backed session store. It owns the client and closes it
// on Close.
type Store struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
	cipher adaptive.Cipher
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix. Surrounding colons are trimmed.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if p := strings.Trim(prefix, ":"); p != "" {
			s.prefix = p
		}
	}
}

// WithTTL sets the idle lifetime of a session.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source used for state timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCipher seals stored values with c, bound to the full key. Values
// that fail to open read as absent.
func WithCipher(c adaptive.Cipher) Option {
	return func(s *Store) { s.cipher = c }
}

// New wraps an existing client.
func New(rdb redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		rdb:    rdb,
		prefix: DefaultPrefix,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open dials Redis, verifies the connection and returns a Store.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis: addr is required")
	}
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = DefaultDialTimeout
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dial,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}

	if cfg.Prefix != "" {
		opts = append([]Option{WithPrefix(cfg.Prefix)}, opts...)
	}
	return New(rdb, opts...), nil
}

// Load returns the session state, or nil when absent.
func (s *Store) Load(ctx context.Context, id string) (*domain.SessionState, error) {
	return s.get(ctx, s.rdb, s.key(id))
}

// Update runs fn against the current state and writes the result with
// WATCH/MULTI, retrying when the key changed underneath.
func (s *Store) Update(ctx context.Context, id string, fn func(*domain.SessionState) error) error {
	key := s.key(id)

	txf := func(tx *redis.Tx) error {
		now := s.now()
		cur, err := s.get(ctx, tx, key)
		if err != nil {
			return err
		}
		if cur == nil {
			cur = domain.NewSessionState(now)
		}
		if err := fn(cur); err != nil {
			return err
		}

		val, err := s.encode(key, cur, now)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, val, s.ttl)
			return nil
		})
		return err
	}

	return s.watch(ctx, txf, key)
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.key(id)).Err()
}

// Rename moves the state of oldID to newID atomically.
func (s *Store) Rename(ctx context.Context, oldID, newID string) error {
	if oldID == newID {
		return nil
	}
	oldKey, newKey := s.key(oldID), s.key(newID)

	txf := func(tx *redis.Tx) error {
		now := s.now()
		cur, err := s.get(ctx, tx, oldKey)
		if err != nil {
			return err
		}
		if cur == nil {
			cur = domain.NewSessionState(now)
		}
		val, err := s.encode(newKey, cur, now)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, oldKey)
			pipe.Set(ctx, newKey, val, s.ttl)
			return nil
		})
		return err
	}

	return s.watch(ctx, txf, oldKey, newKey)
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) watch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, keys...)
		switch {
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, service.ErrSkipSave):
			return nil
		default:
			return err
		}
	}
	return ErrTxnConflict
}

func (s *Store) get(ctx context.Context, c getter, key string) (*domain.SessionState, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	raw, err = adaptive.Open(s.cipher, raw, []byte(key))
	if err != nil {
		return nil, nil
	}

	var state domain.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("redis: decode session: %w", err)
	}
	return &state, nil
}

func (s *Store) encode(key string, state *domain.SessionState, now time.Time) ([]byte, error) {
	state.Touch(now)
	val, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("redis: encode session: %w", err)
	}
	if val, err = adaptive.Seal(s.cipher, val, []byte(key)); err != nil {
		return nil, fmt.Errorf("redis: seal session: %w", err)
	}
	return val, nil
}

func (s *Store) key(id string) string {
	return s.prefix + ":" + id
}

var _ service.SessionStore = (*Store)(nil)
