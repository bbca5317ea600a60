package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/testwebinoue-debug/sept3/internal/core/service"
	"github.com/testwebinoue-debug/sept3/internal/storage/memory"
	"github.com/testwebinoue-debug/sept3/internal/storage/redisstore"
	"github.com/testwebinoue-debug/sept3/pkg/crypto/adaptive"
)

// Supported backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// DefaultSessionTTL is the idle lifetime of a session.
const DefaultSessionTTL = 24 * time.Hour

// Config selects and configures the session store backend.
type Config struct {
	// Backend is one of "memory", "badger", "redis". Default: memory.
	Backend string

	// SessionTTL is the idle lifetime of a session.
	SessionTTL time.Duration

	Badger BadgerConfig
	Redis  redisstore.Config

	// Cipher, when set, seals records at rest (badger and redis). The
	// memory backend never leaves the process and ignores it.
	Cipher adaptive.Cipher

	// Metrics, when set, receives backend gauges (badger only).
	Metrics *prometheus.Registry

	Logger *slog.Logger
}

// Open creates the configured session store.
func Open(ctx context.Context, cfg Config) (service.SessionStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}

	switch cfg.Backend {
	case "", BackendMemory:
		cfg.Logger.Info("session store opened", "backend", BackendMemory, "ttl", cfg.SessionTTL)
		return memory.New(memory.WithTTL(cfg.SessionTTL)), nil

	case BackendBadger:
		s, err := NewBadgerStore(cfg.Badger, cfg.SessionTTL, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		if cfg.Cipher != nil {
			s.WithCipher(cfg.Cipher)
		}
		if cfg.Metrics != nil {
			s.RegisterMetrics(cfg.Metrics)
		}
		return s, nil

	case BackendRedis:
		s, err := redisstore.Open(ctx, cfg.Redis,
			redisstore.WithTTL(cfg.SessionTTL),
			redisstore.WithCipher(cfg.Cipher))
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		cfg.Logger.Info("session store opened", "backend", BackendRedis, "addr", cfg.Redis.Addr, "ttl", cfg.SessionTTL, "sealed", cfg.Cipher != nil)
		return s, nil

	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}
