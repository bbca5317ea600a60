package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/core/service"
	"github.com/testwebinoue-debug/sept3/pkg/crypto/adaptive"
)

// Common errors
var (
	ErrClosed      = errors.New("session store closed")
	ErrTxnConflict = errors.New("session update conflicted too many times")
)

const (
	sessionKeyPrefix = "sess:"

	// maxTxnRetries bounds how often Update re-runs after a write conflict.
	maxTxnRetries = 16
)

// record is the stored form of a session. ExpiresAt is checked on read so
// that an overridden clock sees the same expiry the entry TTL enforces.
type record struct {
	State     *domain.SessionState `json:"state"`
	ExpiresAt int64                `json:"expires_at"`
}

// BadgerStore implements service.SessionStore on Badger v3.
type BadgerStore struct {
	db     *badger.DB
	cfg    BadgerConfig
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
	cipher adaptive.Cipher

	lastGCTime atomic.Int64 // Unix milliseconds
	gcRuns     atomic.Uint64

	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsTotalSize    prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge
	metricsGCRuns       prometheus.Counter

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewBadgerStore opens a Badger database and starts its GC loop.
// ttl is the idle lifetime of a session; zero uses DefaultSessionTTL.
func NewBadgerStore(cfg BadgerConfig, ttl time.Duration, logger *slog.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}
	if cfg.NumMemtables > 0 {
		opts.NumMemtables = cfg.NumMemtables
	}
	if cfg.NumLevelZeroTables > 0 {
		opts.NumLevelZeroTables = cfg.NumLevelZeroTables
	}
	if cfg.NumLevelZeroTablesStall > 0 {
		opts.NumLevelZeroTablesStall = cfg.NumLevelZeroTablesStall
	}
	opts.SyncWrites = cfg.SyncWrites
	// Update relies on conflict detection for per-session atomicity.
	opts.DetectConflicts = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		cfg:    cfg,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go s.gcLoop()

	logger.Info("badger session store started",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"ttl", ttl,
		"gc_interval", cfg.GCInterval)

	return s, nil
}

// WithClock overrides the time source used for expiry checks.
func (s *BadgerStore) WithClock(now func() time.Time) *BadgerStore {
	s.now = now
	return s
}

// WithCipher seals stored records with c. Records that fail to open, such
// as ones written before a key change, read as absent.
func (s *BadgerStore) WithCipher(c adaptive.Cipher) *BadgerStore {
	s.cipher = c
	return s
}

// Load returns the session state, or nil when absent or expired.
func (s *BadgerStore) Load(ctx context.Context, id string) (*domain.SessionState, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var state *domain.SessionState
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		state, err = s.get(txn, id, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Update runs fn inside a read-write transaction and commits the result.
// A transaction that loses a conflict is retried with fresh state.
func (s *BadgerStore) Update(ctx context.Context, id string, fn func(*domain.SessionState) error) error {
	if s.closed.Load() {
		return ErrClosed
	}

	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.db.Update(func(txn *badger.Txn) error {
			now := s.now()
			cur, err := s.get(txn, id, now)
			if err != nil {
				return err
			}
			if cur == nil {
				cur = domain.NewSessionState(now)
			}
			if err := fn(cur); err != nil {
				return err
			}
			return s.put(txn, id, cur, now)
		})

		switch {
		case errors.Is(err, badger.ErrConflict):
			s.logger.Debug("session update conflict, retrying", "attempt", attempt+1)
			continue
		case errors.Is(err, service.ErrSkipSave):
			return nil
		default:
			return err
		}
	}
	return ErrTxnConflict
}

// Delete removes a session.
func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(id))
	})
}

// Rename moves the state of oldID to newID in one transaction.
func (s *BadgerStore) Rename(ctx context.Context, oldID, newID string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if oldID == newID {
		return nil
	}

	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		err := s.db.Update(func(txn *badger.Txn) error {
			now := s.now()
			cur, err := s.get(txn, oldID, now)
			if err != nil {
				return err
			}
			if cur == nil {
				cur = domain.NewSessionState(now)
			}
			if err := txn.Delete(sessionKey(oldID)); err != nil {
				return err
			}
			return s.put(txn, newID, cur, now)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
	return ErrTxnConflict
}

// Ping reports whether the database is open.
func (s *BadgerStore) Ping(context.Context) error {
	if s.closed.Load() || s.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

func (s *BadgerStore) get(txn *badger.Txn, id string, now time.Time) (*domain.SessionState, error) {
	item, err := txn.Get(sessionKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var (
		rec        record
		unreadable bool
	)
	err = item.Value(func(val []byte) error {
		raw, err := adaptive.Open(s.cipher, val, sessionKey(id))
		if err != nil {
			unreadable = true
			return nil
		}
		return json.Unmarshal(raw, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("badger: decode session: %w", err)
	}
	if unreadable {
		s.logger.Warn("session record could not be opened, treating as absent")
		return nil, nil
	}
	if rec.State == nil || now.UnixMilli() >= rec.ExpiresAt {
		return nil, nil
	}
	return rec.State, nil
}

func (s *BadgerStore) put(txn *badger.Txn, id string, state *domain.SessionState, now time.Time) error {
	state.Touch(now)
	val, err := json.Marshal(record{State: state, ExpiresAt: now.Add(s.ttl).UnixMilli()})
	if err != nil {
		return fmt.Errorf("badger: encode session: %w", err)
	}
	if val, err = adaptive.Seal(s.cipher, val, sessionKey(id)); err != nil {
		return fmt.Errorf("badger: seal session: %w", err)
	}
	return txn.SetEntry(badger.NewEntry(sessionKey(id), val).WithTTL(s.ttl))
}

func sessionKey(id string) []byte {
	return []byte(sessionKeyPrefix + id)
}

// GC runs value log garbage collection until nothing is left to rewrite.
// Returns the number of rewritten value log files.
func (s *BadgerStore) GC(ctx context.Context) (uint64, error) {
	startTime := time.Now()

	var runs uint64
	for {
		if err := ctx.Err(); err != nil {
			return runs, err
		}
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) ||
				errors.Is(err, badger.ErrRejected) ||
				errors.Is(err, badger.ErrGCInMemoryMode) {
				break
			}
			return runs, fmt.Errorf("gc: %w", err)
		}
		runs++
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.gcRuns.Add(runs)
	if s.metricsGCRuns != nil {
		s.metricsGCRuns.Add(float64(runs))
	}

	s.logger.Debug("gc completed",
		"rewritten_files", runs,
		"elapsed", time.Since(startTime))

	return runs, nil
}

// Stats returns storage statistics.
func (s *BadgerStore) Stats(ctx context.Context) (*KVStats, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	lsm, vlog := s.db.Size()

	return &KVStats{
		TotalSize:    uint64(lsm + vlog),
		LSMSize:      uint64(lsm),
		ValueLogSize: uint64(vlog),
		LastGCTime:   s.lastGCTime.Load(),
		GCRuns:       s.gcRuns.Load(),
	}, nil
}

// Close stops background loops and closes the database.
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Info("shutting down badger session store")
		s.closed.Store(true)

		close(s.stopCh)
		<-s.doneCh

		if cerr := s.db.Close(); cerr != nil {
			err = fmt.Errorf("close db: %w", cerr)
		}
	})
	return err
}

// RegisterMetrics registers Badger size gauges with Prometheus.
//
// This should be called once during initialization.
func (s *BadgerStore) RegisterMetrics(registry *prometheus.Registry) *BadgerStore {
	s.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sept3",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})

	s.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sept3",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})

	s.metricsTotalSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sept3",
		Subsystem: "badger",
		Name:      "total_size_bytes",
		Help:      "Badger total storage size in bytes (LSM + value log)",
	})

	s.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sept3",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})

	s.metricsGCRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sept3",
		Subsystem: "badger",
		Name:      "gc_rewrites_total",
		Help:      "Value log files rewritten by Badger garbage collection",
	})

	registry.MustRegister(
		s.metricsLSMSize,
		s.metricsValueLogSize,
		s.metricsTotalSize,
		s.metricsLastGCTime,
		s.metricsGCRuns,
	)

	s.updateMetrics()
	go s.metricsUpdateLoop()

	return s
}

func (s *BadgerStore) updateMetrics() {
	stats, err := s.Stats(context.Background())
	if err != nil {
		return
	}

	s.metricsLSMSize.Set(float64(stats.LSMSize))
	s.metricsValueLogSize.Set(float64(stats.ValueLogSize))
	s.metricsTotalSize.Set(float64(stats.TotalSize))
	if stats.LastGCTime > 0 {
		s.metricsLastGCTime.Set(float64(stats.LastGCTime) / 1000.0)
	}
}

// metricsUpdateLoop periodically updates Prometheus gauges.
func (s *BadgerStore) metricsUpdateLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateMetrics()
		case <-s.stopCh:
			return
		}
	}
}

// gcLoop runs periodic garbage collection.
func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	interval, err := time.ParseDuration(s.cfg.GCInterval)
	if err != nil || interval <= 0 {
		s.logger.Warn("invalid gc_interval, using default 10m", "value", s.cfg.GCInterval)
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := s.GC(ctx); err != nil {
				s.logger.Error("auto gc failed", "error", err)
			}
			cancel()

		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

var _ service.SessionStore = (*BadgerStore)(nil)
