package storage

// KVStats is a point-in-time view of the Badger files backing the
// session store.
type KVStats struct {
	TotalSize    uint64
	LSMSize      uint64
	ValueLogSize uint64

	// LastGCTime is Unix milliseconds; zero until the first GC pass.
	LastGCTime int64
	GCRuns     uint64
}

// BadgerConfig tunes the embedded session store. Zero values fall back to
// Badger's own defaults.
type BadgerConfig struct {
	// Dir is required unless InMemory is set.
	Dir      string
	InMemory bool

	// GCInterval is a time.ParseDuration string, e.g. "10m".
	GCInterval string
	// GCThreshold is the stale fraction at which a value log file is
	// rewritten.
	GCThreshold float64

	CacheSize               int64
	ValueLogFileSize        int64
	NumMemtables            int
	NumLevelZeroTables      int
	NumLevelZeroTablesStall int

	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// DefaultBadgerConfig returns the session-sized defaults rooted at dir.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:                     dir,
		GCInterval:              "10m",
		GCThreshold:             0.5,
		CacheSize:               8 << 20,
		ValueLogFileSize:        16 << 20,
		NumMemtables:            2,
		NumLevelZeroTables:      4,
		NumLevelZeroTablesStall: 8,
	}
}
