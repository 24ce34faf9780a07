package config

import (
	"fmt"
	"time"
)

// Pool size bounds. SQLite serializes writes, so very large pools only add
// lock contention.
const (
	MinPoolSize = 1
	MaxPoolSize = 20
)

// SynchronousNormal and friends are the accepted values for Config.Synchronous.
const (
	SynchronousOff    = "OFF"
	SynchronousNormal = "NORMAL"
	SynchronousFull   = "FULL"
)

// Config holds all storage-layer settings. It is constructed explicitly (from
// flags and environment in cmd), validated once, and passed by value; there is
// no process-wide settings instance.
type Config struct {
	// DatabasePath is the SQLite database file.
	DatabasePath string

	// PoolSize is the fixed number of pooled connections, MinPoolSize..MaxPoolSize.
	PoolSize int

	// AcquireTimeout bounds how long a caller waits for an idle connection.
	AcquireTimeout time.Duration

	// EnableWAL turns on write-ahead logging. Required for concurrent readers
	// during writes; only disabled in tests that exercise rollback journal mode.
	EnableWAL bool

	// BusyTimeout is the SQLite busy handler timeout.
	BusyTimeout time.Duration

	// CacheSizeKB bounds the per-connection page cache.
	CacheSizeKB int

	// Synchronous is the durability mode: OFF, NORMAL or FULL.
	Synchronous string

	// FullTextSearch controls whether validation requires the FTS artifact.
	FullTextSearch bool

	// ExplainQueries enables the query-plan inspection pass in the monitor.
	ExplainQueries bool

	// OptimizeSchedule and CheckpointSchedule are cron expressions for the
	// maintenance runner. Empty disables the job.
	OptimizeSchedule   string
	CheckpointSchedule string
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		DatabasePath:       "./data/literature.db",
		PoolSize:           5,
		AcquireTimeout:     5 * time.Second,
		EnableWAL:          true,
		BusyTimeout:        5 * time.Second,
		CacheSizeKB:        64000,
		Synchronous:        SynchronousNormal,
		FullTextSearch:     true,
		ExplainQueries:     false,
		OptimizeSchedule:   "0 3 * * *",
		CheckpointSchedule: "@hourly",
	}
}

// Validate checks every field against its documented range.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.PoolSize < MinPoolSize || c.PoolSize > MaxPoolSize {
		return fmt.Errorf("pool size %d out of range %d-%d", c.PoolSize, MinPoolSize, MaxPoolSize)
	}
	if c.AcquireTimeout <= 0 {
		return fmt.Errorf("acquire timeout must be positive, got %s", c.AcquireTimeout)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("busy timeout must not be negative, got %s", c.BusyTimeout)
	}
	if c.CacheSizeKB <= 0 {
		return fmt.Errorf("cache size must be positive, got %d KB", c.CacheSizeKB)
	}
	switch c.Synchronous {
	case SynchronousOff, SynchronousNormal, SynchronousFull:
	default:
		return fmt.Errorf("invalid synchronous mode %q", c.Synchronous)
	}
	return nil
}
