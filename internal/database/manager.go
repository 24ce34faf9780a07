package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/scilit/paperbase/internal/config"
)

// Manager is the approved entrypoint for storage access. Callers obtain
// connections and transactions exclusively through its scoped operations;
// raw connections never leave a scope.
type Manager struct {
	cfg  config.Config
	db   *sql.DB
	pool *Pool
}

// New opens the database file and builds the connection pool. The
// configuration is validated and then immutable for the manager's lifetime.
func New(ctx context.Context, cfg config.Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The pool below is the real arbiter; cap the driver to the same bound.
	db.SetMaxOpenConns(cfg.PoolSize)
	db.SetMaxIdleConns(cfg.PoolSize)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool, err := NewPool(ctx, db, cfg.PoolSize, cfg.AcquireTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Debug().
		Str("path", cfg.DatabasePath).
		Int("pool_size", cfg.PoolSize).
		Bool("wal", cfg.EnableWAL).
		Msg("Database connection established")

	return &Manager{cfg: cfg, db: db, pool: pool}, nil
}

// dsn builds the modernc.org/sqlite DSN. Pragmas in the DSN apply to every
// pooled connection, not just the first one opened.
func dsn(cfg config.Config) string {
	pragmas := []string{
		fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()),
		"foreign_keys(1)",
		fmt.Sprintf("synchronous(%s)", cfg.Synchronous),
		fmt.Sprintf("cache_size(-%d)", cfg.CacheSizeKB),
	}
	if cfg.EnableWAL {
		pragmas = append(pragmas, "journal_mode(WAL)")
	}

	var b strings.Builder
	b.WriteString("file:")
	b.WriteString(cfg.DatabasePath)
	sep := "?"
	for _, p := range pragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(url.QueryEscape(p))
		sep = "&"
	}
	return b.String()
}

// Config returns the manager's immutable configuration.
func (m *Manager) Config() config.Config {
	return m.cfg
}

// Initialize runs the idempotent bootstrap: verifies the journal mode and
// executes the schema script (a schema.sql next to the database file wins
// over the embedded default). Failures wrap ErrSchemaInit and are fatal.
func (m *Manager) Initialize(ctx context.Context) error {
	script, source, err := m.loadSchemaScript()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaInit, err)
	}

	statements := splitSQLStatements(script)
	if len(statements) == 0 {
		return fmt.Errorf("%w: schema script %s contains no statements", ErrSchemaInit, source)
	}

	err = m.WithConnection(ctx, "initialize", func(conn *Conn) error {
		if m.cfg.EnableWAL {
			var mode string
			if err := conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
				return fmt.Errorf("failed to read journal mode: %w", err)
			}
			if !strings.EqualFold(mode, "wal") {
				return fmt.Errorf("journal mode is %q, expected wal", mode)
			}
		}

		for i, stmt := range statements {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("schema statement %d failed: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaInit, err)
	}

	log.Info().Str("schema_source", source).Msg("Database schema initialized")
	return nil
}

func (m *Manager) loadSchemaScript() (script, source string, err error) {
	path := filepath.Join(filepath.Dir(m.cfg.DatabasePath), SchemaScriptName)
	data, err := os.ReadFile(path)
	if err == nil {
		return string(data), path, nil
	}
	if !os.IsNotExist(err) {
		return "", "", fmt.Errorf("failed to read schema script %s: %w", path, err)
	}
	return defaultSchema, "embedded", nil
}

// SchemaScriptPath returns the override location checked by Initialize.
func (m *Manager) SchemaScriptPath() string {
	return filepath.Join(filepath.Dir(m.cfg.DatabasePath), SchemaScriptName)
}

// WithConnection acquires a connection, runs fn, and releases the connection
// on every exit path. Any transaction left open by a failing fn is rolled
// back before release, and the original error is returned to the caller.
func (m *Manager) WithConnection(ctx context.Context, op string, fn func(conn *Conn) error) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("operation %s: %w", op, err)
	}
	defer m.pool.Release(conn)

	if err := fn(conn); err != nil {
		if conn.InTransaction() {
			if rbErr := conn.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Str("op", op).Msg("Failed to rollback after error")
			}
		}
		log.Error().Err(err).Str("op", op).Msg("Database operation failed")
		return err
	}
	return nil
}

// WithTransaction runs fn inside a transaction on one scoped connection:
// BEGIN before fn, COMMIT on success, ROLLBACK on any error. It never
// partially commits, and nesting is rejected with ErrTransactionOpen.
func (m *Manager) WithTransaction(ctx context.Context, op string, fn func(conn *Conn) error) error {
	return m.WithConnection(ctx, op, func(conn *Conn) error {
		if err := conn.Begin(ctx); err != nil {
			return err
		}

		if err := fn(conn); err != nil {
			if rbErr := conn.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Str("op", op).Msg("Failed to rollback transaction")
			}
			log.Error().Err(err).Str("op", op).Msg("Transaction rolled back")
			return err
		}

		if err := conn.Commit(); err != nil {
			return err
		}
		return nil
	})
}

// Ping verifies the database file is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	return m.WithConnection(ctx, "ping", func(conn *Conn) error {
		var one int
		return conn.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	})
}

// Close tears down the pool and the underlying database handle.
func (m *Manager) Close() error {
	poolErr := m.pool.Close()
	dbErr := m.db.Close()
	if poolErr != nil {
		return poolErr
	}
	return dbErr
}
