package database

import (
	"context"
	"fmt"
)

// Optimize runs SQLite's PRAGMA optimize to refresh planner stats.
func (m *Manager) Optimize(ctx context.Context) error {
	return m.WithConnection(ctx, "optimize", func(conn *Conn) error {
		if _, err := conn.ExecContext(ctx, "PRAGMA optimize"); err != nil {
			return fmt.Errorf("failed to optimize database: %w", err)
		}
		return nil
	})
}

// Vacuum rebuilds the database file to reclaim unused space. VACUUM cannot
// run inside a transaction.
func (m *Manager) Vacuum(ctx context.Context) error {
	return m.WithConnection(ctx, "vacuum", func(conn *Conn) error {
		if _, err := conn.ExecContext(ctx, "VACUUM"); err != nil {
			return fmt.Errorf("failed to vacuum database: %w", err)
		}
		return nil
	})
}

// Checkpoint truncates the write-ahead log back into the main database file.
func (m *Manager) Checkpoint(ctx context.Context) error {
	return m.WithConnection(ctx, "checkpoint", func(conn *Conn) error {
		if _, err := conn.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			return fmt.Errorf("failed to checkpoint WAL: %w", err)
		}
		return nil
	})
}

// IntegrityCheck runs PRAGMA integrity_check and returns an error describing
// the first reported problem, if any.
func (m *Manager) IntegrityCheck(ctx context.Context) error {
	return m.WithConnection(ctx, "integrity_check", func(conn *Conn) error {
		var result string
		if err := conn.QueryRowContext(ctx, "PRAGMA integrity_check(1)").Scan(&result); err != nil {
			return fmt.Errorf("failed to run integrity check: %w", err)
		}
		if result != "ok" {
			return fmt.Errorf("integrity check failed: %s", result)
		}
		return nil
	})
}
