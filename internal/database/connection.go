package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Conn is a pooled connection to the database file. A Conn is owned by exactly
// one holder at a time: either an idle pool slot or the caller that acquired
// it. Statements issued while a transaction is open are routed through that
// transaction.
type Conn struct {
	conn   *sql.Conn
	tx     *sql.Tx
	broken bool
}

func newConn(ctx context.Context, db *sql.DB) (*Conn, error) {
	sc, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	return &Conn{conn: sc}, nil
}

// ExecContext executes a statement, inside the open transaction if one exists.
func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if c.tx != nil {
		return c.tx.ExecContext(ctx, query, args...)
	}
	return c.conn.ExecContext(ctx, query, args...)
}

// QueryContext executes a query, inside the open transaction if one exists.
func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if c.tx != nil {
		return c.tx.QueryContext(ctx, query, args...)
	}
	return c.conn.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a single-row query, inside the open transaction if
// one exists.
func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	if c.tx != nil {
		return c.tx.QueryRowContext(ctx, query, args...)
	}
	return c.conn.QueryRowContext(ctx, query, args...)
}

// Begin opens a transaction on this connection. A connection has at most one
// open transaction at a time; a second Begin fails with ErrTransactionOpen.
func (c *Conn) Begin(ctx context.Context) error {
	if c.tx != nil {
		return ErrTransactionOpen
	}
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	c.tx = tx
	return nil
}

// Commit commits the open transaction.
func (c *Conn) Commit() error {
	if c.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := c.tx.Commit()
	c.tx = nil
	if err != nil {
		c.broken = true
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback aborts the open transaction. Rolling back with no open transaction
// is a no-op so cleanup paths can call it unconditionally.
func (c *Conn) Rollback() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	if err != nil && err != sql.ErrTxDone {
		c.broken = true
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// InTransaction reports whether a transaction is open on this connection.
func (c *Conn) InTransaction() bool {
	return c.tx != nil
}

// MarkBroken flags the connection so the pool discards it instead of reusing
// it. Used after fatal driver errors.
func (c *Conn) MarkBroken() {
	c.broken = true
}

func (c *Conn) healthy() bool {
	return !c.broken
}

func (c *Conn) close() error {
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}
	return c.conn.Close()
}
