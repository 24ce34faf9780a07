package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Pool is a fixed-size pool of reusable connections to one database file.
// Slots are handed out through Acquire and reclaimed through Release; at most
// size connections exist at any time.
type Pool struct {
	db      *sql.DB
	size    int
	timeout time.Duration

	// idle holds tokens for every slot not currently checked out. A nil token
	// marks a vacancy left by a discarded connection; the replacement is
	// created lazily by the next Acquire.
	idle chan *Conn

	mu     sync.Mutex
	closed bool
}

// NewPool pre-creates size connections against db. The acquisition timeout
// bounds how long Acquire waits for an idle slot.
func NewPool(ctx context.Context, db *sql.DB, size int, timeout time.Duration) (*Pool, error) {
	p := &Pool{
		db:      db,
		size:    size,
		timeout: timeout,
		idle:    make(chan *Conn, size),
	}

	for i := 0; i < size; i++ {
		conn, err := newConn(ctx, db)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("failed to populate pool slot %d: %w", i, err)
		}
		p.idle <- conn
	}

	log.Debug().Int("size", size).Dur("acquire_timeout", timeout).Msg("Connection pool ready")
	return p, nil
}

// Acquire checks out an idle connection, blocking until a slot frees or the
// pool's timeout elapses, in which case it fails with ErrPoolExhausted.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case conn := <-p.idle:
		if conn == nil {
			// Vacancy from a discarded connection: create the replacement now.
			fresh, err := newConn(ctx, p.db)
			if err != nil {
				// Keep the slot open for a later attempt.
				p.idle <- nil
				return nil, err
			}
			return fresh, nil
		}
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("%w: no idle connection within %s", ErrPoolExhausted, p.timeout)
	}
}

// Release returns a checked-out connection to the pool. A connection with a
// pending transaction is rolled back before reuse; an unhealthy connection is
// discarded and its slot refilled lazily on the next Acquire.
func (p *Pool) Release(conn *Conn) {
	if conn == nil {
		return
	}

	if conn.InTransaction() {
		log.Warn().Msg("Connection released mid-transaction; rolling back")
		if err := conn.Rollback(); err != nil {
			log.Error().Err(err).Msg("Failed to rollback before release")
		}
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		_ = conn.close()
		return
	}

	if !conn.healthy() {
		log.Debug().Msg("Discarding unhealthy connection")
		_ = conn.close()
		p.idle <- nil
		return
	}

	p.idle <- conn
}

// Close drains and closes every connection. Subsequent Acquire calls fail
// with ErrPoolClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var firstErr error
	for {
		select {
		case conn := <-p.idle:
			if conn == nil {
				continue
			}
			if err := conn.close(); err != nil && firstErr == nil {
				firstErr = err
			}
		default:
			return firstErr
		}
	}
}

// Size returns the fixed number of slots in the pool.
func (p *Pool) Size() int {
	return p.size
}
