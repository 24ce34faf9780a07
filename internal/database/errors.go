package database

import (
	"errors"
	"fmt"
)

// Sentinel errors for pool and transaction misuse. Callers distinguish them
// with errors.Is.
var (
	// ErrPoolExhausted is returned when no connection becomes idle within the
	// acquisition timeout. Callers should retry or surface backpressure.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrPoolClosed is returned when acquiring from a closed pool. This is a
	// use-after-teardown programming error and is never retried.
	ErrPoolClosed = errors.New("connection pool closed")

	// ErrSchemaInit wraps bootstrap script failures. Fatal at startup and not
	// retryable without operator intervention.
	ErrSchemaInit = errors.New("schema initialization failed")

	// ErrTransactionOpen is returned when a transaction is started on a
	// connection that already has one open. Indicates a caller bug.
	ErrTransactionOpen = errors.New("transaction already open on connection")
)

// QueryError wraps an underlying store error (constraint violation, syntax
// error, I/O error) with the fingerprint of the failed query. Not retried
// automatically since the cause is usually deterministic.
type QueryError struct {
	Fingerprint string
	Err         error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s failed: %v", e.Fingerprint, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
