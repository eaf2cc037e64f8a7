package storage

import "errors"

// Storage errors shared by all implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Positions and audit records are
	// write-once; a duplicate insert means the outcome was already
	// recorded by an earlier attempt.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable is returned by the breaker wrapper while the
	// underlying store is tripped. Callers treat it as "no data".
	ErrUnavailable = errors.New("store unavailable")
)
