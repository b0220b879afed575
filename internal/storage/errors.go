package storage

import "errors"

// Store errors. Settlement inputs are finalized on-chain event logs, so every
// store is append-only: a key collision is a rejected write, never an update.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert collides with an already
	// stored event or settled row. History is never rewritten.
	ErrDuplicateKey = errors.New("duplicate key: event log is append-only")

	// ErrInvalidInput is returned when a record fails validation before
	// insert (nil record, nil amount, empty epoch id).
	ErrInvalidInput = errors.New("invalid input")
)
