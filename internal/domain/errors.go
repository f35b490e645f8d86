package domain

import "errors"

var (
	// ErrValidation wraps all request/row validation failures.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a looked-up entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation conflicts with current state.
	ErrConflict = errors.New("conflict")

	// ErrEmptyBatch is returned when an execute is requested with no valid rows.
	ErrEmptyBatch = errors.New("batch has no valid rows")

	// ErrBatchInFlight is returned when an execute is requested while another
	// batch is still submitting or awaiting confirmation.
	ErrBatchInFlight = errors.New("another batch is in flight")

	// ErrCorruptedStorage is returned when persisted state is unparsable or
	// contains structurally invalid addresses.
	ErrCorruptedStorage = errors.New("corrupted storage")
)
