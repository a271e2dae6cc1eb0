package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine errors and item failures.
type ErrorCode string

const (
	// ErrCodeReadFailed indicates a store-wide or per-entity read failed.
	ErrCodeReadFailed ErrorCode = "READ_FAILED"

	// ErrCodeClearFailed indicates the destructive clear of the graph store failed.
	ErrCodeClearFailed ErrorCode = "CLEAR_FAILED"

	// ErrCodeWriteFailed indicates a graph store write failed.
	ErrCodeWriteFailed ErrorCode = "WRITE_FAILED"

	// ErrCodeProjectFailed indicates a record could not be projected.
	ErrCodeProjectFailed ErrorCode = "PROJECT_FAILED"

	// ErrCodeStale indicates a divergence no longer matches the primary store.
	ErrCodeStale ErrorCode = "STALE_DIVERGENCE"
)

// SyncError is returned when an operation aborts.
type SyncError struct {
	Code ErrorCode

	// Op is the operation that failed.
	Op Operation

	// ItemID identifies the offending user or edge, if any.
	ItemID string

	Err error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("%s: %s (item=%s): %v", e.Code, e.Op, e.ItemID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not a
// SyncError. Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func newSyncError(code ErrorCode, op Operation, itemID string, err error) *SyncError {
	return &SyncError{Code: code, Op: op, ItemID: itemID, Err: err}
}
