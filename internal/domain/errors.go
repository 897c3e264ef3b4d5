package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates input that violates a core invariant.
	ErrValidation = errors.New("validation error")
	// ErrInvalidTime indicates a timestamp outside the allowed range.
	ErrInvalidTime = fmt.Errorf("%w: invalid time", ErrValidation)
	// ErrNotFound indicates a missing frame, timesheet, or current slot.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyStarted indicates a start attempt while a frame is running.
	ErrAlreadyStarted = errors.New("a frame is already started")
	// ErrNotStarted indicates a stop or cancel attempt with no running frame.
	ErrNotStarted = errors.New("no frame started")
	// ErrCurrentFrameMismatch indicates the current slot already holds a
	// different frame.
	ErrCurrentFrameMismatch = errors.New("a different frame already occupies the current slot")
	// ErrNoDefaultRole indicates role resolution failed: the caller supplied
	// none and no default role is configured.
	ErrNoDefaultRole = errors.New("no role given and no default role configured")
)

// SyncError reports a Zebra gateway transport or protocol failure. The sync
// engine never retries; retry policy belongs to the caller.
type SyncError struct {
	Op     string // gateway operation, e.g. "create", "fetch all"
	Status int    // HTTP status, 0 when the request never completed
	Err    error
}

func (e *SyncError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("zebra %s failed with status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("zebra %s failed: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// IsRemoteNotFound reports whether err is a gateway 404 for a single record,
// as opposed to any other transport failure.
func IsRemoteNotFound(err error) bool {
	var syncErr *SyncError
	return errors.As(err, &syncErr) && syncErr.Status == 404
}
