package governor

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Submit after Close, and is the error queued
// items are rejected with when the governor shuts down.
var ErrClosed = errors.New("governor is closed")

// AdmissionError represents a submission that can never be admitted: its
// token estimate (or the request itself) exceeds a configured ceiling
// outright, so waiting for window capacity cannot help. It is surfaced
// synchronously by Submit and never retried.
type AdmissionError struct {
	// Reason explains the rejection.
	Reason string

	// Tier names the violated window ("minute", "hour", or "day").
	Tier string

	// Estimate is the submitted token estimate.
	Estimate int

	// Limit is the ceiling the estimate cannot fit under.
	Limit int
}

// Error implements the error interface.
func (e *AdmissionError) Error() string {
	return fmt.Sprintf("admission rejected: %s", e.Reason)
}

// ThrottleExhaustedError represents a work unit that was throttled by the
// provider on every attempt. It wraps the last provider error.
type ThrottleExhaustedError struct {
	// Attempts is the total number of attempts made (initial call plus
	// retries).
	Attempts int

	// Err is the provider error from the final attempt.
	Err error
}

// Error implements the error interface.
func (e *ThrottleExhaustedError) Error() string {
	return fmt.Sprintf("throttled on all %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the underlying provider error for error chain support.
func (e *ThrottleExhaustedError) Unwrap() error {
	return e.Err
}
