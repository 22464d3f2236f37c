package errors

import "fmt"

// StreamLimitExceededError is returned by admission control when a tenant has
// reached its concurrent-stream quota. It carries the observed counts so the
// caller can report them back without a second lookup. Callers may retry once
// a slot frees (for example after stopping or pausing another stream).
type StreamLimitExceededError struct {
	TenantID     string
	CurrentCount int
	MaxCount     int
}

// Error implements the error interface
func (e *StreamLimitExceededError) Error() string {
	return fmt.Sprintf("tenant %s at stream limit: %d of %d active", e.TenantID, e.CurrentCount, e.MaxCount)
}

// Is reports quota-class identity so errors.Is(err, ErrQuotaExceeded) matches
func (e *StreamLimitExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// InvalidStreamStateError is returned when a lifecycle operation is attempted
// from a state that has no edge for it (pause on a STOPPED stream, resume on
// an ACTIVE stream). It signals a caller-side logic bug, not a retryable
// condition, and must never be swallowed.
type InvalidStreamStateError struct {
	StreamID  string
	State     string
	Operation string
}

// Error implements the error interface
func (e *InvalidStreamStateError) Error() string {
	return fmt.Sprintf("cannot %s stream %s in state %s", e.Operation, e.StreamID, e.State)
}
