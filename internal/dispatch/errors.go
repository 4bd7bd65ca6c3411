package dispatch

import (
	"errors"
	"fmt"
)

// Common dispatch errors.
var (
	// ErrCircuitOpen indicates that the dispatch circuit breaker rejected
	// the call.
	ErrCircuitOpen = errors.New("authorization dispatch circuit open")

	// ErrDispatcherClosed indicates that the dispatcher has been closed.
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

// DispatchError wraps a dispatch failure with the target it was issued
// against.
type DispatchError struct {
	// Target is the logical cluster name of the authorization backend.
	Target string

	// Err is the underlying error.
	Err error
}

// Error returns the error message.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to %s failed: %v", e.Target, e.Err)
}

// Unwrap returns the underlying error.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// IsDispatchError checks if an error originated from a failed dispatch.
func IsDispatchError(err error) bool {
	var de *DispatchError
	return errors.As(err, &de) || errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrDispatcherClosed)
}
