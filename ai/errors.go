package ai

import (
	"errors"
	"fmt"
)

// ErrBackend is the sentinel wrapped by every BackendError.
var ErrBackend = errors.New("embedding backend error")

// ErrInvalidMaxAttempts is returned for a non-positive retry budget.
var ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

// BackendError reports a failure of the external embedding service
// (quota, auth, timeout). It is considered transient and retryable.
type BackendError struct {
	Cause error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("embedding backend error: %v", e.Cause)
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// Is matches BackendError against the ErrBackend sentinel.
func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

// NewBackendError wraps cause as a retryable backend failure.
func NewBackendError(cause error) error {
	if cause == nil {
		return nil
	}
	return &BackendError{Cause: cause}
}

// IsBackendError reports whether err originated from the embedding backend.
func IsBackendError(err error) bool {
	return errors.Is(err, ErrBackend)
}
