package types

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the marketplace API layer.
var (
	ErrNotFound           = errors.New("not found")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrOrderCancelled     = errors.New("order cancelled")
	ErrOrderFinalized     = errors.New("order already finalized")
	ErrMissingField       = errors.New("missing required field")
)

// ValidationError is a caller-input problem. It is never retried.
type ValidationError struct {
	Field   string // offending input, if known
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(field string, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// APIError is a non-2xx marketplace response that does not map to a sentinel.
type APIError struct {
	StatusCode int
	Body       string
	Path       string
}

func (e *APIError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("marketplace API %s failed (status %d): %s", e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("marketplace API failed (status %d): %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is a transient server-busy signal.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode == 503
}
