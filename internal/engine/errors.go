package engine

import (
	"errors"
	"fmt"
)

// RuntimeErrorCode categorizes failures that happen after a request
// compiled successfully.
type RuntimeErrorCode string

const (
	// ErrCodeQueryFailed indicates the store rejected or aborted the query.
	ErrCodeQueryFailed RuntimeErrorCode = "QUERY_FAILED"

	// ErrCodeProjectionFailed indicates a returned row did not have the
	// shape the compiled statement promised.
	ErrCodeProjectionFailed RuntimeErrorCode = "PROJECTION_FAILED"
)

// RuntimeError represents a search failure outside the caller's control.
type RuntimeError struct {
	Code    RuntimeErrorCode
	QueryID string
	Err     error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.QueryID != "" {
		return fmt.Sprintf("%s: %v (query=%s)", e.Code, e.Err, e.QueryID)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsProjectionError returns true if err is a projection failure.
// Uses errors.As to handle wrapped errors.
func IsProjectionError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeProjectionFailed
	}
	return false
}
