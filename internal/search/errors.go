package search

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is the category every caller-input failure belongs to.
// Use errors.Is(err, ErrInvalidQuery) at the boundary.
var ErrInvalidQuery = errors.New("invalid query")

// ErrorCode classifies a CompileError.
type ErrorCode string

const (
	// ErrCodeInvalidRequest indicates the request could not be decoded.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrCodeEmptySelect indicates no columns were selected.
	ErrCodeEmptySelect ErrorCode = "EMPTY_SELECT"

	// ErrCodeAggregateMix indicates aggregate and row columns were mixed.
	ErrCodeAggregateMix ErrorCode = "AGGREGATE_MIX"

	// ErrCodeNegativeLimit indicates a limit below zero.
	ErrCodeNegativeLimit ErrorCode = "NEGATIVE_LIMIT"

	// ErrCodeDepthExceeded indicates an expression nested deeper than MaxDepth.
	ErrCodeDepthExceeded ErrorCode = "DEPTH_EXCEEDED"

	// ErrCodeInvalidLiteral indicates a value that does not parse as the
	// type its column requires.
	ErrCodeInvalidLiteral ErrorCode = "INVALID_LITERAL"
)

// CompileError reports a search request that cannot be turned into a query.
type CompileError struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is ErrInvalidQuery.
func (e *CompileError) Is(target error) bool {
	return target == ErrInvalidQuery
}

// Errorf creates a CompileError with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *CompileError {
	return &CompileError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the first CompileError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
