package project

import (
	"errors"
	"fmt"

	"github.com/roach88/tagstorm/internal/search"
)

// ErrMalformedRow is matched by every ProjectionError.
var ErrMalformedRow = errors.New("malformed storage row")

// ProjectionError reports a storage row that does not have the shape the
// compiled statement promised. It signals a schema mismatch, not bad input.
type ProjectionError struct {
	Column  search.Column
	Message string
}

func (e *ProjectionError) Error() string {
	if e.Column == 0 {
		return "projection: " + e.Message
	}
	return fmt.Sprintf("projection: column %s: %s", e.Column, e.Message)
}

// Is reports whether target is ErrMalformedRow.
func (e *ProjectionError) Is(target error) bool {
	return target == ErrMalformedRow
}

func malformed(col search.Column, format string, args ...any) *ProjectionError {
	return &ProjectionError{Column: col, Message: fmt.Sprintf(format, args...)}
}
