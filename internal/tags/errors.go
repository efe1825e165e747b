package tags

import "fmt"

// ErrorCode classifies a reference-data integrity failure.
type ErrorCode string

const (
	ErrCodeSelfAlias           ErrorCode = "SELF_ALIAS"
	ErrCodeDuplicateAntecedent ErrorCode = "DUPLICATE_ANTECEDENT"
	ErrCodeAliasChain          ErrorCode = "ALIAS_CHAIN"
	ErrCodeMalformedRecord     ErrorCode = "MALFORMED_RECORD"
)

// LoadError reports reference data that cannot produce a valid snapshot.
// It is fatal: the data is static and will not correct itself.
type LoadError struct {
	Code    ErrorCode
	Source  string // file or stream name, if known
	Line    int    // 1-based, 0 if not line-specific
	Message string
}

func (e *LoadError) Error() string {
	switch {
	case e.Source != "" && e.Line > 0:
		return fmt.Sprintf("%s: %s:%d: %s", e.Code, e.Source, e.Line, e.Message)
	case e.Source != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Source, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("%s: line %d: %s", e.Code, e.Line, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func loadErrorf(code ErrorCode, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Message: fmt.Sprintf(format, args...)}
}
