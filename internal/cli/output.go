package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/tagstorm/internal/engine"
	"github.com/roach88/tagstorm/internal/search"
	"github.com/roach88/tagstorm/internal/store"
	"github.com/roach88/tagstorm/internal/tags"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Search or scenario failure (invalid query, failed scenarios, etc.)
	ExitCommandError = 2 // Command error (bad config, unreadable reference data, database not found, etc.)
)

// Error codes reported in CLI output.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeConfig        = "E002" // Config file missing or invalid
	ErrCodeTagData       = "E003" // Tag reference data invalid
	ErrCodeDatabase      = "E004" // Database could not be opened
	ErrCodeReadInput     = "E005" // Request or import file unreadable
	ErrCodeInvalidQuery  = "E006" // Request rejected by the compiler
	ErrCodeSearchFailed  = "E007" // Store or projection failure
	ErrCodeImportFailed  = "E008" // Import aborted
	ErrCodeNotFound      = "E009" // Tag or image does not exist or is inactive
	ErrCodeInvalidFormat = "E010" // Unsupported output format
	ErrCodeConflict      = "E011" // Write would duplicate existing state
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string    `json:"status"`             // "ok" or "error"
	Data    any       `json:"data,omitempty"`     // success payload
	Error   *CLIError `json:"error,omitempty"`    // error details
	QueryID string    `json:"query_id,omitempty"` // search correlation id
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports an error and returns the ExitError the command should
// return.
func (f *OutputFormatter) Fail(exitCode int, code, message string, err error) error {
	var details any
	if err != nil {
		details = err.Error()
	}
	_ = f.Error(code, message, details)
	return WrapExitError(exitCode, fmt.Sprintf("%s: %s", code, message), err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// failSearch reports a search failure with the code that matches it.
// Rejected requests exit 1; store failures are command errors.
func (f *OutputFormatter) failSearch(err error) error {
	if code := search.CodeOf(err); code != "" {
		return f.Fail(ExitFailure, ErrCodeInvalidQuery, string(code), err)
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return f.Fail(ExitCommandError, ErrCodeSearchFailed, string(re.Code), err)
	}
	return f.Fail(ExitCommandError, ErrCodeGeneric, "search failed", err)
}

// failTags reports unusable tag reference data.
func (f *OutputFormatter) failTags(err error) error {
	var le *tags.LoadError
	if errors.As(err, &le) {
		return f.Fail(ExitCommandError, ErrCodeTagData, string(le.Code), err)
	}
	return f.Fail(ExitCommandError, ErrCodeTagData, "failed to load tag reference data", err)
}

// failStore reports a failed store operation. Missing and conflicting
// entries exit 1; anything else is a database error.
func (f *OutputFormatter) failStore(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return f.Fail(ExitFailure, ErrCodeNotFound, op+": not found", err)
	case errors.Is(err, store.ErrConflict):
		return f.Fail(ExitFailure, ErrCodeConflict, op+": already done", err)
	default:
		return f.Fail(ExitCommandError, ErrCodeDatabase, op+" failed", err)
	}
}
