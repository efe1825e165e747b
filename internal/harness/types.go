package harness

import (
	"github.com/roach88/tagstorm/internal/project"
	"github.com/roach88/tagstorm/internal/search"
)

// StepResult is the outcome of one search step.
type StepResult struct {
	Name string `json:"name"`

	// Error is the error code when the search failed: a search compile
	// code or an engine runtime code.
	Error string `json:"error,omitempty"`

	// Message is the full error text. Not part of golden output.
	Message string `json:"-"`

	Columns []search.Column  `json:"-"`
	Records []project.Record `json:"records,omitempty"`
}

// Failed reports whether the search returned an error.
func (s StepResult) Failed() bool {
	return s.Error != ""
}

// IDs returns the id column of every record, or false if id was not
// selected.
func (s StepResult) IDs() ([]int64, bool) {
	ids := make([]int64, 0, len(s.Records))
	for _, r := range s.Records {
		v, ok := r.Get(search.ColumnID)
		if !ok {
			return nil, false
		}
		id, ok := v.(int64)
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Steps holds one entry per search, in scenario order.
	Steps []StepResult `json:"steps"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep records the outcome of a search.
func (r *Result) AddStep(step StepResult) {
	r.Steps = append(r.Steps, step)
}

// Step returns the result of the named search.
func (r *Result) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepResult{}, false
}
