package harness

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/roach88/tagstorm/internal/tags"
)

// AssertionError is returned when an assertion or expect clause fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Subject  string // Search step or tag the check ran against
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Subject != "" {
		fmt.Fprintf(&buf, " (%s)", e.Subject)
	}
	buf.WriteByte('\n')

	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	return buf.String()
}

// checkExpect compares a search outcome with the step's expect clause.
// A step without a clause only has to succeed.
func checkExpect(step SearchStep, sr StepResult) error {
	expect := step.Expect
	if expect == nil {
		expect = &ExpectClause{}
	}

	if expect.Error != "" {
		if sr.Error != expect.Error {
			return &AssertionError{
				Type:     "search_error",
				Subject:  step.Name,
				Expected: expect.Error,
				Actual:   describe(sr),
			}
		}
		return nil
	}

	if sr.Failed() {
		return &AssertionError{
			Type:     "search_success",
			Subject:  step.Name,
			Expected: "search succeeds",
			Actual:   describe(sr),
		}
	}

	if expect.Count != nil && len(sr.Records) != *expect.Count {
		return &AssertionError{
			Type:     "search_count",
			Subject:  step.Name,
			Expected: fmt.Sprintf("%d records", *expect.Count),
			Actual:   fmt.Sprintf("%d records", len(sr.Records)),
		}
	}

	if expect.IDs != nil {
		ids, ok := sr.IDs()
		if !ok {
			return &AssertionError{
				Type:     "search_ids",
				Subject:  step.Name,
				Expected: fmt.Sprintf("ids %v", expect.IDs),
				Actual:   "id column not selected",
			}
		}
		if !cmp.Equal(expect.IDs, ids, cmpopts.EquateEmpty()) {
			return &AssertionError{
				Type:     "search_ids",
				Subject:  step.Name,
				Expected: fmt.Sprintf("ids %v", expect.IDs),
				Actual:   fmt.Sprintf("ids %v", ids),
			}
		}
	}

	return nil
}

func describe(sr StepResult) string {
	if sr.Failed() {
		return sr.Message
	}
	return fmt.Sprintf("success with %d records", len(sr.Records))
}

// EvaluateAssertions checks every assertion against m and returns one
// message per failure.
func EvaluateAssertions(m *tags.Mappings, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCanonical:
			err = assertCanonical(m, assertion)
		case AssertImplied:
			err = assertList(AssertImplied, assertion.Tag, assertion.Want, m.Implied(assertion.Tag))
		case AssertExpand:
			err = assertList(AssertExpand, strings.Join(assertion.Tags, ","), assertion.Want, m.Expand(assertion.Tags))
		case AssertBlacklisted:
			err = assertFlag(AssertBlacklisted, assertion.Tag, m.IsBlacklisted(assertion.Tag))
		case AssertDeprecated:
			err = assertFlag(AssertDeprecated, assertion.Tag, m.IsDeprecated(assertion.Tag))
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func assertCanonical(m *tags.Mappings, a Assertion) error {
	if len(a.Want) != 1 {
		return fmt.Errorf("canonical %q: want exactly one value, got %d", a.Tag, len(a.Want))
	}
	if got := m.Canonical(a.Tag); got != a.Want[0] {
		return &AssertionError{
			Type:     AssertCanonical,
			Subject:  a.Tag,
			Expected: a.Want[0],
			Actual:   got,
		}
	}
	return nil
}

func assertList(typ, subject string, want, got []string) error {
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		return &AssertionError{
			Type:     typ,
			Subject:  subject,
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v (-want +got):\n%s", got, diff),
		}
	}
	return nil
}

func assertFlag(typ, tag string, got bool) error {
	if !got {
		return &AssertionError{
			Type:     typ,
			Subject:  tag,
			Expected: fmt.Sprintf("%s is %s", tag, typ),
			Actual:   fmt.Sprintf("%s is not %s", tag, typ),
		}
	}
	return nil
}
