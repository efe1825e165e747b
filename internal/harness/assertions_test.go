package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagstorm/internal/project"
	"github.com/roach88/tagstorm/internal/search"
	"github.com/roach88/tagstorm/internal/tags"
)

func sampleMappings() *tags.Mappings {
	active := func(a, c string) tags.Relation {
		return tags.Relation{Antecedent: a, Consequent: c, Status: tags.StatusActive}
	}
	return tags.MustResolve(
		[]tags.Relation{active("ff7", "final_fantasy_vii")},
		[]tags.Relation{active("final_fantasy_vii", "video_games")},
		[]string{"spoilers"},
		nil,
	)
}

func idRecords(ids ...int64) []project.Record {
	out := make([]project.Record, len(ids))
	for i, id := range ids {
		out[i] = project.NewRecord(project.Field{Column: search.ColumnID, Value: id})
	}
	return out
}

func TestCheckExpect(t *testing.T) {
	ok := StepResult{Name: "s", Records: idRecords(1, 2)}
	failed := StepResult{Name: "s", Error: "AGGREGATE_MIX", Message: "AGGREGATE_MIX: nope"}

	tests := []struct {
		name    string
		expect  *ExpectClause
		sr      StepResult
		wantErr string
	}{
		{name: "nil clause success", expect: nil, sr: ok},
		{name: "nil clause failure", expect: nil, sr: failed, wantErr: "search_success"},
		{name: "count match", expect: &ExpectClause{Count: intp(2)}, sr: ok},
		{name: "count mismatch", expect: &ExpectClause{Count: intp(3)}, sr: ok, wantErr: "3 records"},
		{name: "ids match", expect: &ExpectClause{IDs: []int64{1, 2}}, sr: ok},
		{name: "ids order matters", expect: &ExpectClause{IDs: []int64{2, 1}}, sr: ok, wantErr: "search_ids"},
		{name: "empty ids match no rows", expect: &ExpectClause{IDs: []int64{}}, sr: StepResult{Name: "s", Records: []project.Record{}}},
		{name: "error match", expect: &ExpectClause{Error: "AGGREGATE_MIX"}, sr: failed},
		{name: "error mismatch", expect: &ExpectClause{Error: "EMPTY_SELECT"}, sr: failed, wantErr: "AGGREGATE_MIX: nope"},
		{name: "error expected but succeeded", expect: &ExpectClause{Error: "EMPTY_SELECT"}, sr: ok, wantErr: "success with 2 records"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkExpect(SearchStep{Name: "s", Expect: tt.expect}, tt.sr)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	errs := EvaluateAssertions(sampleMappings(), []Assertion{
		{Type: AssertCanonical, Tag: "ff7", Want: []string{"final_fantasy_vii"}},
		{Type: AssertCanonical, Tag: "cat", Want: []string{"cat"}},
		{Type: AssertImplied, Tag: "final_fantasy_vii", Want: []string{"video_games"}},
		{Type: AssertImplied, Tag: "cat"},
		{Type: AssertExpand, Tags: []string{"ff7"}, Want: []string{"final_fantasy_vii", "video_games"}},
		{Type: AssertBlacklisted, Tag: "spoilers"},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_SomeFail(t *testing.T) {
	errs := EvaluateAssertions(sampleMappings(), []Assertion{
		{Type: AssertCanonical, Tag: "ff7", Want: []string{"ff7"}},
		{Type: AssertImplied, Tag: "ff7", Want: []string{"video_games"}},
		{Type: AssertDeprecated, Tag: "spoilers"},
	})
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "Expected: ff7")
	assert.Contains(t, errs[0], "Actual: final_fantasy_vii")
	assert.Contains(t, errs[1], "implied (ff7)")
	assert.Contains(t, errs[2], "spoilers is not deprecated")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(sampleMappings(), []Assertion{{Type: "bogus"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown assertion type "bogus"`)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     "search_count",
		Subject:  "cats",
		Expected: "2 records",
		Actual:   "1 records",
	}

	want := "Assertion failed: search_count (cats)\n" +
		"  Expected: 2 records\n" +
		"  Actual: 1 records\n"
	assert.Equal(t, want, err.Error())
}
