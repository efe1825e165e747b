package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tagstorm/internal/project"
)

// Snapshot captures the outcome of every search in a scenario.
// Field order is fixed so that snapshots compare byte for byte.
type Snapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Searches     []StepSnapshot `json:"searches"`
}

// StepSnapshot is the golden form of one search. Count is omitted for
// failed searches; Records is omitted when empty.
type StepSnapshot struct {
	Name    string           `json:"name"`
	Error   string           `json:"error,omitempty"`
	Count   *int             `json:"count,omitempty"`
	Records []project.Record `json:"records,omitempty"`
}

// NewSnapshot builds the golden form of a result.
func NewSnapshot(scenarioName string, result *Result) Snapshot {
	s := Snapshot{
		ScenarioName: scenarioName,
		Searches:     make([]StepSnapshot, 0, len(result.Steps)),
	}
	for _, step := range result.Steps {
		ss := StepSnapshot{Name: step.Name, Error: step.Error}
		if !step.Failed() {
			n := len(step.Records)
			ss.Count = &n
			ss.Records = step.Records
		}
		s.Searches = append(s.Searches, ss)
	}
	return s
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares the search outcomes
// against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the outcomes don't match the golden
// file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
