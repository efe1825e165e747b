package harness

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/tagstorm/internal/engine"
	"github.com/roach88/tagstorm/internal/search"
	"github.com/roach88/tagstorm/internal/store"
	"github.com/roach88/tagstorm/internal/tags"
)

// Harness is the test execution engine.
// It runs the searches of one scenario against a freshly loaded store.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Query ids are fixed so that repeated runs log identically.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Resolve tag reference data
// 3. Load image fixtures
// 4. Run each search and check its expect clause
// 5. Evaluate mapping assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	mappings, err := resolveTags(scenario.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tags: %w", err)
	}

	if err := loadImages(ctx, st, scenario); err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}

	ids := make([]string, len(scenario.Searches))
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", scenario.Name, i+1)
	}

	h := &Harness{
		store: st,
		engine: engine.New(st,
			engine.WithLogger(engine.DiscardLogger()), // Suppress logs in tests
			engine.WithMappings(mappings),
			engine.WithIDGenerator(engine.NewFixedGenerator(ids...)),
		),
	}

	result := NewResult()
	for _, step := range scenario.Searches {
		sr := h.runSearch(ctx, step)
		result.AddStep(sr)
		if err := checkExpect(step, sr); err != nil {
			result.AddError(err.Error())
		}
	}

	for _, msg := range EvaluateAssertions(h.engine.Mappings(), scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// runSearch executes one step. Search failures are part of the step
// result, not an error of the run.
func (h *Harness) runSearch(ctx context.Context, step SearchStep) StepResult {
	sr := StepResult{Name: step.Name}

	req, err := step.ParseRequest()
	if err == nil {
		var res *engine.Result
		res, err = h.engine.Search(ctx, req)
		if err == nil {
			sr.Columns = res.Columns
			sr.Records = res.Records
			return sr
		}
	}

	sr.Error = errorCode(err)
	sr.Message = err.Error()
	return sr
}

// errorCode maps a search failure to its code.
func errorCode(err error) string {
	if code := search.CodeOf(err); code != "" {
		return string(code)
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return "UNKNOWN"
}

func resolveTags(data *TagData) (*tags.Mappings, error) {
	if data == nil {
		return tags.Resolve(nil, nil, nil, nil)
	}
	return tags.Resolve(data.Aliases, data.Implications, data.Blacklist, data.Deprecations)
}

func loadImages(ctx context.Context, st *store.Store, scenario *Scenario) error {
	records := append([]store.ImageRecord(nil), scenario.Images...)

	if scenario.ImagesFile != "" {
		f, err := os.Open(scenario.ImagesFile)
		if err != nil {
			return err
		}
		defer f.Close()

		more, err := store.ReadImageRecords(f)
		if err != nil {
			return fmt.Errorf("%s: %w", scenario.ImagesFile, err)
		}
		records = append(records, more...)
	}

	_, err := st.Load(ctx, records)
	return err
}
