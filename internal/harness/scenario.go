package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tagstorm/internal/search"
	"github.com/roach88/tagstorm/internal/store"
	"github.com/roach88/tagstorm/internal/tags"
)

// Scenario defines a search test scenario.
// A scenario loads a small image collection, runs a sequence of searches
// against it, and checks each outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Images is the collection loaded before any search runs.
	// Tag ids are assigned in first-use order, image ids in record order.
	Images []store.ImageRecord `yaml:"images,omitempty"`

	// ImagesFile is an NDJSON file of image records, loaded after Images.
	// Relative paths resolve against the scenario file's directory.
	ImagesFile string `yaml:"images_file,omitempty"`

	// Tags is optional reference data for mapping assertions.
	Tags *TagData `yaml:"tags,omitempty"`

	// Searches run in order against the loaded collection.
	Searches []SearchStep `yaml:"searches"`

	// Assertions check the resolved tag mappings.
	// Supported types: canonical, implied, expand, blacklisted, deprecated
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// TagData is inline tag reference data.
type TagData struct {
	Aliases      []tags.Relation `yaml:"aliases,omitempty"`
	Implications []tags.Relation `yaml:"implications,omitempty"`
	Blacklist    []string        `yaml:"blacklist,omitempty"`
	Deprecations []string        `yaml:"deprecations,omitempty"`
}

// SearchStep is one search and its expected outcome.
type SearchStep struct {
	// Name identifies the step in results and golden output.
	Name string `yaml:"name"`

	// Request is the search request in its JSON shape, written as YAML.
	Request map[string]any `yaml:"request"`

	// Expect specifies the expected outcome.
	// If nil, the search only has to succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies what a search should produce.
type ExpectClause struct {
	// Error is the expected error code (e.g. "AGGREGATE_MIX").
	// When set, Count and IDs must be empty.
	Error string `yaml:"error,omitempty"`

	// Count is the expected number of records.
	Count *int `yaml:"count,omitempty"`

	// IDs are the expected id column values, in result order.
	// The request must select id.
	IDs []int64 `yaml:"ids,omitempty"`
}

// Assertion checks one lookup against the resolved tag mappings.
type Assertion struct {
	// Type specifies the assertion type:
	// - "canonical": Canonical(Tag) equals Want[0]
	// - "implied": Implied(Tag) equals Want
	// - "expand": Expand(Tags) equals Want
	// - "blacklisted": Tag is blacklisted
	// - "deprecated": Tag is deprecated
	Type string `yaml:"type"`

	// Tag is the looked-up tag name.
	Tag string `yaml:"tag,omitempty"`

	// Tags is the input of an expand assertion.
	Tags []string `yaml:"tags,omitempty"`

	// Want is the expected result, sorted where the lookup sorts.
	Want []string `yaml:"want,omitempty"`
}

// Assertion type constants.
const (
	AssertCanonical   = "canonical"
	AssertImplied     = "implied"
	AssertExpand      = "expand"
	AssertBlacklisted = "blacklisted"
	AssertDeprecated  = "deprecated"
)

// RequestJSON returns the step's request in its wire form.
func (s SearchStep) RequestJSON() ([]byte, error) {
	return json.Marshal(s.Request)
}

// ParseRequest decodes the step's request.
func (s SearchStep) ParseRequest() (search.Request, error) {
	data, err := s.RequestJSON()
	if err != nil {
		return search.Request{}, fmt.Errorf("search %q: encode request: %w", s.Name, err)
	}
	return search.ParseRequest(data)
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve the images file relative to the scenario BEFORE validation
	if scenario.ImagesFile != "" && !filepath.IsAbs(scenario.ImagesFile) {
		scenario.ImagesFile = filepath.Join(filepath.Dir(path), scenario.ImagesFile)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML with strict field checking. It does
// not validate; LoadScenario does both.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Searches) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("at least one search or assertion is required")
	}

	if s.ImagesFile != "" {
		if _, err := os.Stat(s.ImagesFile); os.IsNotExist(err) {
			return fmt.Errorf("images file not found: %s", s.ImagesFile)
		}
	}

	for i, img := range s.Images {
		if img.Hash == "" {
			return fmt.Errorf("images[%d]: hash is required", i)
		}
	}

	names := make(map[string]bool, len(s.Searches))
	for i, step := range s.Searches {
		if step.Name == "" {
			return fmt.Errorf("searches[%d]: name is required", i)
		}
		if names[step.Name] {
			return fmt.Errorf("searches[%d]: duplicate name %q", i, step.Name)
		}
		names[step.Name] = true

		if step.Request == nil {
			return fmt.Errorf("searches[%d]: request is required", i)
		}
		if e := step.Expect; e != nil && e.Error != "" && (e.Count != nil || e.IDs != nil) {
			return fmt.Errorf("searches[%d].expect: error cannot be combined with count or ids", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCanonical:
		if a.Tag == "" {
			return fmt.Errorf("assertions[%d]: canonical requires tag", index)
		}
		if len(a.Want) != 1 {
			return fmt.Errorf("assertions[%d]: canonical requires exactly one want value", index)
		}
	case AssertImplied, AssertBlacklisted, AssertDeprecated:
		if a.Tag == "" {
			return fmt.Errorf("assertions[%d]: %s requires tag", index, a.Type)
		}
	case AssertExpand:
		if len(a.Tags) == 0 {
			return fmt.Errorf("assertions[%d]: expand requires tags", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}

	return nil
}
