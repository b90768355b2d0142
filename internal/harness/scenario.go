package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/capsule/internal/graph"
)

// Scenario defines a round-trip conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Script is evaluated in a fresh realm; its completion value is the
	// value under test.
	Script string `yaml:"script,omitempty"`

	// Wire is a raw wire payload to decode instead of running a script.
	Wire string `yaml:"wire,omitempty"`

	// Assertions validate the graph and the decoded value.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one property of a scenario run.
type Assertion struct {
	// Type specifies the assertion type; see the package documentation.
	Type string `yaml:"type"`

	// Expr is a script expression evaluated in the decoding realm
	// (used by holds and equals).
	Expr string `yaml:"expr,omitempty"`

	// Expect is the expected value of Expr (used by equals).
	Expect any `yaml:"expect,omitempty"`

	// Count is the expected number of records (used by record_count).
	Count int `yaml:"count,omitempty"`

	// Kind is the expected root record kind (used by root_kind).
	Kind string `yaml:"kind,omitempty"`

	// Code is the expected error code (used by decode_error).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertHolds       = "holds"
	AssertEquals      = "equals"
	AssertRecordCount = "record_count"
	AssertRootKind    = "root_kind"
	AssertDecodeError = "decode_error"
	AssertStable      = "stable"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML. Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
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

	switch {
	case s.Script == "" && s.Wire == "":
		return fmt.Errorf("one of script or wire is required")
	case s.Script != "" && s.Wire != "":
		return fmt.Errorf("script and wire are mutually exclusive")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
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
	case AssertHolds, AssertEquals:
		if a.Expr == "" {
			return fmt.Errorf("assertions[%d]: expr is required for %s", index, a.Type)
		}
	case AssertRecordCount:
		if a.Count <= 0 {
			return fmt.Errorf("assertions[%d]: count must be positive for record_count", index)
		}
	case AssertRootKind:
		if !graph.Kind(a.Kind).Valid() {
			return fmt.Errorf("assertions[%d]: unknown record kind %q", index, a.Kind)
		}
	case AssertDecodeError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for decode_error", index)
		}
	case AssertStable:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
