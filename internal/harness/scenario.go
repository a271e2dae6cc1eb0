package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines an end-to-end sync scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunID is the fixed run ID attached to every engine call.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Now stops the wall clock at this instant.
	// If nil, testutil.DefaultEpoch is used.
	Now *time.Time `yaml:"now,omitempty"`

	// Fixture seeds both stores before the first step.
	Fixture `yaml:",inline"`

	// Steps are engine operations run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final graph store content.
	// Supported types: final_state, row_count
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step runs one engine operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Expect checks the step outcome. If nil, any error-free outcome passes.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// Step operations.
const (
	OpSyncUsers            = "sync_users"
	OpSyncFriendships      = "sync_friendships"
	OpSyncAll              = "sync_all"
	OpValidateEdges        = "validate_edges"
	OpValidateOnline       = "validate_online"
	OpValidateGroups       = "validate_groups"
	OpValidateInteractions = "validate_interactions"
	OpAudit                = "audit"
	OpRepair               = "repair"
)

var knownOps = map[string]bool{
	OpSyncUsers:            true,
	OpSyncFriendships:      true,
	OpSyncAll:              true,
	OpValidateEdges:        true,
	OpValidateOnline:       true,
	OpValidateGroups:       true,
	OpValidateInteractions: true,
	OpAudit:                true,
	OpRepair:               true,
}

// ExpectClause specifies the expected step outcome.
// Only the fields that are set are checked.
type ExpectClause struct {
	Attempted   *int  `yaml:"attempted,omitempty"`
	Succeeded   *int  `yaml:"succeeded,omitempty"`
	Failed      *int  `yaml:"failed,omitempty"`
	Skipped     *int  `yaml:"skipped,omitempty"`
	Consistent  *bool `yaml:"consistent,omitempty"`
	Divergences *int  `yaml:"divergences,omitempty"`

	// Error is the expected engine error code, e.g. WRITE_FAILED.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the final graph store content.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_state": Query table and verify expected values of the one matching row
	// - "row_count": Verify how many rows of table match where
	Type string `yaml:"type"`

	// Table is the graph store table name.
	Table string `yaml:"table"`

	// Where specifies query filters.
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of rows (used by row_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState = "final_state"
	AssertRowCount   = "row_count"
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

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "step:" vs "steps:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
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

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if err := validateFixture(&s.Fixture); err != nil {
		return err
	}

	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
		if !knownOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
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
	if a.Table == "" {
		return fmt.Errorf("assertions[%d]: table is required for %s", index, a.Type)
	}

	switch a.Type {
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
