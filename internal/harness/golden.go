package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot captures what a scenario run produced. Field order is fixed
// and map-free, so its JSON encoding is deterministic.
type Snapshot struct {
	Scenario string        `json:"scenario"`
	RunID    string        `json:"run_id"`
	Steps    []StepOutcome `json:"steps"`
	Graph    GraphState    `json:"graph"`
}

// MarshalSnapshot encodes a snapshot as indented JSON with a trailing
// newline, the byte format of golden files.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, scenario.RunID, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already-computed result against a golden file.
func AssertGolden(t *testing.T, name, runID string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(Snapshot{
		Scenario: name,
		RunID:    runID,
		Steps:    result.Steps,
		Graph:    result.Graph,
	})
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
