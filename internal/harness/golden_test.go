package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_AsymmetricThenRebuild(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/asymmetric_then_rebuild.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestMarshalSnapshot_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/asymmetric_then_rebuild.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := MarshalSnapshot(Snapshot{Scenario: s.Name, RunID: s.RunID, Steps: first.Steps, Graph: first.Graph})
	require.NoError(t, err)
	b, err := MarshalSnapshot(Snapshot{Scenario: s.Name, RunID: s.RunID, Steps: second.Steps, Graph: second.Graph})
	require.NoError(t, err)

	assert.Equal(t, string(a), string(b))
	assert.Equal(t, byte('\n'), a[len(a)-1])
}
