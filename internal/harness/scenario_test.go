package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_AllTestdataScenariosParse(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)
			assert.NotEmpty(t, s.Name)
			assert.NotEmpty(t, s.Steps)
		})
	}
}

func TestLoadScenario_InlineFixture(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/stray_edge_repair.yaml")
	require.NoError(t, err)

	assert.Equal(t, "test-run-0002", s.RunID)
	require.Len(t, s.Primary.Users, 4)
	assert.Equal(t, "b", s.Primary.Users[0].Friendships[0].Friend)
	require.Len(t, s.Graph.Edges, 1)
	assert.Equal(t, "d", s.Graph.Edges[0].Owner)
	require.NotNil(t, s.Steps[1].Expect)
	require.NotNil(t, s.Steps[1].Expect.Skipped)
	assert.Equal(t, 1, *s.Steps[1].Expect.Skipped)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: misspelled key
step:
  - op: sync_users
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nsteps: [{op: sync_users}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nsteps: [{op: sync_users}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			yaml:    "name: n\ndescription: d\n",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown op",
			yaml:    "name: n\ndescription: d\nsteps: [{op: sync_everything}]\n",
			wantErr: `unknown op "sync_everything"`,
		},
		{
			name:    "empty op",
			yaml:    "name: n\ndescription: d\nsteps: [{expect: {attempted: 1}}]\n",
			wantErr: "steps[0]: op is required",
		},
		{
			name:    "duplicate primary user",
			yaml:    "name: n\ndescription: d\nprimary: {users: [{id: a}, {id: a}]}\nsteps: [{op: sync_users}]\n",
			wantErr: `duplicate id "a"`,
		},
		{
			name:    "primary user without id",
			yaml:    "name: n\ndescription: d\nprimary: {users: [{username: x}]}\nsteps: [{op: sync_users}]\n",
			wantErr: "primary.users[0]: id is required",
		},
		{
			name:    "neighbors for unknown user",
			yaml:    "name: n\ndescription: d\nprimary: {neighbors: {z: [a]}}\nsteps: [{op: sync_all}]\n",
			wantErr: `unknown user "z"`,
		},
		{
			name:    "malformed primary friendship status",
			yaml:    "name: n\ndescription: d\nprimary: {users: [{id: a, friendships: [{friend: b, status: \"Best Friends\"}]}, {id: b}]}\nsteps: [{op: sync_friendships}]\n",
			wantErr: "primary.users[0].friendships[0]: invalid status",
		},
		{
			name:    "malformed graph edge status",
			yaml:    "name: n\ndescription: d\ngraph: {edges: [{owner: a, friend: b, status: PENDING}]}\nsteps: [{op: validate_edges}]\n",
			wantErr: "graph.edges[0]: invalid status",
		},
		{
			name:    "final_state without expect",
			yaml:    "name: n\ndescription: d\nsteps: [{op: sync_users}]\nassertions: [{type: final_state, table: nodes}]\n",
			wantErr: "expect is required for final_state",
		},
		{
			name:    "assertion without table",
			yaml:    "name: n\ndescription: d\nsteps: [{op: sync_users}]\nassertions: [{type: row_count, count: 1}]\n",
			wantErr: "table is required",
		},
		{
			name:    "unknown assertion type",
			yaml:    "name: n\ndescription: d\nsteps: [{op: sync_users}]\nassertions: [{type: trace_order, table: nodes}]\n",
			wantErr: `unknown assertion type "trace_order"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFixture(t *testing.T) {
	f, err := LoadFixture("testdata/fixtures/small.yaml")
	require.NoError(t, err)

	require.Len(t, f.Primary.Users, 2)
	assert.Equal(t, "alice", f.Primary.Users[0].Username)
	require.NotNil(t, f.Primary.Users[0].ActivityMetrics)
	assert.Equal(t, 2.5, f.Primary.Users[0].ActivityMetrics.InteractionFrequency)
	assert.Equal(t, []string{"b"}, f.Primary.Neighbors["a"])
	assert.Len(t, f.Graph.Nodes, 2)
	assert.True(t, f.Graph.Presence["a"])
}

func TestLoadFixture_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("primary:\n  userz: []\n"), 0o644))

	_, err := LoadFixture(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}
