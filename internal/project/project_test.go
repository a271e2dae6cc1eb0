package project

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphsync/internal/social"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestProjector() *Projector {
	d := DefaultDefaults()
	d.Now = func() time.Time { return fixedNow }
	return New(d)
}

func TestUser_CopiesIdentity(t *testing.T) {
	p := newTestProjector()
	node, err := p.User(social.UserRecord{
		ID:              "u1",
		Username:        "alice",
		Interests:       []any{"jazz", "go", "jazz"},
		ActivityMetrics: &social.ActivityMetrics{InteractionFrequency: 4.5},
	})
	require.NoError(t, err)

	assert.Equal(t, "u1", node.ID)
	assert.Equal(t, "alice", node.Username)
	assert.Equal(t, []string{"go", "jazz"}, node.Interests)
	assert.Equal(t, 4.5, node.ActivityScore)
}

func TestUser_Defaults(t *testing.T) {
	p := newTestProjector()
	node, err := p.User(social.UserRecord{ID: "u1", Username: "bob", Interests: "not-a-list"})
	require.NoError(t, err)

	assert.Equal(t, []string{}, node.Interests)
	assert.Equal(t, 0.0, node.ActivityScore)
}

func TestUser_NegativeActivityClamped(t *testing.T) {
	p := newTestProjector()
	node, err := p.User(social.UserRecord{
		ID:              "u1",
		ActivityMetrics: &social.ActivityMetrics{InteractionFrequency: -2},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, node.ActivityScore)
}

func TestUser_EmptyIDFails(t *testing.T) {
	p := newTestProjector()
	_, err := p.User(social.UserRecord{Username: "ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty id")
}

func TestFriendship_RichRecord(t *testing.T) {
	p := newTestProjector()
	last := time.Date(2025, 12, 24, 8, 0, 0, 0, time.UTC)

	edge, err := p.Friendship("a", social.Friendship{
		Friend:           "b",
		Status:           "pending",
		InteractionCount: float64(3),
		LastInteraction:  &last,
	})
	require.NoError(t, err)

	assert.Equal(t, "a", edge.Owner)
	assert.Equal(t, "b", edge.Friend)
	assert.Equal(t, social.Status("pending"), edge.Status)
	assert.Equal(t, int64(3), edge.InteractionCount)
	assert.Equal(t, last, edge.LastInteraction)
}

func TestFriendship_Defaults(t *testing.T) {
	p := newTestProjector()

	edge, err := p.Friendship("a", social.Friendship{Friend: "b", InteractionCount: "lots"})
	require.NoError(t, err)

	assert.Equal(t, social.DefaultStatus, edge.Status)
	assert.Equal(t, int64(0), edge.InteractionCount)
	assert.Equal(t, fixedNow, edge.LastInteraction)
}

func TestFriendship_InvalidPairs(t *testing.T) {
	p := newTestProjector()

	_, err := p.Friendship("a", social.Friendship{})
	assert.Error(t, err)

	_, err = p.Friendship("a", social.Friendship{Friend: "a"})
	assert.Error(t, err)

	_, err = p.Friendship("", social.Friendship{Friend: "b"})
	assert.Error(t, err)
}

func TestFriendship_MalformedStatus(t *testing.T) {
	p := newTestProjector()

	_, err := p.Friendship("a", social.Friendship{Friend: "b", Status: "Best Friends!"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")

	edge, err := p.Friendship("a", social.Friendship{Friend: "b", Status: "close_friend"})
	require.NoError(t, err)
	assert.Equal(t, social.Status("close_friend"), edge.Status)
}

func TestNeighbor_AlwaysDefaults(t *testing.T) {
	p := newTestProjector()

	edge, err := p.Neighbor("a", "b")
	require.NoError(t, err)

	assert.Equal(t, social.DefaultStatus, edge.Status)
	assert.Equal(t, int64(0), edge.InteractionCount)
	assert.Equal(t, fixedNow, edge.LastInteraction)
}

func TestNew_FillsMissingDefaults(t *testing.T) {
	p := New(Defaults{})
	edge, err := p.Neighbor("a", "b")
	require.NoError(t, err)

	assert.Equal(t, social.DefaultStatus, edge.Status)
	assert.False(t, edge.LastInteraction.IsZero())
}

func TestInterests(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want []string
	}{
		{"nil", nil, []string{}},
		{"string", "go", []string{}},
		{"map", map[string]any{"a": 1}, []string{}},
		{"string slice", []string{"b", "a"}, []string{"a", "b"}},
		{"mixed", []any{"go", 7, "", "  go  ", nil}, []string{"go"}},
		{"nfc collapse", []any{"caf\u00e9", "cafe\u0301"}, []string{"caf\u00e9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interests(tt.raw))
		})
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		name   string
		raw    any
		want   int64
		wantOK bool
	}{
		{"absent", nil, 0, false},
		{"int", 5, 5, true},
		{"int64", int64(6), 6, true},
		{"float", 2.9, 2, true},
		{"numeric string", " 12 ", 12, true},
		{"garbage string", "abc", 0, false},
		{"json number", json.Number("7"), 7, true},
		{"negative", -4, 0, true},
		{"bool", true, 0, false},
		{"huge float", 1e20, math.MaxInt64, true},
		{"huge json number", json.Number("1e20"), math.MaxInt64, true},
		{"huge string", "1e19", math.MaxInt64, true},
		{"max int64", int64(math.MaxInt64), math.MaxInt64, true},
		{"huge uint64", uint64(math.MaxUint64), math.MaxInt64, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Count(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
