package graph

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphsync/internal/social"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedNodes(t *testing.T, s *Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, s.UpsertUser(context.Background(), social.UserNode{ID: id, Username: "user-" + id}))
	}
}

var at = time.Date(2026, 2, 3, 4, 5, 6, 7, time.UTC)

func props(status social.Status, count int64) social.EdgeProps {
	return social.EdgeProps{Status: status, InteractionCount: count, LastInteraction: at}
}

func TestUpsertUser_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	node := social.UserNode{ID: "a", Username: "alice", Interests: []string{"go"}, ActivityScore: 2}

	require.NoError(t, s.UpsertUser(ctx, node))
	first, err := s.ListUsers(ctx)
	require.NoError(t, err)

	require.NoError(t, s.UpsertUser(ctx, node))
	second, err := s.ListUsers(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, second, 1)
	assert.Equal(t, node, second[0])
}

func TestUpsertUser_Updates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, social.UserNode{ID: "a", Username: "alice"}))
	require.NoError(t, s.UpsertUser(ctx, social.UserNode{ID: "a", Username: "alicia", ActivityScore: 1}))

	nodes, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "alicia", nodes[0].Username)
	assert.Equal(t, []string{}, nodes[0].Interests)
	assert.Equal(t, 1.0, nodes[0].ActivityScore)
}

func TestUpsertFriendship_Undirected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedNodes(t, s, "a", "b")

	require.NoError(t, s.UpsertFriendship(ctx, "b", "a", props("pending", 1)))
	require.NoError(t, s.UpsertFriendship(ctx, "a", "b", props("regular", 3)))

	edges, err := s.ListEdges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "a", edges[0].Owner)
	assert.Equal(t, "b", edges[0].Friend)
	assert.Equal(t, social.Status("regular"), edges[0].Status)
	assert.Equal(t, int64(3), edges[0].InteractionCount)
	assert.True(t, at.Equal(edges[0].LastInteraction))

	fromA, err := s.ListFriendships(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []social.FriendshipView{{FriendID: "b", Status: "regular"}}, fromA)

	fromB, err := s.ListFriendships(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []social.FriendshipView{{FriendID: "a", Status: "regular"}}, fromB)
}

func TestUpsertFriendship_RequiresNodes(t *testing.T) {
	s := createTestStore(t)
	seedNodes(t, s, "a")

	err := s.UpsertFriendship(context.Background(), "a", "missing", props("regular", 0))
	assert.Error(t, err)
}

func TestUpsertFriendship_RejectsInvalid(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedNodes(t, s, "a", "b")

	assert.Error(t, s.UpsertFriendship(ctx, "a", "a", props("regular", 0)))
	assert.Error(t, s.UpsertFriendship(ctx, "", "b", props("regular", 0)))
	assert.Error(t, s.UpsertFriendship(ctx, "a", "b", props("regular", -1)))
}

func TestListFriendships_Empty(t *testing.T) {
	s := createTestStore(t)

	views, err := s.ListFriendships(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestOnlineStatus(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedNodes(t, s, "a")

	online, err := s.GetOnlineStatus(ctx, "a")
	require.NoError(t, err)
	assert.False(t, online, "no presence row means offline")

	require.NoError(t, s.SetOnlineStatus(ctx, "a", true))
	online, err = s.GetOnlineStatus(ctx, "a")
	require.NoError(t, err)
	assert.True(t, online)

	require.NoError(t, s.SetOnlineStatus(ctx, "a", false))
	online, err = s.GetOnlineStatus(ctx, "a")
	require.NoError(t, err)
	assert.False(t, online)

	assert.Error(t, s.SetOnlineStatus(ctx, "missing", true))
}

func TestFriendGroups(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedNodes(t, s, "a")

	require.NoError(t, s.PutFriendGroup(ctx, "a", social.GroupView{Name: "work", Members: []string{"b", "c", "b"}}))
	require.NoError(t, s.PutFriendGroup(ctx, "a", social.GroupView{Name: "empty"}))
	require.NoError(t, s.PutFriendGroup(ctx, "a", social.GroupView{Name: "family", Members: []string{"d"}}))
	// Replace
	require.NoError(t, s.PutFriendGroup(ctx, "a", social.GroupView{Name: "family", Members: []string{"e", "f"}}))

	groups, err := s.ListFriendGroups(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []social.GroupView{
		{Name: "empty", Members: []string{}},
		{Name: "family", Members: []string{"e", "f"}},
		{Name: "work", Members: []string{"b", "c"}},
	}, groups)

	assert.Error(t, s.PutFriendGroup(ctx, "a", social.GroupView{}))
}

func TestInteractions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedNodes(t, s, "a", "b")
	require.NoError(t, s.UpsertFriendship(ctx, "a", "b", props("regular", 0)))

	require.NoError(t, s.AppendInteraction(ctx, "a", "b", social.Interaction{Kind: "like", At: at}))
	require.NoError(t, s.AppendInteraction(ctx, "b", "a", social.Interaction{Kind: "comment", At: at.Add(time.Minute)}))

	events, err := s.ListInteractionHistory(ctx, "b", "a")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "like", events[0].Kind)
	assert.Equal(t, "comment", events[1].Kind)

	// Interactions need an edge
	assert.Error(t, s.AppendInteraction(ctx, "a", "zzz", social.Interaction{Kind: "like", At: at}))
}

func TestClearAll(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedNodes(t, s, "a", "b")
	require.NoError(t, s.UpsertFriendship(ctx, "a", "b", props("regular", 0)))
	require.NoError(t, s.SetOnlineStatus(ctx, "a", true))
	require.NoError(t, s.PutFriendGroup(ctx, "a", social.GroupView{Name: "g", Members: []string{"b"}}))
	require.NoError(t, s.AppendInteraction(ctx, "a", "b", social.Interaction{Kind: "like", At: at}))

	require.NoError(t, s.ClearAll(ctx))

	nodes, edges, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, nodes)
	assert.Zero(t, edges)

	groups, err := s.ListFriendGroups(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, groups)

	events, err := s.ListInteractionHistory(ctx, "a", "b")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestClearAll_CancelledContextClearsNothing(t *testing.T) {
	s := createTestStore(t)
	seedNodes(t, s, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.ClearAll(ctx))

	nodes, _, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, nodes)
}
