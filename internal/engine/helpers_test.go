package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/graphsync/internal/graph"
	"github.com/roach88/graphsync/internal/primary"
	"github.com/roach88/graphsync/internal/social"
)

var testNow = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

var errBoom = errors.New("boom")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(extra ...Option) []Option {
	opts := []Option{
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return testNow }),
		WithWorkers(1),
	}
	return append(opts, extra...)
}

// fakePrimary is an in-memory PrimaryReader.
type fakePrimary struct {
	users     []social.UserRecord
	neighbors map[string][]string
	err       error
}

func (p *fakePrimary) ListUsers(ctx context.Context) ([]social.UserRecord, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.users, nil
}

func (p *fakePrimary) ListNeighbors(ctx context.Context) ([]social.NeighborRecord, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make([]social.NeighborRecord, len(p.users))
	for i, u := range p.users {
		out[i] = social.NeighborRecord{User: u, Friends: p.neighbors[u.ID]}
	}
	return out, nil
}

// fakeGraph is an in-memory GraphStore recording every write call.
type fakeGraph struct {
	mu           sync.Mutex
	nodes        map[string]social.UserNode
	edges        map[[2]string]social.EdgeProps
	online       map[string]bool
	groups       map[string][]social.GroupView
	interactions map[[2]string][]social.Interaction
	writes       []string

	clearErr     error
	failUser     map[string]error
	failEdge     map[[2]string]error
	readErr      error
	onUpsertUser func(id string)

	// honorCtx makes writes fail with ctx.Err() once ctx is done, like a
	// real database driver.
	honorCtx bool
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		nodes:        make(map[string]social.UserNode),
		edges:        make(map[[2]string]social.EdgeProps),
		online:       make(map[string]bool),
		groups:       make(map[string][]social.GroupView),
		interactions: make(map[[2]string][]social.Interaction),
		failUser:     make(map[string]error),
		failEdge:     make(map[[2]string]error),
	}
}

func (g *fakeGraph) UpsertUser(ctx context.Context, node social.UserNode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writes = append(g.writes, "user:"+node.ID)
	if g.onUpsertUser != nil {
		g.onUpsertUser(node.ID)
	}
	if g.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if err := g.failUser[node.ID]; err != nil {
		return err
	}
	g.nodes[node.ID] = node
	return nil
}

func (g *fakeGraph) UpsertFriendship(ctx context.Context, owner, friend string, props social.EdgeProps) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := pairKey(owner, friend)
	g.writes = append(g.writes, "edge:"+key[0]+"-"+key[1])
	if g.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if err := g.failEdge[key]; err != nil {
		return err
	}
	g.edges[key] = props
	return nil
}

func (g *fakeGraph) ClearAll(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writes = append(g.writes, "clear")
	if g.clearErr != nil {
		return g.clearErr
	}
	g.nodes = make(map[string]social.UserNode)
	g.edges = make(map[[2]string]social.EdgeProps)
	return nil
}

func (g *fakeGraph) ListFriendships(ctx context.Context, userID string) ([]social.FriendshipView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readErr != nil {
		return nil, g.readErr
	}
	views := []social.FriendshipView{}
	for key, props := range g.edges {
		switch userID {
		case key[0]:
			views = append(views, social.FriendshipView{FriendID: key[1], Status: props.Status})
		case key[1]:
			views = append(views, social.FriendshipView{FriendID: key[0], Status: props.Status})
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].FriendID < views[j].FriendID })
	return views, nil
}

func (g *fakeGraph) GetOnlineStatus(ctx context.Context, userID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readErr != nil {
		return false, g.readErr
	}
	return g.online[userID], nil
}

func (g *fakeGraph) ListFriendGroups(ctx context.Context, userID string) ([]social.GroupView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readErr != nil {
		return nil, g.readErr
	}
	return g.groups[userID], nil
}

func (g *fakeGraph) ListInteractionHistory(ctx context.Context, owner, friend string) ([]social.Interaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readErr != nil {
		return nil, g.readErr
	}
	return g.interactions[pairKey(owner, friend)], nil
}

func (g *fakeGraph) writesSnapshot() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.writes...)
}

// sqliteStores opens a fresh primary and graph store pair.
func sqliteStores(t *testing.T) (*primary.Store, *graph.Store) {
	t.Helper()
	dir := t.TempDir()
	p, err := primary.Open(filepath.Join(dir, "primary.db"))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	g, err := graph.Open(filepath.Join(dir, "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return p, g
}

func putUsers(t *testing.T, p *primary.Store, users ...social.UserRecord) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, p.PutUser(context.Background(), u))
	}
}

func user(id string, friendships ...social.Friendship) social.UserRecord {
	return social.UserRecord{ID: id, Username: "user-" + id, Friendships: friendships}
}

func friend(id string) social.Friendship {
	return social.Friendship{Friend: id, Status: "regular"}
}
