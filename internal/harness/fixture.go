package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/graphsync/internal/graph"
	"github.com/roach88/graphsync/internal/primary"
	"github.com/roach88/graphsync/internal/social"
)

// Fixture is the seed content of both stores.
type Fixture struct {
	Primary PrimaryFixture `yaml:"primary"`
	Graph   GraphFixture   `yaml:"graph,omitempty"`
}

// PrimaryFixture holds the primary store documents.
type PrimaryFixture struct {
	// Users are written in order; enumeration order follows it.
	Users []social.UserRecord `yaml:"users"`

	// Neighbors maps a user ID to its flat neighbor list.
	Neighbors map[string][]string `yaml:"neighbors,omitempty"`
}

// GraphFixture holds state already present in the graph store, as if
// written by an earlier sync or by the live write path.
type GraphFixture struct {
	Nodes        []NodeFixture        `yaml:"nodes,omitempty"`
	Edges        []EdgeFixture        `yaml:"edges,omitempty"`
	Presence     map[string]bool      `yaml:"presence,omitempty"`
	Groups       []GroupFixture       `yaml:"groups,omitempty"`
	Interactions []InteractionFixture `yaml:"interactions,omitempty"`
}

// NodeFixture is a graph node.
type NodeFixture struct {
	ID            string   `yaml:"id"`
	Username      string   `yaml:"username"`
	Interests     []string `yaml:"interests,omitempty"`
	ActivityScore float64  `yaml:"activity_score,omitempty"`
}

// EdgeFixture is an undirected graph edge. Status defaults to "regular".
type EdgeFixture struct {
	Owner            string     `yaml:"owner"`
	Friend           string     `yaml:"friend"`
	Status           string     `yaml:"status,omitempty"`
	InteractionCount int64      `yaml:"interaction_count,omitempty"`
	LastInteraction  *time.Time `yaml:"last_interaction,omitempty"`
}

// GroupFixture is a friend group owned by a graph node.
type GroupFixture struct {
	Owner   string   `yaml:"owner"`
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// InteractionFixture is one event on an existing edge.
type InteractionFixture struct {
	Owner  string    `yaml:"owner"`
	Friend string    `yaml:"friend"`
	Kind   string    `yaml:"kind"`
	At     time.Time `yaml:"at"`
}

// LoadFixture reads and parses a fixture YAML file.
// Unknown fields are rejected.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}

	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateFixture(&f); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &f, nil
}

func validateFixture(f *Fixture) error {
	seen := make(map[string]bool, len(f.Primary.Users))
	for i, u := range f.Primary.Users {
		if u.ID == "" {
			return fmt.Errorf("primary.users[%d]: id is required", i)
		}
		if seen[u.ID] {
			return fmt.Errorf("primary.users[%d]: duplicate id %q", i, u.ID)
		}
		seen[u.ID] = true
		for j, f := range u.Friendships {
			if f.Status == "" {
				continue
			}
			if err := f.Status.Validate(); err != nil {
				return fmt.Errorf("primary.users[%d].friendships[%d]: %w", i, j, err)
			}
		}
	}
	for id := range f.Primary.Neighbors {
		if !seen[id] {
			return fmt.Errorf("primary.neighbors: unknown user %q", id)
		}
	}

	for i, n := range f.Graph.Nodes {
		if n.ID == "" {
			return fmt.Errorf("graph.nodes[%d]: id is required", i)
		}
	}
	for i, e := range f.Graph.Edges {
		if e.Owner == "" || e.Friend == "" {
			return fmt.Errorf("graph.edges[%d]: owner and friend are required", i)
		}
		if e.Status != "" {
			if err := social.Status(e.Status).Validate(); err != nil {
				return fmt.Errorf("graph.edges[%d]: %w", i, err)
			}
		}
	}
	for i, g := range f.Graph.Groups {
		if g.Owner == "" || g.Name == "" {
			return fmt.Errorf("graph.groups[%d]: owner and name are required", i)
		}
	}
	for i, ev := range f.Graph.Interactions {
		if ev.Kind == "" {
			return fmt.Errorf("graph.interactions[%d]: kind is required", i)
		}
	}
	return nil
}

// Seed writes the fixture into both stores. now stamps graph edges that
// carry no last_interaction.
func (f *Fixture) Seed(ctx context.Context, p *primary.Store, g *graph.Store, now time.Time) error {
	for _, u := range f.Primary.Users {
		if err := p.PutUser(ctx, u); err != nil {
			return fmt.Errorf("seed primary: %w", err)
		}
	}
	for _, id := range sortedKeys(f.Primary.Neighbors) {
		if err := p.SetNeighbors(ctx, id, f.Primary.Neighbors[id]); err != nil {
			return fmt.Errorf("seed primary: %w", err)
		}
	}

	for _, n := range f.Graph.Nodes {
		node := social.UserNode{ID: n.ID, Username: n.Username, Interests: n.Interests, ActivityScore: n.ActivityScore}
		if err := g.UpsertUser(ctx, node); err != nil {
			return fmt.Errorf("seed graph: %w", err)
		}
	}
	for _, e := range f.Graph.Edges {
		props := social.EdgeProps{
			Status:           social.Status(e.Status).OrDefault(),
			InteractionCount: e.InteractionCount,
			LastInteraction:  now,
		}
		if e.LastInteraction != nil {
			props.LastInteraction = *e.LastInteraction
		}
		if err := g.UpsertFriendship(ctx, e.Owner, e.Friend, props); err != nil {
			return fmt.Errorf("seed graph: %w", err)
		}
	}
	for _, id := range sortedKeys(f.Graph.Presence) {
		if err := g.SetOnlineStatus(ctx, id, f.Graph.Presence[id]); err != nil {
			return fmt.Errorf("seed graph: %w", err)
		}
	}
	for _, grp := range f.Graph.Groups {
		if err := g.PutFriendGroup(ctx, grp.Owner, social.GroupView{Name: grp.Name, Members: grp.Members}); err != nil {
			return fmt.Errorf("seed graph: %w", err)
		}
	}
	for _, ev := range f.Graph.Interactions {
		if err := g.AppendInteraction(ctx, ev.Owner, ev.Friend, social.Interaction{Kind: ev.Kind, At: ev.At}); err != nil {
			return fmt.Errorf("seed graph: %w", err)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
