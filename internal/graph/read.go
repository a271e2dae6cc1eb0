package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/graphsync/internal/social"
)

// ListFriendships returns the edges touching userID, each seen from
// userID's side, ordered by friend ID.
func (s *Store) ListFriendships(ctx context.Context, userID string) ([]social.FriendshipView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT CASE WHEN lo = ? THEN hi ELSE lo END AS friend_id, status
		FROM edges
		WHERE lo = ? OR hi = ?
		ORDER BY friend_id ASC
	`, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list friendships %s: %w", userID, err)
	}
	defer rows.Close()

	views := []social.FriendshipView{}
	for rows.Next() {
		var v social.FriendshipView
		var status string
		if err := rows.Scan(&v.FriendID, &status); err != nil {
			return nil, fmt.Errorf("list friendships %s: scan: %w", userID, err)
		}
		v.Status = social.Status(status)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list friendships %s: iterate: %w", userID, err)
	}
	return views, nil
}

// GetOnlineStatus returns the presence flag of userID.
// Users with no recorded presence are offline.
func (s *Store) GetOnlineStatus(ctx context.Context, userID string) (bool, error) {
	var online int
	err := s.db.QueryRowContext(ctx, `SELECT is_online FROM presence WHERE user_id = ?`, userID).Scan(&online)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get online status %s: %w", userID, err)
	}
	return online != 0, nil
}

// ListFriendGroups returns the groups owned by userID, ordered by name,
// with members in insertion order.
func (s *Store) ListFriendGroups(ctx context.Context, userID string) ([]social.GroupView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.name, m.member_id
		FROM friend_groups g
		LEFT JOIN group_members m ON m.owner = g.owner AND m.name = g.name
		WHERE g.owner = ?
		ORDER BY g.name ASC, m.position ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list friend groups %s: %w", userID, err)
	}
	defer rows.Close()

	groups := []social.GroupView{}
	for rows.Next() {
		var name string
		var member sql.NullString
		if err := rows.Scan(&name, &member); err != nil {
			return nil, fmt.Errorf("list friend groups %s: scan: %w", userID, err)
		}
		if len(groups) == 0 || groups[len(groups)-1].Name != name {
			groups = append(groups, social.GroupView{Name: name, Members: []string{}})
		}
		if member.Valid {
			last := &groups[len(groups)-1]
			last.Members = append(last.Members, member.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list friend groups %s: iterate: %w", userID, err)
	}
	return groups, nil
}

// ListInteractionHistory returns the interaction events recorded on the
// edge between owner and friend, oldest first.
func (s *Store) ListInteractionHistory(ctx context.Context, owner, friend string) ([]social.Interaction, error) {
	lo, hi := social.CanonicalPair(owner, friend)
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, at FROM interactions
		WHERE lo = ? AND hi = ?
		ORDER BY seq ASC
	`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("list interactions %s-%s: %w", owner, friend, err)
	}
	defer rows.Close()

	events := []social.Interaction{}
	for rows.Next() {
		var ev social.Interaction
		var at string
		if err := rows.Scan(&ev.Kind, &at); err != nil {
			return nil, fmt.Errorf("list interactions %s-%s: scan: %w", owner, friend, err)
		}
		ev.At, err = time.Parse(timeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("list interactions %s-%s: parse time: %w", owner, friend, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list interactions %s-%s: iterate: %w", owner, friend, err)
	}
	return events, nil
}

// ListUsers returns every node ordered by ID.
func (s *Store) ListUsers(ctx context.Context) ([]social.UserNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, interests, activity_score FROM nodes ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []social.UserNode{}
	for rows.Next() {
		var n social.UserNode
		var interests string
		if err := rows.Scan(&n.ID, &n.Username, &interests, &n.ActivityScore); err != nil {
			return nil, fmt.Errorf("list nodes: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(interests), &n.Interests); err != nil {
			return nil, fmt.Errorf("list nodes: decode interests of %s: %w", n.ID, err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list nodes: iterate: %w", err)
	}
	return nodes, nil
}

// ListEdges returns every edge in canonical form (Owner = lo).
func (s *Store) ListEdges(ctx context.Context) ([]social.FriendshipEdge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lo, hi, status, interaction_count, last_interaction
		FROM edges ORDER BY lo ASC, hi ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()

	edges := []social.FriendshipEdge{}
	for rows.Next() {
		var e social.FriendshipEdge
		var status, last string
		if err := rows.Scan(&e.Owner, &e.Friend, &status, &e.InteractionCount, &last); err != nil {
			return nil, fmt.Errorf("list edges: scan: %w", err)
		}
		e.Status = social.Status(status)
		e.LastInteraction, err = time.Parse(timeLayout, last)
		if err != nil {
			return nil, fmt.Errorf("list edges: parse time: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list edges: iterate: %w", err)
	}
	return edges, nil
}

// Counts reports the number of nodes and edges.
func (s *Store) Counts(ctx context.Context) (nodes, edges int, err error) {
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&nodes); err != nil {
		return 0, 0, fmt.Errorf("count nodes: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&edges); err != nil {
		return 0, 0, fmt.Errorf("count edges: %w", err)
	}
	return nodes, edges, nil
}
