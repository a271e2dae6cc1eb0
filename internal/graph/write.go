package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/graphsync/internal/social"
)

// UpsertUser creates or updates a node by ID.
// Rows whose content hash is unchanged are left untouched.
func (s *Store) UpsertUser(ctx context.Context, node social.UserNode) error {
	if node.ID == "" {
		return fmt.Errorf("upsert user: empty id")
	}

	interests := node.Interests
	if interests == nil {
		interests = []string{}
	}
	interestsJSON, err := json.Marshal(interests)
	if err != nil {
		return fmt.Errorf("upsert user %s: marshal interests: %w", node.ID, err)
	}

	hash, err := social.NodeHash(node)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", node.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, username, interests, activity_score, content_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			interests = excluded.interests,
			activity_score = excluded.activity_score,
			content_hash = excluded.content_hash
		WHERE nodes.content_hash != excluded.content_hash
	`, node.ID, node.Username, string(interestsJSON), node.ActivityScore, hash)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", node.ID, err)
	}
	return nil
}

// UpsertFriendship creates or updates the undirected edge between owner
// and friend. Both nodes must already exist.
func (s *Store) UpsertFriendship(ctx context.Context, owner, friend string, props social.EdgeProps) error {
	if owner == "" || friend == "" || owner == friend {
		return fmt.Errorf("upsert friendship %q-%q: invalid pair", owner, friend)
	}
	if props.InteractionCount < 0 {
		return fmt.Errorf("upsert friendship %s-%s: negative interaction count", owner, friend)
	}

	edge := social.FriendshipEdge{Owner: owner, Friend: friend, EdgeProps: props}
	hash, err := social.EdgeHash(edge)
	if err != nil {
		return fmt.Errorf("upsert friendship %s-%s: %w", owner, friend, err)
	}
	lo, hi := edge.Pair()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO edges (lo, hi, status, interaction_count, last_interaction, content_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(lo, hi) DO UPDATE SET
			status = excluded.status,
			interaction_count = excluded.interaction_count,
			last_interaction = excluded.last_interaction,
			content_hash = excluded.content_hash
		WHERE edges.content_hash != excluded.content_hash
	`, lo, hi, string(props.Status), props.InteractionCount,
		props.LastInteraction.UTC().Format(timeLayout), hash)
	if err != nil {
		return fmt.Errorf("upsert friendship %s-%s: %w", owner, friend, err)
	}
	return nil
}

// SetOnlineStatus records the presence flag of an existing node.
func (s *Store) SetOnlineStatus(ctx context.Context, userID string, online bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO presence (user_id, is_online) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET is_online = excluded.is_online
	`, userID, boolToInt(online))
	if err != nil {
		return fmt.Errorf("set online status %s: %w", userID, err)
	}
	return nil
}

// PutFriendGroup creates or replaces a named group of an owner.
// Duplicate member IDs are collapsed.
func (s *Store) PutFriendGroup(ctx context.Context, owner string, group social.GroupView) error {
	if group.Name == "" {
		return fmt.Errorf("put friend group %s: empty name", owner)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put friend group %s/%s: begin tx: %w", owner, group.Name, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO friend_groups (owner, name) VALUES (?, ?)
		ON CONFLICT(owner, name) DO NOTHING
	`, owner, group.Name); err != nil {
		return fmt.Errorf("put friend group %s/%s: %w", owner, group.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE owner = ? AND name = ?`, owner, group.Name); err != nil {
		return fmt.Errorf("put friend group %s/%s: clear members: %w", owner, group.Name, err)
	}
	for i, member := range group.Members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO group_members (owner, name, member_id, position) VALUES (?, ?, ?, ?)
			ON CONFLICT(owner, name, member_id) DO NOTHING
		`, owner, group.Name, member, i); err != nil {
			return fmt.Errorf("put friend group %s/%s: member %s: %w", owner, group.Name, member, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put friend group %s/%s: commit: %w", owner, group.Name, err)
	}
	return nil
}

// AppendInteraction records one interaction event on an existing edge.
func (s *Store) AppendInteraction(ctx context.Context, owner, friend string, ev social.Interaction) error {
	lo, hi := social.CanonicalPair(owner, friend)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interactions (lo, hi, kind, at) VALUES (?, ?, ?, ?)
	`, lo, hi, ev.Kind, ev.At.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("append interaction %s-%s: %w", owner, friend, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
