package primary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/graphsync/internal/social"
)

// ListUsers returns every user document in insertion order.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListUsers(ctx context.Context) ([]social.UserRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, doc FROM users ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []social.UserRecord{}
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		rec, err := unmarshalUser(doc)
		if err != nil {
			return nil, fmt.Errorf("decode user %s: %w", id, err)
		}
		users = append(users, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// ListNeighbors returns every user with its flat neighbor list, in
// insertion order. Users without neighbors carry an empty list.
func (s *Store) ListNeighbors(ctx context.Context) ([]social.NeighborRecord, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, friend_id FROM user_friends
		ORDER BY user_id ASC, position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query neighbors: %w", err)
	}
	defer rows.Close()

	friends := make(map[string][]string)
	for rows.Next() {
		var userID, friendID string
		if err := rows.Scan(&userID, &friendID); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		friends[userID] = append(friends[userID], friendID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighbors: %w", err)
	}

	out := make([]social.NeighborRecord, len(users))
	for i, u := range users {
		list := friends[u.ID]
		if list == nil {
			list = []string{}
		}
		out[i] = social.NeighborRecord{User: u, Friends: list}
	}
	return out, nil
}

// CountUsers returns the number of stored users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// unmarshalUser decodes a stored document. Numbers are kept as
// json.Number so loosely typed fields reach the projector untouched.
func unmarshalUser(doc string) (social.UserRecord, error) {
	var rec social.UserRecord
	dec := json.NewDecoder(bytes.NewReader([]byte(doc)))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return social.UserRecord{}, err
	}
	return rec, nil
}
