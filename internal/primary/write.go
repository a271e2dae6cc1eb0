package primary

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/graphsync/internal/social"
)

// PutUser inserts or replaces a user document.
// An existing user keeps its enumeration position.
func (s *Store) PutUser(ctx context.Context, rec social.UserRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("put user: empty id")
	}

	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("put user %s: marshal: %w", rec.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, doc)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username, doc = excluded.doc
	`, rec.ID, rec.Username, string(doc))
	if err != nil {
		return fmt.Errorf("put user %s: %w", rec.ID, err)
	}
	return nil
}

// SetNeighbors replaces the flat neighbor list of a user.
// Duplicate friend IDs are collapsed, keeping the first position.
func (s *Store) SetNeighbors(ctx context.Context, userID string, friends []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set neighbors %s: begin tx: %w", userID, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_friends WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("set neighbors %s: delete: %w", userID, err)
	}

	for i, friendID := range friends {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_friends (user_id, friend_id, position)
			VALUES (?, ?, ?)
			ON CONFLICT(user_id, friend_id) DO NOTHING
		`, userID, friendID, i)
		if err != nil {
			return fmt.Errorf("set neighbors %s: insert %s: %w", userID, friendID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set neighbors %s: commit: %w", userID, err)
	}
	return nil
}
