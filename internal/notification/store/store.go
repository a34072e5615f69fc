package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/notification"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateNotification(ctx context.Context, n *notification.Notification) error {
	related, err := json.Marshal(n.RelatedIDs)
	if err != nil {
		return fmt.Errorf("encoding related ids: %w", err)
	}

	query := `
		INSERT INTO notifications (id, user_id, type, title, content, related_ids, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
	`

	if _, err := s.db.ExecContext(ctx, query, n.ID, n.UserID, n.Type, n.Title, n.Content, related, n.CreatedAt); err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}

	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*notification.Notification, error) {
	query := `
		SELECT id, user_id, type, title, content, related_ids, read, created_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR read = FALSE)
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []*notification.Notification

	for rows.Next() {
		var n notification.Notification

		var typeStr string

		var related []byte

		if err := rows.Scan(&n.ID, &n.UserID, &typeStr, &n.Title, &n.Content, &related, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}

		n.Type = notification.Type(typeStr)

		if err := json.Unmarshal(related, &n.RelatedIDs); err != nil {
			return nil, fmt.Errorf("decoding related ids: %w", err)
		}

		out = append(out, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notification rows: %w", err)
	}

	return out, nil
}

func (s *Store) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("notification %s: %w", id, notification.ErrNotFound)
	}

	return nil
}
