package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/notification"
)

func (s *Store) CreateNotification(_ context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *n
	cp.RelatedIDs = maps.Clone(n.RelatedIDs)
	s.notifications[n.ID] = &cp

	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID uuid.UUID, unreadOnly bool) ([]*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*notification.Notification

	for _, n := range s.notifications {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}

		cp := *n
		cp.RelatedIDs = maps.Clone(n.RelatedIDs)
		out = append(out, &cp)
	}

	slices.SortFunc(out, func(a, b *notification.Notification) int { return b.CreatedAt.Compare(a.CreatedAt) })

	return out, nil
}

func (s *Store) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return fmt.Errorf("notification %s: %w", id, notification.ErrNotFound)
	}

	n.Read = true

	return nil
}
