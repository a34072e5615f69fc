package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/fanout"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

var ErrNotFound = ledger.ErrNotFound

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=notification
type Repository interface {
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*Notification, error)
	// MarkRead flags a notification of userID as read, or returns ErrNotFound.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

type Params struct {
	UserID     uuid.UUID
	Type       Type
	Title      string
	Content    string
	RelatedIDs map[string]uuid.UUID
}

type Service struct {
	repo   Repository
	pub    fanout.Publisher
	now    func() time.Time
	logger *slog.Logger
}

func NewService(repo Repository, pub fanout.Publisher, logger *slog.Logger) *Service {
	if pub == nil {
		pub = fanout.NopPublisher{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{repo: repo, pub: pub, now: time.Now, logger: logger}
}

// Create persists a notification and pushes it to the recipient's channel. A failed push is
// logged; the stored notification is still returned.
func (s *Service) Create(ctx context.Context, params Params) (*Notification, error) {
	if params.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: notification recipient is required", ledger.ErrInvalid)
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: notification title is required", ledger.ErrInvalid)
	}

	n := &Notification{
		ID:         uuid.New(),
		UserID:     params.UserID,
		Type:       params.Type,
		Title:      title,
		Content:    strings.TrimSpace(params.Content),
		RelatedIDs: params.RelatedIDs,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	if err := s.pub.Publish(ctx, fanout.UserChannel(n.UserID), fanout.NotificationCreated, n); err != nil {
		s.logger.Warn("failed to push notification", "notification_id", n.ID, "user_id", n.UserID, "error", err)
	}

	return n, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*Notification, error) {
	return s.repo.ListNotifications(ctx, userID, unreadOnly)
}

func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}

		return fmt.Errorf("mark notification read: %w", err)
	}

	return nil
}
