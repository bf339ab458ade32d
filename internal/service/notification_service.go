package service

import (
	"context"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
)

// NotificationService records like/comment/follow events and serves the
// recipient's notification list.
type NotificationService struct {
	notifications domain.NotificationRepository
	log           zerolog.Logger
}

func NewNotificationService(notifications domain.NotificationRepository, log zerolog.Logger) *NotificationService {
	return &NotificationService{notifications: notifications, log: log}
}

// Notify writes a notification as a side effect of a primary action.
// Failures are logged and swallowed; they must never block the action that
// triggered them.
func (s *NotificationService) Notify(ctx context.Context, n domain.Notification) {
	if n.Recipient == n.Sender {
		return
	}
	if err := s.notifications.Create(ctx, &n); err != nil {
		s.log.Error().Err(err).
			Str("recipient", n.Recipient.Hex()).
			Str("type", n.Type).
			Msg("create notification")
	}
}

type NotificationPage struct {
	Items       []*domain.Notification `json:"items"`
	UnreadCount int64                  `json:"unreadCount"`
}

func (s *NotificationService) List(ctx context.Context, recipient primitive.ObjectID, page, limit int) (*NotificationPage, error) {
	items, err := s.notifications.ListForRecipient(ctx, recipient, page, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.CountUnread(ctx, recipient)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{Items: items, UnreadCount: unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id, recipient primitive.ObjectID) error {
	return s.notifications.MarkRead(ctx, id, recipient)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipient primitive.ObjectID) error {
	return s.notifications.MarkAllRead(ctx, recipient)
}

func (s *NotificationService) Delete(ctx context.Context, id, recipient primitive.ObjectID) error {
	return s.notifications.SoftDelete(ctx, id, recipient)
}

func (s *NotificationService) Clear(ctx context.Context, recipient primitive.ObjectID) error {
	return s.notifications.ClearFor(ctx, recipient)
}
