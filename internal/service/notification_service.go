package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/sams-edu/attendance-api/internal/models"
	appErrors "github.com/sams-edu/attendance-api/pkg/errors"
)

type notificationRepository interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}

// NotificationService lists and acknowledges a user's notifications.
type NotificationService struct {
	notifications notificationRepository
	logger        *zap.Logger
}

// NewNotificationService constructs the notification service.
func NewNotificationService(notifications notificationRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{notifications: notifications, logger: logger}
}

// List returns the actor's own notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor models.Actor, limit int) ([]models.Notification, error) {
	rows, err := s.notifications.ListByUser(ctx, actor.UserID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return rows, nil
}

// MarkRead flags one of the actor's notifications as read. The user scope in
// the update means acknowledging someone else's notification is a silent
// no-op.
func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, notificationID string) error {
	if err := s.notifications.MarkRead(ctx, actor.UserID, notificationID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}
