package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"kpi-service/internal/models"
	"kpi-service/internal/repository"
)

// Notifier dispatches a stored notification to one user. The workflow and
// admin services depend on this interface so tests can capture fan-out
// without a database.
type Notifier interface {
	Dispatch(ctx context.Context, userID uuid.UUID, notifType, message string, metadata map[string]interface{}) error
}

// NotificationService stores and reads per-user notifications. Dispatch is
// append-only; it never mutates workflow entities.
type NotificationService struct {
	repo   repository.NotificationRepositoryInterface
	logger *logrus.Entry
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repo repository.NotificationRepositoryInterface, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		logger: logger.WithField("component", "notification_service"),
	}
}

var _ Notifier = (*NotificationService)(nil)

// Dispatch resolves the type's template and stores a notification row. The
// title, priority and action-required flag come from the template; the
// message and metadata come from the caller.
func (s *NotificationService) Dispatch(ctx context.Context, userID uuid.UUID, notifType, message string, metadata map[string]interface{}) error {
	tpl := models.TemplateFor(notifType)

	notification := &models.Notification{
		UserID:         userID,
		Type:           notifType,
		Title:          tpl.Title,
		Message:        message,
		Priority:       tpl.Priority,
		ActionRequired: tpl.ActionRequired,
	}

	if len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		notification.Metadata = datatypes.JSON(data)
		if url, ok := metadata["actionUrl"].(string); ok {
			notification.ActionURL = url
		}
	}

	if err := s.repo.CreateNotification(ctx, notification); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"userId": userID,
		"type":   notifType,
	}).Debug("Notification dispatched")
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, unreadOnly, limit, offset)
}

// CountUnread returns the number of unread notifications for a user.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks one notification as read. The user scope prevents reading
// someone else's notification by ID.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	err := s.repo.MarkRead(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

// MarkAllRead marks every unread notification for a user as read and returns
// how many were flipped.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
