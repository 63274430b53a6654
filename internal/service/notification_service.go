package service

import (
	"context"
	"fmt"

	"payout-gateway/internal/core/domain"
	"payout-gateway/internal/core/ports"
	"payout-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// NotificationServiceImpl implements ports.NotificationService. Thin read
// layer: notification rows are written by the financial services inside
// their transactions.
type NotificationServiceImpl struct {
	notifRepo ports.NotificationRepository
}

// NewNotificationService creates a new NotificationServiceImpl.
func NewNotificationService(notifRepo ports.NotificationRepository) *NotificationServiceImpl {
	return &NotificationServiceImpl{notifRepo: notifRepo}
}

func (s *NotificationServiceImpl) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Notification, error) {
	notifications, err := s.notifRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list notifications: %w", err))
	}
	return notifications, nil
}

func (s *NotificationServiceImpl) CountUnread(ctx context.Context, accountID uuid.UUID) (int64, error) {
	count, err := s.notifRepo.CountUnread(ctx, accountID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("count unread: %w", err))
	}
	return count, nil
}

func (s *NotificationServiceImpl) MarkRead(ctx context.Context, id uuid.UUID) error {
	if err := s.notifRepo.MarkRead(ctx, id); err != nil {
		return apperror.InternalError(fmt.Errorf("mark read: %w", err))
	}
	return nil
}
