package postgres

import (
	"context"
	"fmt"

	"payout-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// NotificationRepo implements ports.NotificationRepository.
type NotificationRepo struct {
	pool Pool
}

// NewNotificationRepo creates a new NotificationRepo.
func NewNotificationRepo(pool Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// Create inserts a notification. Runs on tx when one is given so the row
// commits atomically with the financial transition that caused it; a nil tx
// writes directly through the pool.
func (r *NotificationRepo) Create(ctx context.Context, tx pgx.Tx, n *domain.Notification) error {
	query := `INSERT INTO notifications (id, account_id, request_id, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	var err error
	if tx != nil {
		_, err = tx.Exec(ctx, query, n.ID, n.AccountID, n.RequestID, n.Message, n.Read, n.CreatedAt)
	} else {
		_, err = r.pool.Exec(ctx, query, n.ID, n.AccountID, n.RequestID, n.Message, n.Read, n.CreatedAt)
	}
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListByAccount returns the account's notifications, newest first.
func (r *NotificationRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Notification, error) {
	query := `SELECT id, account_id, request_id, message, read, created_at
		FROM notifications WHERE account_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.AccountID, &n.RequestID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// CountUnread returns the number of unread notifications for the account.
func (r *NotificationRepo) CountUnread(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE account_id = $1 AND read = FALSE`

	var count int64
	if err := r.pool.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flags a notification as read.
func (r *NotificationRepo) MarkRead(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification not found: %s", id)
	}
	return nil
}
