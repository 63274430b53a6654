package postgres

import (
	"context"
	"errors"
	"fmt"

	"payout-gateway/internal/core/domain"
	"payout-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRequestRepo implements ports.PaymentRequestRepository. The receipt
// is stored as a JSONB column; pgx maps it through the struct's JSON tags.
type PaymentRequestRepo struct {
	pool Pool
}

// NewPaymentRequestRepo creates a new PaymentRequestRepo.
func NewPaymentRequestRepo(pool Pool) *PaymentRequestRepo {
	return &PaymentRequestRepo{pool: pool}
}

const requestColumns = `id, account_id, amount_rub, amount_usdt, frozen_rate, urgency, status, comment, receipt, admin_comment, created_at`

func scanRequest(row pgx.Row) (*domain.PaymentRequest, error) {
	r := &domain.PaymentRequest{}
	err := row.Scan(
		&r.ID, &r.AccountID, &r.AmountRub, &r.AmountUsdt, &r.FrozenRate,
		&r.Urgency, &r.Status, &r.Comment, &r.Receipt, &r.AdminComment, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

// Create inserts a new payment request within a transaction.
func (r *PaymentRequestRepo) Create(ctx context.Context, tx pgx.Tx, req *domain.PaymentRequest) error {
	query := `INSERT INTO payment_requests
		(id, account_id, amount_rub, amount_usdt, frozen_rate, urgency, status, comment, receipt, admin_comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		req.ID, req.AccountID, req.AmountRub, req.AmountUsdt, req.FrozenRate,
		req.Urgency, req.Status, req.Comment, req.Receipt, req.AdminComment, req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment request: %w", err)
	}
	return nil
}

// GetByID fetches a request by its UUID (without locking).
func (r *PaymentRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM payment_requests WHERE id = $1`

	req, err := scanRequest(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get payment request: %w", err)
	}
	return req, nil
}

// GetByIDForUpdate fetches a request with pessimistic locking.
// This MUST be called within a transaction.
func (r *PaymentRequestRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PaymentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM payment_requests WHERE id = $1 FOR UPDATE`

	req, err := scanRequest(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get payment request for update: %w", err)
	}
	return req, nil
}

// Update writes the request's mutable fields within a transaction.
func (r *PaymentRequestRepo) Update(ctx context.Context, tx pgx.Tx, req *domain.PaymentRequest) error {
	query := `UPDATE payment_requests
		SET amount_rub = $1, amount_usdt = $2, status = $3, receipt = $4, admin_comment = $5
		WHERE id = $6`

	tag, err := tx.Exec(ctx, query,
		req.AmountRub, req.AmountUsdt, req.Status, req.Receipt, req.AdminComment, req.ID,
	)
	if err != nil {
		return fmt.Errorf("update payment request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment request not found: %s", req.ID)
	}
	return nil
}

// ListByAccount returns the account's requests, newest first.
func (r *PaymentRequestRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.PaymentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM payment_requests WHERE account_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list payment requests: %w", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

// List returns requests matching the filter, urgent first then oldest first
// so the operator queue surfaces the most pressing work.
func (r *PaymentRequestRepo) List(ctx context.Context, filter ports.RequestFilter) ([]domain.PaymentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM payment_requests WHERE 1=1`
	var args []any

	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		query += fmt.Sprintf(" AND account_id = $%d", len(args))
	}
	if filter.Urgency != nil {
		args = append(args, *filter.Urgency)
		query += fmt.Sprintf(" AND urgency = $%d", len(args))
	}
	query += ` ORDER BY urgency = 'urgent' DESC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payment requests: %w", err)
	}
	defer rows.Close()

	return collectRequests(rows)
}

func collectRequests(rows pgx.Rows) ([]domain.PaymentRequest, error) {
	var requests []domain.PaymentRequest
	for rows.Next() {
		var req domain.PaymentRequest
		err := rows.Scan(
			&req.ID, &req.AccountID, &req.AmountRub, &req.AmountUsdt, &req.FrozenRate,
			&req.Urgency, &req.Status, &req.Comment, &req.Receipt, &req.AdminComment, &req.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payment request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
