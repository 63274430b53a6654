package ports

import (
	"context"
	"time"

	"payout-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepository defines persistence operations for user accounts.
// Methods accepting pgx.Tx are used inside transaction blocks for
// pessimistic locking; all balance writes go through UpdateBalances.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByChatID(ctx context.Context, chatID string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error)
	UpdateBalances(ctx context.Context, tx pgx.Tx, id uuid.UUID, available, frozen decimal.Decimal) error
	List(ctx context.Context) ([]domain.Account, error)
}

// PaymentRequestRepository defines persistence for cash-out requests.
type PaymentRequestRepository interface {
	Create(ctx context.Context, tx pgx.Tx, request *domain.PaymentRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRequest, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PaymentRequest, error)
	Update(ctx context.Context, tx pgx.Tx, request *domain.PaymentRequest) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.PaymentRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.PaymentRequest, error)
}

// RequestFilter narrows admin/operator request listings.
type RequestFilter struct {
	Status    *domain.RequestStatus
	AccountID *uuid.UUID
	Urgency   *domain.Urgency
}

// DepositRepository defines persistence for incoming deposits.
type DepositRepository interface {
	Create(ctx context.Context, tx pgx.Tx, deposit *domain.Deposit) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deposit, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Deposit, error)
	Update(ctx context.Context, tx pgx.Tx, deposit *domain.Deposit) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Deposit, error)
	ListPending(ctx context.Context) ([]domain.Deposit, error)
	// AcquireMatcherLock serializes payable-amount assignment across
	// concurrent transactions. Held until the transaction ends.
	AcquireMatcherLock(ctx context.Context, tx pgx.Tx) error
	// ActivePayableAmounts returns the payable amounts of all pending
	// deposits. Expired rows count until the sweep flips them: the unique
	// index on pending payable amounts covers them too, so treating their
	// slot as free would fail the insert. Must be called inside the same
	// transaction that inserts the new deposit so two concurrent matchers
	// cannot both claim the same amount.
	ActivePayableAmounts(ctx context.Context, tx pgx.Tx) ([]decimal.Decimal, error)
	// FindPendingByPayableAmount resolves an observed transfer amount to
	// the oldest matching pending, unexpired deposit.
	FindPendingByPayableAmount(ctx context.Context, tx pgx.Tx, amount decimal.Decimal, now time.Time) (*domain.Deposit, error)
	// ExpireOverdue flips every pending deposit past its deadline to
	// expired, returning how many rows changed. Idempotent.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// NotificationRepository defines persistence for in-app notifications.
// Create accepts a nil tx for writes outside a transaction.
type NotificationRepository interface {
	Create(ctx context.Context, tx pgx.Tx, notification *domain.Notification) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Notification, error)
	CountUnread(ctx context.Context, accountID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

// OperatorRepository defines persistence for operator accounts.
type OperatorRepository interface {
	Create(ctx context.Context, operator *domain.Operator) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error)
	GetByLogin(ctx context.Context, login string) (*domain.Operator, error)
	List(ctx context.Context) ([]domain.Operator, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
