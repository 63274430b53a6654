package ports

import (
	"context"
	"time"

	"payout-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateSource supplies the current RUB/USDT exchange rate. The core snapshots
// it once per payment request and never calls back for that request.
type RateSource interface {
	CurrentRate(ctx context.Context) (decimal.Decimal, error)
}

// Notifier is the fire-and-forget delivery sink for user-facing messages.
// Called only after a financial transition committed; a delivery failure is
// logged by the implementation and never propagated.
type Notifier interface {
	Notify(ctx context.Context, chatID string, message string)
}

// HashService handles operator password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// AdminVerifier is the opaque admin shared-secret check.
type AdminVerifier interface {
	Verify(password string) bool
}

// TokenService issues and validates session tokens for staff principals.
type TokenService interface {
	Generate(subject uuid.UUID, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed session token claims.
type TokenClaims struct {
	Subject uuid.UUID
	Role    domain.Role
}

// --- Service Ports (Business Logic) ---

// AccountService exposes user account and balance reads plus administrative
// balance mutations.
type AccountService interface {
	GetOrCreate(ctx context.Context, chatID, username string) (*domain.Account, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	ListAll(ctx context.Context) ([]domain.Account, error)
	SetBalances(ctx context.Context, accountID uuid.UUID, available, frozen decimal.Decimal) (*domain.Account, error)
	CreditManual(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*domain.Account, error)
}

// PaymentRequestService drives the cash-out request lifecycle.
type PaymentRequestService interface {
	Create(ctx context.Context, req CreateRequestInput) (*domain.PaymentRequest, error)
	Approve(ctx context.Context, requestID uuid.UUID) (*domain.PaymentRequest, error)
	Cancel(ctx context.Context, requestID uuid.UUID) (*domain.PaymentRequest, error)
	Process(ctx context.Context, req ProcessRequestInput) (*domain.PaymentRequest, error)
	Get(ctx context.Context, requestID uuid.UUID) (*domain.PaymentRequest, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.PaymentRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.PaymentRequest, error)
}

// CreateRequestInput holds validated input for request submission.
type CreateRequestInput struct {
	AccountID uuid.UUID
	AmountRub decimal.Decimal
	Urgency   domain.Urgency
	Comment   string
}

// ProcessRequestInput holds the combined operator/admin decision path:
// an optional amount edit plus a status decision and optional receipt.
type ProcessRequestInput struct {
	RequestID    uuid.UUID
	Status       domain.RequestStatus // paid, rejected or processing
	NewAmountRub *decimal.Decimal     // nil = no amount edit
	Receipt      *domain.Receipt
	AdminComment string
}

// DepositService drives the incoming-deposit lifecycle.
type DepositService interface {
	CreateAutomated(ctx context.Context, accountID uuid.UUID, requestedAmount decimal.Decimal) (*domain.Deposit, error)
	Confirm(ctx context.Context, depositID uuid.UUID, confirmedBy string) (*domain.Deposit, error)
	// ConfirmObserved is the blockchain-observer path: resolves the pending
	// deposit by exact payable amount and credits the actually observed
	// amount atomically with the status flip.
	ConfirmObserved(ctx context.Context, payableAmount, actualAmount decimal.Decimal, txHash string) (*domain.Deposit, error)
	Reject(ctx context.Context, depositID uuid.UUID) (*domain.Deposit, error)
	ExpireOverdue(ctx context.Context) (int64, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Deposit, error)
	ListPending(ctx context.Context) ([]domain.Deposit, error)
}

// NotificationService exposes the in-app notification feed.
type NotificationService interface {
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Notification, error)
	CountUnread(ctx context.Context, accountID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

// AuthService authenticates staff principals and manages operators.
type AuthService interface {
	AdminLogin(ctx context.Context, password string) (string, time.Time, error)
	OperatorLogin(ctx context.Context, login, password string) (*domain.Operator, string, time.Time, error)
	CreateOperator(ctx context.Context, login, password string) (*domain.Operator, error)
	ListOperators(ctx context.Context) ([]domain.Operator, error)
	SetOperatorActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteOperator(ctx context.Context, id uuid.UUID) error
}
