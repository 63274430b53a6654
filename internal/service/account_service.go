package service

import (
	"context"
	"fmt"
	"time"

	"payout-gateway/internal/core/domain"
	"payout-gateway/internal/core/ports"
	"payout-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AccountServiceImpl implements ports.AccountService.
type AccountServiceImpl struct {
	accountRepo ports.AccountRepository
	notifRepo   ports.NotificationRepository
	notifier    ports.Notifier
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewAccountService creates a new AccountServiceImpl.
func NewAccountService(
	accountRepo ports.AccountRepository,
	notifRepo ports.NotificationRepository,
	notifier ports.Notifier,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *AccountServiceImpl {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		notifRepo:   notifRepo,
		notifier:    notifier,
		transactor:  transactor,
		log:         log,
	}
}

// GetOrCreate resolves the account for a chat-platform user, registering it
// with zero balances on first contact.
func (s *AccountServiceImpl) GetOrCreate(ctx context.Context, chatID, username string) (*domain.Account, error) {
	if chatID == "" {
		return nil, apperror.Validation("chat_id is required")
	}

	account, err := s.accountRepo.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account != nil {
		return account, nil
	}

	account = &domain.Account{
		ID:           uuid.New(),
		ChatID:       chatID,
		Username:     username,
		Available:    decimal.Zero,
		Frozen:       decimal.Zero,
		RegisteredAt: time.Now().UTC(),
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("chat_id", chatID).
		Msg("account registered")

	return account, nil
}

// Get returns an account by ID.
func (s *AccountServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	return account, nil
}

// ListAll returns every account for the admin overview.
func (s *AccountServiceImpl) ListAll(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accountRepo.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list accounts: %w", err))
	}
	return accounts, nil
}

// SetBalances overwrites both balances directly. Administrative escape
// hatch: no invariant beyond non-negativity is enforced.
func (s *AccountServiceImpl) SetBalances(ctx context.Context, accountID uuid.UUID, available, frozen decimal.Decimal) (*domain.Account, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}

	if err := account.SetBalances(available.Round(domain.ScaleUsdt), frozen.Round(domain.ScaleUsdt)); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	if err := s.accountRepo.UpdateBalances(ctx, dbTx, account.ID, account.Available, account.Frozen); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balances: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("available", account.Available.String()).
		Str("frozen", account.Frozen.String()).
		Msg("balances overwritten by admin")

	return account, nil
}

// CreditManual adds funds to the available balance outside the deposit flow
// (support compensation, promo).
func (s *AccountServiceImpl) CreditManual(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*domain.Account, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	amount = amount.Round(domain.ScaleUsdt)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}

	account.Credit(amount)
	if err := s.accountRepo.UpdateBalances(ctx, dbTx, account.ID, account.Available, account.Frozen); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balances: %w", err))
	}

	msg := fmt.Sprintf("Balance credited with %s USDT", amount)
	n := &domain.Notification{
		ID:        uuid.New(),
		AccountID: account.ID,
		Message:   msg,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.notifRepo.Create(ctx, dbTx, n); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create notification: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.notifier.Notify(ctx, account.ChatID, msg)
	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("amount", amount.String()).
		Msg("manual credit applied")

	return account, nil
}
