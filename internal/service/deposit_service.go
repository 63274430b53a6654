package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payout-gateway/internal/core/domain"
	"payout-gateway/internal/core/ports"
	"payout-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DepositConfig carries the deposit policy knobs from configuration.
type DepositConfig struct {
	MinAmount     decimal.Decimal
	MaxAmount     decimal.Decimal
	Expiration    time.Duration
	WalletAddress string
}

// DepositServiceImpl implements ports.DepositService.
type DepositServiceImpl struct {
	depositRepo ports.DepositRepository
	accountRepo ports.AccountRepository
	notifRepo   ports.NotificationRepository
	notifier    ports.Notifier
	transactor  ports.DBTransactor
	cfg         DepositConfig
	log         zerolog.Logger
}

// NewDepositService creates a new DepositServiceImpl.
func NewDepositService(
	depositRepo ports.DepositRepository,
	accountRepo ports.AccountRepository,
	notifRepo ports.NotificationRepository,
	notifier ports.Notifier,
	transactor ports.DBTransactor,
	cfg DepositConfig,
	log zerolog.Logger,
) *DepositServiceImpl {
	return &DepositServiceImpl{
		depositRepo: depositRepo,
		accountRepo: accountRepo,
		notifRepo:   notifRepo,
		notifier:    notifier,
		transactor:  transactor,
		cfg:         cfg,
		log:         log,
	}
}

// CreateAutomated registers a pending deposit and assigns it a payable
// amount no other active deposit uses. The active-set read and the insert
// happen in one transaction under an advisory lock, so concurrent calls
// with the same requested amount get distinct payable amounts.
func (s *DepositServiceImpl) CreateAutomated(ctx context.Context, accountID uuid.UUID, requestedAmount decimal.Decimal) (*domain.Deposit, error) {
	if requestedAmount.LessThan(s.cfg.MinAmount) || requestedAmount.GreaterThan(s.cfg.MaxAmount) {
		return nil, apperror.ErrDepositOutOfBounds(s.cfg.MinAmount, s.cfg.MaxAmount)
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.depositRepo.AcquireMatcherLock(ctx, dbTx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("acquire matcher lock: %w", err))
	}

	now := time.Now().UTC()
	active, err := s.depositRepo.ActivePayableAmounts(ctx, dbTx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("read active amounts: %w", err))
	}
	used := make(map[string]struct{}, len(active))
	for _, a := range active {
		used[payableKey(a)] = struct{}{}
	}

	payable, err := uniquePayableAmount(requestedAmount, used)
	if err != nil {
		if errors.Is(err, errAmountExhausted) {
			return nil, apperror.ErrAmountExhausted(requestedAmount)
		}
		return nil, apperror.InternalError(err)
	}

	deposit := &domain.Deposit{
		ID:              uuid.New(),
		AccountID:       accountID,
		RequestedAmount: requestedAmount.Round(domain.ScaleUsdt),
		PayableAmount:   payable,
		Status:          domain.DepositStatusPending,
		WalletAddress:   s.cfg.WalletAddress,
		ExpiresAt:       now.Add(s.cfg.Expiration),
		CreatedAt:       now,
	}
	if err := s.depositRepo.Create(ctx, dbTx, deposit); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create deposit: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("deposit_id", deposit.ID.String()).
		Str("account_id", accountID.String()).
		Str("requested", requestedAmount.String()).
		Str("payable", payable.String()).
		Msg("automated deposit created")

	return deposit, nil
}

// Confirm is the manual staff path: credits the requested amount and flips
// the deposit to confirmed atomically.
func (s *DepositServiceImpl) Confirm(ctx context.Context, depositID uuid.UUID, confirmedBy string) (*domain.Deposit, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	deposit, err := s.depositRepo.GetByIDForUpdate(ctx, dbTx, depositID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock deposit: %w", err))
	}
	if deposit == nil {
		return nil, apperror.ErrNotFound("deposit")
	}
	if deposit.IsTerminal() {
		return nil, apperror.ErrAlreadyFinalized(string(deposit.Status))
	}

	deposit, err = s.credit(ctx, dbTx, deposit, deposit.RequestedAmount, &confirmedBy, nil)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.afterConfirm(ctx, deposit, deposit.RequestedAmount)
	return deposit, nil
}

// ConfirmObserved is the observer path: an on-chain transfer of amount
// payableAmount was seen, so resolve it to the pending deposit carrying
// that exact amount and credit what actually arrived.
func (s *DepositServiceImpl) ConfirmObserved(ctx context.Context, payableAmount, actualAmount decimal.Decimal, txHash string) (*domain.Deposit, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	deposit, err := s.depositRepo.FindPendingByPayableAmount(ctx, dbTx, payableAmount.Round(domain.ScalePayable), time.Now().UTC())
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find deposit by amount: %w", err))
	}
	if deposit == nil {
		return nil, apperror.ErrNotFound("deposit")
	}

	credited := actualAmount.Round(domain.ScaleUsdt)
	deposit, err = s.credit(ctx, dbTx, deposit, credited, nil, &txHash)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.afterConfirm(ctx, deposit, credited)
	return deposit, nil
}

// credit applies the confirmation inside an open transaction: lock the
// account, add the amount, flip the deposit and write the notification row.
func (s *DepositServiceImpl) credit(ctx context.Context, dbTx pgx.Tx, deposit *domain.Deposit, amount decimal.Decimal, confirmedBy, txHash *string) (*domain.Deposit, error) {
	account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, deposit.AccountID)
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

	now := time.Now().UTC()
	deposit.Status = domain.DepositStatusConfirmed
	deposit.ConfirmedAt = &now
	deposit.ConfirmedBy = confirmedBy
	if txHash != nil {
		deposit.TxHash = txHash
	}
	if err := s.depositRepo.Update(ctx, dbTx, deposit); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update deposit: %w", err))
	}

	n := &domain.Notification{
		ID:        uuid.New(),
		AccountID: account.ID,
		Message:   fmt.Sprintf("Deposit of %s USDT confirmed and credited", amount),
		CreatedAt: now,
	}
	if err := s.notifRepo.Create(ctx, dbTx, n); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create notification: %w", err))
	}

	return deposit, nil
}

func (s *DepositServiceImpl) afterConfirm(ctx context.Context, deposit *domain.Deposit, amount decimal.Decimal) {
	account, err := s.accountRepo.GetByID(ctx, deposit.AccountID)
	if err != nil || account == nil {
		s.log.Warn().Err(err).Str("deposit_id", deposit.ID.String()).Msg("account lookup for notification failed")
	} else {
		s.notifier.Notify(ctx, account.ChatID, fmt.Sprintf("Deposit of %s USDT confirmed and credited", amount))
	}

	s.log.Info().
		Str("deposit_id", deposit.ID.String()).
		Str("credited", amount.String()).
		Msg("deposit confirmed")
}

// Reject flips a pending deposit to rejected. No ledger effect: nothing was
// reserved for deposits.
func (s *DepositServiceImpl) Reject(ctx context.Context, depositID uuid.UUID) (*domain.Deposit, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	deposit, err := s.depositRepo.GetByIDForUpdate(ctx, dbTx, depositID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock deposit: %w", err))
	}
	if deposit == nil {
		return nil, apperror.ErrNotFound("deposit")
	}
	if deposit.IsTerminal() {
		return nil, apperror.ErrAlreadyFinalized(string(deposit.Status))
	}

	deposit.Status = domain.DepositStatusRejected
	if err := s.depositRepo.Update(ctx, dbTx, deposit); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update deposit: %w", err))
	}

	n := &domain.Notification{
		ID:        uuid.New(),
		AccountID: deposit.AccountID,
		Message:   fmt.Sprintf("Deposit of %s USDT was rejected", deposit.RequestedAmount),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.notifRepo.Create(ctx, dbTx, n); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create notification: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if account, err := s.accountRepo.GetByID(ctx, deposit.AccountID); err == nil && account != nil {
		s.notifier.Notify(ctx, account.ChatID, n.Message)
	}
	s.log.Info().Str("deposit_id", deposit.ID.String()).Msg("deposit rejected")

	return deposit, nil
}

// ExpireOverdue sweeps pending deposits past their deadline. Run
// periodically; safe to call concurrently.
func (s *DepositServiceImpl) ExpireOverdue(ctx context.Context) (int64, error) {
	expired, err := s.depositRepo.ExpireOverdue(ctx, time.Now().UTC())
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("expire deposits: %w", err))
	}
	if expired > 0 {
		s.log.Info().Int64("count", expired).Msg("expired overdue deposits")
	}
	return expired, nil
}

// ListByAccount returns the account's deposit history.
func (s *DepositServiceImpl) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Deposit, error) {
	deposits, err := s.depositRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list deposits: %w", err))
	}
	return deposits, nil
}

// ListPending returns all pending deposits for the staff view.
func (s *DepositServiceImpl) ListPending(ctx context.Context) ([]domain.Deposit, error) {
	deposits, err := s.depositRepo.ListPending(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list pending deposits: %w", err))
	}
	return deposits, nil
}
