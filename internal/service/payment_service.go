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

// amountEditEpsilon: RUB edits below one kopeck are treated as no-ops so
// operators can resubmit a decision form without touching the ledger.
var amountEditEpsilon = decimal.New(1, -2) // 0.01 RUB

// PaymentRequestServiceImpl implements ports.PaymentRequestService.
type PaymentRequestServiceImpl struct {
	requestRepo ports.PaymentRequestRepository
	accountRepo ports.AccountRepository
	notifRepo   ports.NotificationRepository
	rates       ports.RateSource
	notifier    ports.Notifier
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewPaymentRequestService creates a new PaymentRequestServiceImpl.
func NewPaymentRequestService(
	requestRepo ports.PaymentRequestRepository,
	accountRepo ports.AccountRepository,
	notifRepo ports.NotificationRepository,
	rates ports.RateSource,
	notifier ports.Notifier,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *PaymentRequestServiceImpl {
	return &PaymentRequestServiceImpl{
		requestRepo: requestRepo,
		accountRepo: accountRepo,
		notifRepo:   notifRepo,
		rates:       rates,
		notifier:    notifier,
		transactor:  transactor,
		log:         log,
	}
}

// Create submits a new cash-out request: snapshot the current rate, convert
// the RUB amount, and freeze the USDT equivalent against the account. The
// rate is stored on the request and never re-fetched for its lifetime.
func (s *PaymentRequestServiceImpl) Create(ctx context.Context, req ports.CreateRequestInput) (*domain.PaymentRequest, error) {
	if !req.AmountRub.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.Urgency == "" {
		req.Urgency = domain.UrgencyStandard
	}

	rate, err := s.rates.CurrentRate(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch exchange rate: %w", err))
	}
	if !rate.IsPositive() {
		return nil, apperror.InternalError(fmt.Errorf("non-positive exchange rate %s", rate))
	}

	amountRub := req.AmountRub.Round(domain.ScaleRub)
	amountUsdt := amountRub.DivRound(rate, domain.ScaleUsdt)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, req.AccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}

	if err := account.Freeze(amountUsdt); err != nil {
		if errors.Is(err, domain.ErrInsufficientAvailable) {
			return nil, apperror.ErrInsufficientFunds(account.Available, amountUsdt)
		}
		return nil, apperror.InternalError(err)
	}

	if err := s.accountRepo.UpdateBalances(ctx, dbTx, account.ID, account.Available, account.Frozen); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balances: %w", err))
	}

	now := time.Now().UTC()
	request := &domain.PaymentRequest{
		ID:         uuid.New(),
		AccountID:  account.ID,
		AmountRub:  amountRub,
		AmountUsdt: amountUsdt,
		FrozenRate: rate,
		Urgency:    req.Urgency,
		Status:     domain.RequestStatusSubmitted,
		Comment:    req.Comment,
		CreatedAt:  now,
	}
	if err := s.requestRepo.Create(ctx, dbTx, request); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create request: %w", err))
	}

	msg := fmt.Sprintf("Payment request for %s RUB submitted, %s USDT reserved", amountRub, amountUsdt)
	if err := s.createNotification(ctx, dbTx, account.ID, &request.ID, msg); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.notifier.Notify(ctx, account.ChatID, msg)
	s.log.Info().
		Str("request_id", request.ID.String()).
		Str("account_id", account.ID.String()).
		Str("amount_rub", amountRub.String()).
		Str("amount_usdt", amountUsdt.String()).
		Str("rate", rate.String()).
		Msg("payment request created")

	return request, nil
}

// Approve settles a request: the frozen USDT leaves the account for good.
func (s *PaymentRequestServiceImpl) Approve(ctx context.Context, requestID uuid.UUID) (*domain.PaymentRequest, error) {
	return s.finalize(ctx, requestID, domain.RequestStatusPaid, "Payment request for %s RUB marked paid")
}

// Cancel releases the frozen USDT back to the available balance. Allowed
// from submitted and processing only.
func (s *PaymentRequestServiceImpl) Cancel(ctx context.Context, requestID uuid.UUID) (*domain.PaymentRequest, error) {
	return s.finalize(ctx, requestID, domain.RequestStatusCancelled, "Payment request for %s RUB cancelled, funds released")
}

// finalize locks the request and its account, applies the ledger effect of
// the terminal status and flips the request, all in one transaction.
func (s *PaymentRequestServiceImpl) finalize(ctx context.Context, requestID uuid.UUID, status domain.RequestStatus, msgFormat string) (*domain.PaymentRequest, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	request, err := s.requestRepo.GetByIDForUpdate(ctx, dbTx, requestID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock request: %w", err))
	}
	if request == nil {
		return nil, apperror.ErrNotFound("payment request")
	}
	if request.IsTerminal() {
		return nil, apperror.ErrAlreadyFinalized(string(request.Status))
	}

	account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, request.AccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}

	switch status {
	case domain.RequestStatusPaid:
		account.Settle(request.AmountUsdt)
	case domain.RequestStatusCancelled, domain.RequestStatusRejected:
		account.Release(request.AmountUsdt)
	}

	if err := s.accountRepo.UpdateBalances(ctx, dbTx, account.ID, account.Available, account.Frozen); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balances: %w", err))
	}

	request.Status = status
	if err := s.requestRepo.Update(ctx, dbTx, request); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update request: %w", err))
	}

	msg := fmt.Sprintf(msgFormat, request.AmountRub)
	if err := s.createNotification(ctx, dbTx, account.ID, &request.ID, msg); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.notifier.Notify(ctx, account.ChatID, msg)
	s.log.Info().
		Str("request_id", request.ID.String()).
		Str("status", string(status)).
		Msg("payment request finalized")

	return request, nil
}

// Process applies an operator/admin decision: an optional RUB amount edit
// (converted at the rate frozen when the request was created), a status
// transition and an optional receipt attachment.
func (s *PaymentRequestServiceImpl) Process(ctx context.Context, req ports.ProcessRequestInput) (*domain.PaymentRequest, error) {
	switch req.Status {
	case domain.RequestStatusPaid, domain.RequestStatusRejected, domain.RequestStatusProcessing:
	default:
		return nil, apperror.Validation(fmt.Sprintf("status %q is not a valid decision", req.Status))
	}
	if req.Receipt != nil {
		if err := req.Receipt.Validate(); err != nil {
			return nil, apperror.Validation(err.Error())
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	request, err := s.requestRepo.GetByIDForUpdate(ctx, dbTx, req.RequestID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock request: %w", err))
	}
	if request == nil {
		return nil, apperror.ErrNotFound("payment request")
	}
	if request.IsTerminal() {
		return nil, apperror.ErrAlreadyFinalized(string(request.Status))
	}

	account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, request.AccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}

	if req.NewAmountRub != nil {
		if err := s.applyAmountEdit(account, request, *req.NewAmountRub); err != nil {
			return nil, err
		}
	}

	switch req.Status {
	case domain.RequestStatusPaid:
		account.Settle(request.AmountUsdt)
	case domain.RequestStatusRejected:
		account.Release(request.AmountUsdt)
	}

	if err := s.accountRepo.UpdateBalances(ctx, dbTx, account.ID, account.Available, account.Frozen); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balances: %w", err))
	}

	request.Status = req.Status
	if req.Receipt != nil {
		request.Receipt = req.Receipt
	}
	if req.AdminComment != "" {
		request.AdminComment = req.AdminComment
	}
	if err := s.requestRepo.Update(ctx, dbTx, request); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update request: %w", err))
	}

	msg := s.decisionMessage(request)
	if msg != "" {
		if err := s.createNotification(ctx, dbTx, account.ID, &request.ID, msg); err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if msg != "" {
		s.notifier.Notify(ctx, account.ChatID, msg)
	}
	s.log.Info().
		Str("request_id", request.ID.String()).
		Str("status", string(request.Status)).
		Bool("amount_edited", req.NewAmountRub != nil).
		Msg("payment request processed")

	return request, nil
}

// applyAmountEdit re-freezes the difference implied by a RUB amount change.
// The conversion uses the request's frozen rate; edits of one kopeck or less
// are ignored.
func (s *PaymentRequestServiceImpl) applyAmountEdit(account *domain.Account, request *domain.PaymentRequest, newAmountRub decimal.Decimal) error {
	newAmountRub = newAmountRub.Round(domain.ScaleRub)
	if !newAmountRub.IsPositive() {
		return apperror.ErrInvalidAmount()
	}
	if newAmountRub.Sub(request.AmountRub).Abs().LessThanOrEqual(amountEditEpsilon) {
		return nil
	}

	newAmountUsdt := newAmountRub.DivRound(request.FrozenRate, domain.ScaleUsdt)
	delta := newAmountUsdt.Sub(request.AmountUsdt)

	if err := account.AdjustFrozen(delta); err != nil {
		if errors.Is(err, domain.ErrInsufficientAvailable) {
			return apperror.ErrInsufficientFunds(account.Available, delta)
		}
		return apperror.InternalError(err)
	}

	request.AmountRub = newAmountRub
	request.AmountUsdt = newAmountUsdt
	return nil
}

func (s *PaymentRequestServiceImpl) decisionMessage(request *domain.PaymentRequest) string {
	switch request.Status {
	case domain.RequestStatusPaid:
		return fmt.Sprintf("Payment request for %s RUB marked paid", request.AmountRub)
	case domain.RequestStatusRejected:
		return fmt.Sprintf("Payment request for %s RUB rejected, funds released", request.AmountRub)
	case domain.RequestStatusProcessing:
		return fmt.Sprintf("Payment request for %s RUB is being processed", request.AmountRub)
	}
	return ""
}

func (s *PaymentRequestServiceImpl) createNotification(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, requestID *uuid.UUID, message string) error {
	n := &domain.Notification{
		ID:        uuid.New(),
		AccountID: accountID,
		RequestID: requestID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.notifRepo.Create(ctx, tx, n); err != nil {
		return apperror.InternalError(fmt.Errorf("create notification: %w", err))
	}
	return nil
}

// Get returns a single request by ID.
func (s *PaymentRequestServiceImpl) Get(ctx context.Context, requestID uuid.UUID) (*domain.PaymentRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get request: %w", err))
	}
	if request == nil {
		return nil, apperror.ErrNotFound("payment request")
	}
	return request, nil
}

// ListByAccount returns the account's request history.
func (s *PaymentRequestServiceImpl) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.PaymentRequest, error) {
	requests, err := s.requestRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list requests: %w", err))
	}
	return requests, nil
}

// List returns requests matching the staff-side filter.
func (s *PaymentRequestServiceImpl) List(ctx context.Context, filter ports.RequestFilter) ([]domain.PaymentRequest, error) {
	requests, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list requests: %w", err))
	}
	return requests, nil
}
