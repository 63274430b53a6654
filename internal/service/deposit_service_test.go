package service

import (
	"context"
	"testing"
	"time"

	"payout-gateway/internal/core/domain"
	"payout-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type depositTestEnv struct {
	svc         *DepositServiceImpl
	accountRepo *fakeAccountRepo
	depositRepo *fakeDepositRepo
	notifRepo   *fakeNotificationRepo
	notifier    *fakeNotifier
}

func newDepositTestEnv() *depositTestEnv {
	env := &depositTestEnv{
		accountRepo: newFakeAccountRepo(),
		depositRepo: newFakeDepositRepo(),
		notifRepo:   newFakeNotificationRepo(),
		notifier:    &fakeNotifier{},
	}
	env.svc = NewDepositService(
		env.depositRepo, env.accountRepo, env.notifRepo, env.notifier,
		&fakeTransactor{},
		DepositConfig{
			MinAmount:     decimal.RequireFromString("30"),
			MaxAmount:     decimal.RequireFromString("20000"),
			Expiration:    10 * time.Minute,
			WalletAddress: "TTestWalletAddress",
		},
		zerolog.Nop(),
	)
	return env
}

func (env *depositTestEnv) seedAccount(t *testing.T, available string) *domain.Account {
	t.Helper()
	account := &domain.Account{
		ID:           uuid.New(),
		ChatID:       "chat-1",
		Username:     "alice",
		Available:    decimal.RequireFromString(available),
		Frozen:       decimal.Zero,
		RegisteredAt: time.Now().UTC(),
	}
	env.accountRepo.put(account)
	return account
}

func TestDepositCreateAutomated_AssignsRequestedAmountWhenFree(t *testing.T) {
	env := newDepositTestEnv()
	account := env.seedAccount(t, "0")

	deposit, err := env.svc.CreateAutomated(context.Background(), account.ID, decimal.RequireFromString("50"))

	require.NoError(t, err)
	assert.Equal(t, domain.DepositStatusPending, deposit.Status)
	assert.True(t, deposit.PayableAmount.Equal(decimal.RequireFromString("50")), "payable %s", deposit.PayableAmount)
	assert.Equal(t, "TTestWalletAddress", deposit.WalletAddress)
	assert.True(t, deposit.ExpiresAt.After(time.Now().UTC().Add(9*time.Minute)))
}

func TestDepositCreateAutomated_ConcurrentSameAmountGetDistinctPayables(t *testing.T) {
	env := newDepositTestEnv()
	account := env.seedAccount(t, "0")
	amount := decimal.RequireFromString("50")

	first, err := env.svc.CreateAutomated(context.Background(), account.ID, amount)
	require.NoError(t, err)
	second, err := env.svc.CreateAutomated(context.Background(), account.ID, amount)
	require.NoError(t, err)

	assert.True(t, first.PayableAmount.Equal(decimal.RequireFromString("50")))
	assert.True(t, second.PayableAmount.Equal(decimal.RequireFromString("49.9999")), "payable %s", second.PayableAmount)
}

func TestDepositCreateAutomated_ExpiredSlotFreedOnlyBySweep(t *testing.T) {
	env := newDepositTestEnv()
	account := env.seedAccount(t, "0")
	amount := decimal.RequireFromString("50")

	first, err := env.svc.CreateAutomated(context.Background(), account.ID, amount)
	require.NoError(t, err)

	// Past its deadline but still pending: the row keeps its slot, so the
	// matcher probes down instead of reassigning it.
	first.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, env.depositRepo.Update(context.Background(), nil, first))

	second, err := env.svc.CreateAutomated(context.Background(), account.ID, amount)
	require.NoError(t, err)
	assert.True(t, second.PayableAmount.Equal(decimal.RequireFromString("49.9999")), "payable %s", second.PayableAmount)

	// The sweep flips the status and releases the amount.
	n, err := env.svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	third, err := env.svc.CreateAutomated(context.Background(), account.ID, amount)
	require.NoError(t, err)
	assert.True(t, third.PayableAmount.Equal(decimal.RequireFromString("50")), "payable %s", third.PayableAmount)
}

func TestDepositCreateAutomated_BoundsEnforced(t *testing.T) {
	env := newDepositTestEnv()
	account := env.seedAccount(t, "0")

	for _, amount := range []string{"29.99", "20000.01"} {
		_, err := env.svc.CreateAutomated(context.Background(), account.ID, decimal.RequireFromString(amount))

		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr, "amount %s", amount)
		assert.Equal(t, "LED_006", appErr.Code)
	}
}

func TestDepositCreateAutomated_UnknownAccount(t *testing.T) {
	env := newDepositTestEnv()

	_, err := env.svc.CreateAutomated(context.Background(), uuid.New(), decimal.RequireFromString("50"))

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_004", appErr.Code)
}

func TestDepositConfirm_CreditsRequestedAmount(t *testing.T) {
	env := newDepositTestEnv()
	account := env.seedAccount(t, "10")
	deposit, err := env.svc.CreateAutomated(context.Background(), account.ID, decimal.RequireFromString("50"))
	require.NoError(t, err)

	confirmed, err := env.svc.Confirm(context.Background(), deposit.ID, "admin")

	require.NoError(t, err)
	assert.Equal(t, domain.DepositStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedBy)
	assert.Equal(t, "admin", *confirmed.ConfirmedBy)
	assert.NotNil(t, confirmed.ConfirmedAt)

	stored, _ := env.accountRepo.GetByID(context.Background(), account.ID)
	assert.True(t, stored.Available.Equal(decimal.RequireFromString("60")), "available %s", stored.Available)
	assert.Equal(t, 1, env.notifier.count())
}

func TestDepositConfirm_TerminalDepositRefused(t *testing.T) {
	env := newDepositTestEnv()
	account := env.seedAccount(t, "0")
	deposit, err := env.svc.CreateAutomated(context.Background(), account.ID, decimal.RequireFromString("50"))
	require.NoError(t, err)
	_, err = env.svc.Confirm(context.Background(), deposit.ID, "admin")
	require.NoError(t, err)

	_, err = env.svc.Confirm(context.Background(), deposit.ID, "admin")

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_003", appErr.Code)

	// No double credit.
	stored, _ := env.accountRepo.GetByID(context.Background(), account.ID)
	assert.True(t, stored.Available.Equal(decimal.RequireFromString("50")))
}

func TestDepositConfirmObserved_ResolvesByPayableAmount(t *testing.T) {
	env := newDepositTestEnv()
	account := env.seedAccount(t, "0")
	deposit, err := env.svc.CreateAutomated(context.Background(), account.ID, decimal.RequireFromString("50"))
	require.NoError(t, err)

	confirmed, err := env.svc.ConfirmObserved(
		context.Background(),
		deposit.PayableAmount,
		decimal.RequireFromString("50.0000"),
		"0xdeadbeef",
	)

	require.NoError(t, err)
	assert.Equal(t, deposit.ID, confirmed.ID)
	assert.Equal(t, domain.DepositStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.TxHash)
	assert.Equal(t, "0xdeadbeef", *confirmed.TxHash)

	stored, _ := env.accountRepo.GetByID(context.Background(), account.ID)
	assert.True(t, stored.Available.Equal(decimal.RequireFromString("50")))
}

func TestDepositConfirmObserved_NoMatchingDeposit(t *testing.T) {
	env := newDepositTestEnv()
	env.seedAccount(t, "0")

	_, err := env.svc.ConfirmObserved(
		context.Background(),
		decimal.RequireFromString("123.4567"),
		decimal.RequireFromString("123.4567"),
		"0xdeadbeef",
	)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_004", appErr.Code)
}

func TestDepositReject_NoLedgerEffect(t *testing.T) {
	env := newDepositTestEnv()
	account := env.seedAccount(t, "25")
	deposit, err := env.svc.CreateAutomated(context.Background(), account.ID, decimal.RequireFromString("50"))
	require.NoError(t, err)

	rejected, err := env.svc.Reject(context.Background(), deposit.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.DepositStatusRejected, rejected.Status)

	stored, _ := env.accountRepo.GetByID(context.Background(), account.ID)
	assert.True(t, stored.Available.Equal(decimal.RequireFromString("25")))
}

func TestDepositExpireOverdue_SweepsPendingPastDeadline(t *testing.T) {
	env := newDepositTestEnv()
	account := env.seedAccount(t, "0")

	overdue, err := env.svc.CreateAutomated(context.Background(), account.ID, decimal.RequireFromString("50"))
	require.NoError(t, err)
	fresh, err := env.svc.CreateAutomated(context.Background(), account.ID, decimal.RequireFromString("60"))
	require.NoError(t, err)

	overdue.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, env.depositRepo.Update(context.Background(), nil, overdue))

	count, err := env.svc.ExpireOverdue(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	expired, _ := env.depositRepo.GetByID(context.Background(), overdue.ID)
	assert.Equal(t, domain.DepositStatusExpired, expired.Status)
	still, _ := env.depositRepo.GetByID(context.Background(), fresh.ID)
	assert.Equal(t, domain.DepositStatusPending, still.Status)
}
