package service

import (
	"context"
	"testing"
	"time"

	"payout-gateway/internal/core/domain"
	"payout-gateway/internal/core/ports"
	"payout-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentTestEnv struct {
	svc         *PaymentRequestServiceImpl
	accountRepo *fakeAccountRepo
	requestRepo *fakeRequestRepo
	notifRepo   *fakeNotificationRepo
	rates       *fakeRateSource
	notifier    *fakeNotifier
}

func newPaymentTestEnv(rate string) *paymentTestEnv {
	env := &paymentTestEnv{
		accountRepo: newFakeAccountRepo(),
		requestRepo: newFakeRequestRepo(),
		notifRepo:   newFakeNotificationRepo(),
		rates:       &fakeRateSource{rate: decimal.RequireFromString(rate)},
		notifier:    &fakeNotifier{},
	}
	env.svc = NewPaymentRequestService(
		env.requestRepo, env.accountRepo, env.notifRepo,
		env.rates, env.notifier, &fakeTransactor{}, zerolog.Nop(),
	)
	return env
}

func (env *paymentTestEnv) seedAccount(t *testing.T, available string) *domain.Account {
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

func TestPaymentRequestCreate_FreezesAtCurrentRate(t *testing.T) {
	env := newPaymentTestEnv("95")
	account := env.seedAccount(t, "150")

	request, err := env.svc.Create(context.Background(), ports.CreateRequestInput{
		AccountID: account.ID,
		AmountRub: decimal.RequireFromString("9500"),
		Urgency:   domain.UrgencyUrgent,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusSubmitted, request.Status)
	assert.True(t, request.AmountUsdt.Equal(decimal.RequireFromString("100")), "usdt %s", request.AmountUsdt)
	assert.True(t, request.FrozenRate.Equal(decimal.RequireFromString("95")))

	stored, _ := env.accountRepo.GetByID(context.Background(), account.ID)
	assert.True(t, stored.Available.Equal(decimal.RequireFromString("50")), "available %s", stored.Available)
	assert.True(t, stored.Frozen.Equal(decimal.RequireFromString("100")), "frozen %s", stored.Frozen)

	notifs, _ := env.notifRepo.ListByAccount(context.Background(), account.ID)
	assert.Len(t, notifs, 1)
	assert.Equal(t, 1, env.notifier.count())
}

func TestPaymentRequestCreate_InsufficientFunds(t *testing.T) {
	env := newPaymentTestEnv("95")
	account := env.seedAccount(t, "50")

	_, err := env.svc.Create(context.Background(), ports.CreateRequestInput{
		AccountID: account.ID,
		AmountRub: decimal.RequireFromString("9500"), // needs 100 USDT
	})

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_001", appErr.Code)

	details, ok := appErr.Details.(apperror.InsufficientFundsDetails)
	require.True(t, ok)
	assert.True(t, details.Available.Equal(decimal.RequireFromString("50")))
	assert.True(t, details.Required.Equal(decimal.RequireFromString("100")))

	// Nothing persisted.
	stored, _ := env.accountRepo.GetByID(context.Background(), account.ID)
	assert.True(t, stored.Available.Equal(decimal.RequireFromString("50")))
	assert.True(t, stored.Frozen.IsZero())
	assert.Equal(t, 0, env.notifier.count())
}

func TestPaymentRequestCreate_RejectsNonPositiveAmount(t *testing.T) {
	env := newPaymentTestEnv("95")
	account := env.seedAccount(t, "100")

	_, err := env.svc.Create(context.Background(), ports.CreateRequestInput{
		AccountID: account.ID,
		AmountRub: decimal.Zero,
	})

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_002", appErr.Code)
	assert.Equal(t, 0, env.rates.calls, "rate must not be fetched for invalid input")
}

func TestPaymentRequestApprove_SettlesFrozenFunds(t *testing.T) {
	env := newPaymentTestEnv("95")
	account := env.seedAccount(t, "150")
	request, err := env.svc.Create(context.Background(), ports.CreateRequestInput{
		AccountID: account.ID,
		AmountRub: decimal.RequireFromString("9500"),
	})
	require.NoError(t, err)

	approved, err := env.svc.Approve(context.Background(), request.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPaid, approved.Status)

	stored, _ := env.accountRepo.GetByID(context.Background(), account.ID)
	assert.True(t, stored.Available.Equal(decimal.RequireFromString("50")), "available %s", stored.Available)
	assert.True(t, stored.Frozen.IsZero(), "frozen %s", stored.Frozen)
}

func TestPaymentRequestApprove_TerminalRequestRefused(t *testing.T) {
	env := newPaymentTestEnv("95")
	account := env.seedAccount(t, "150")
	request, err := env.svc.Create(context.Background(), ports.CreateRequestInput{
		AccountID: account.ID,
		AmountRub: decimal.RequireFromString("950"),
	})
	require.NoError(t, err)
	_, err = env.svc.Approve(context.Background(), request.ID)
	require.NoError(t, err)

	_, err = env.svc.Approve(context.Background(), request.ID)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_003", appErr.Code)

	// Second approval must not settle again.
	stored, _ := env.accountRepo.GetByID(context.Background(), account.ID)
	assert.True(t, stored.Available.Equal(decimal.RequireFromString("140")), "available %s", stored.Available)
}

func TestPaymentRequestCancel_ReleasesFrozenFunds(t *testing.T) {
	env := newPaymentTestEnv("95")
	account := env.seedAccount(t, "150")
	request, err := env.svc.Create(context.Background(), ports.CreateRequestInput{
		AccountID: account.ID,
		AmountRub: decimal.RequireFromString("9500"),
	})
	require.NoError(t, err)

	cancelled, err := env.svc.Cancel(context.Background(), request.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusCancelled, cancelled.Status)

	stored, _ := env.accountRepo.GetByID(context.Background(), account.ID)
	assert.True(t, stored.Available.Equal(decimal.RequireFromString("150")))
	assert.True(t, stored.Frozen.IsZero())
}

func TestPaymentRequestProcess_AmountEditUsesFrozenRate(t *testing.T) {
	env := newPaymentTestEnv("95")
	account := env.seedAccount(t, "150")
	request, err := env.svc.Create(context.Background(), ports.CreateRequestInput{
		AccountID: account.ID,
		AmountRub: decimal.RequireFromString("9500"),
	})
	require.NoError(t, err)

	// The market rate moves; the edit must still convert at 95.
	env.rates.rate = decimal.RequireFromString("80")

	newAmount := decimal.RequireFromString("11400") // 120 USDT at 95
	processed, err := env.svc.Process(context.Background(), ports.ProcessRequestInput{
		RequestID:    request.ID,
		Status:       domain.RequestStatusProcessing,
		NewAmountRub: &newAmount,
	})

	require.NoError(t, err)
	assert.True(t, processed.AmountUsdt.Equal(decimal.RequireFromString("120")), "usdt %s", processed.AmountUsdt)
	assert.True(t, processed.FrozenRate.Equal(decimal.RequireFromString("95")))
	assert.Equal(t, 1, env.rates.calls, "rate fetched only at creation")

	stored, _ := env.accountRepo.GetByID(context.Background(), account.ID)
	assert.True(t, stored.Available.Equal(decimal.RequireFromString("30")), "available %s", stored.Available)
	assert.True(t, stored.Frozen.Equal(decimal.RequireFromString("120")), "frozen %s", stored.Frozen)
}

func TestPaymentRequestProcess_AmountDecreaseReleasesExcess(t *testing.T) {
	env := newPaymentTestEnv("95")
	account := env.seedAccount(t, "150")
	request, err := env.svc.Create(context.Background(), ports.CreateRequestInput{
		AccountID: account.ID,
		AmountRub: decimal.RequireFromString("9500"),
	})
	require.NoError(t, err)

	newAmount := decimal.RequireFromString("4750") // 50 USDT at 95
	_, err = env.svc.Process(context.Background(), ports.ProcessRequestInput{
		RequestID:    request.ID,
		Status:       domain.RequestStatusProcessing,
		NewAmountRub: &newAmount,
	})

	require.NoError(t, err)
	stored, _ := env.accountRepo.GetByID(context.Background(), account.ID)
	assert.True(t, stored.Available.Equal(decimal.RequireFromString("100")), "available %s", stored.Available)
	assert.True(t, stored.Frozen.Equal(decimal.RequireFromString("50")), "frozen %s", stored.Frozen)
}

func TestPaymentRequestProcess_SubKopeckEditIgnored(t *testing.T) {
	// Diffs of one kopeck or less are negligible and leave the request
	// untouched; anything larger is a genuine edit.
	cases := []struct {
		name       string
		newAmount  string
		wantRub    string
		wantEdited bool
	}{
		{"sub-kopeck diff ignored", "9500.004", "9500", false},
		{"exactly one kopeck ignored", "9500.01", "9500", false},
		{"two kopecks applied", "9500.02", "9500.02", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newPaymentTestEnv("95")
			account := env.seedAccount(t, "150")
			request, err := env.svc.Create(context.Background(), ports.CreateRequestInput{
				AccountID: account.ID,
				AmountRub: decimal.RequireFromString("9500"),
			})
			require.NoError(t, err)

			newAmount := decimal.RequireFromString(tc.newAmount)
			processed, err := env.svc.Process(context.Background(), ports.ProcessRequestInput{
				RequestID:    request.ID,
				Status:       domain.RequestStatusProcessing,
				NewAmountRub: &newAmount,
			})

			require.NoError(t, err)
			assert.True(t, processed.AmountRub.Equal(decimal.RequireFromString(tc.wantRub)),
				"amount_rub = %s", processed.AmountRub)
			if tc.wantEdited {
				assert.False(t, processed.AmountUsdt.Equal(decimal.RequireFromString("100")))
			} else {
				assert.True(t, processed.AmountUsdt.Equal(decimal.RequireFromString("100")))
			}
		})
	}
}

func TestPaymentRequestProcess_EditShortfallReported(t *testing.T) {
	env := newPaymentTestEnv("95")
	account := env.seedAccount(t, "110")
	request, err := env.svc.Create(context.Background(), ports.CreateRequestInput{
		AccountID: account.ID,
		AmountRub: decimal.RequireFromString("9500"), // freezes 100, leaves 10
	})
	require.NoError(t, err)

	newAmount := decimal.RequireFromString("19000") // needs +100, only 10 left
	_, err = env.svc.Process(context.Background(), ports.ProcessRequestInput{
		RequestID:    request.ID,
		Status:       domain.RequestStatusPaid,
		NewAmountRub: &newAmount,
	})

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_001", appErr.Code)

	// Request untouched.
	stored, _ := env.requestRepo.GetByID(context.Background(), request.ID)
	assert.Equal(t, domain.RequestStatusSubmitted, stored.Status)
	assert.True(t, stored.AmountUsdt.Equal(decimal.RequireFromString("100")))
}

func TestPaymentRequestProcess_PaidWithReceipt(t *testing.T) {
	env := newPaymentTestEnv("95")
	account := env.seedAccount(t, "150")
	request, err := env.svc.Create(context.Background(), ports.CreateRequestInput{
		AccountID: account.ID,
		AmountRub: decimal.RequireFromString("9500"),
	})
	require.NoError(t, err)

	receipt := &domain.Receipt{
		Kind:     domain.ReceiptKindImage,
		Name:     "receipt.png",
		MimeType: "image/png",
		Value:    "aGVsbG8=",
	}
	processed, err := env.svc.Process(context.Background(), ports.ProcessRequestInput{
		RequestID:    request.ID,
		Status:       domain.RequestStatusPaid,
		Receipt:      receipt,
		AdminComment: "paid via bank transfer",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPaid, processed.Status)
	require.NotNil(t, processed.Receipt)
	assert.Equal(t, domain.ReceiptKindImage, processed.Receipt.Kind)
	assert.Equal(t, "paid via bank transfer", processed.AdminComment)

	stored, _ := env.accountRepo.GetByID(context.Background(), account.ID)
	assert.True(t, stored.Frozen.IsZero())
}

func TestPaymentRequestProcess_RejectedReleasesFunds(t *testing.T) {
	env := newPaymentTestEnv("95")
	account := env.seedAccount(t, "150")
	request, err := env.svc.Create(context.Background(), ports.CreateRequestInput{
		AccountID: account.ID,
		AmountRub: decimal.RequireFromString("9500"),
	})
	require.NoError(t, err)

	processed, err := env.svc.Process(context.Background(), ports.ProcessRequestInput{
		RequestID: request.ID,
		Status:    domain.RequestStatusRejected,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRejected, processed.Status)

	stored, _ := env.accountRepo.GetByID(context.Background(), account.ID)
	assert.True(t, stored.Available.Equal(decimal.RequireFromString("150")))
	assert.True(t, stored.Frozen.IsZero())
}

func TestPaymentRequestProcess_InvalidDecisionStatus(t *testing.T) {
	env := newPaymentTestEnv("95")

	_, err := env.svc.Process(context.Background(), ports.ProcessRequestInput{
		RequestID: uuid.New(),
		Status:    domain.RequestStatusCancelled,
	})

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_002", appErr.Code)
}

func TestPaymentRequestProcess_InvalidReceiptRejected(t *testing.T) {
	env := newPaymentTestEnv("95")
	account := env.seedAccount(t, "150")
	request, err := env.svc.Create(context.Background(), ports.CreateRequestInput{
		AccountID: account.ID,
		AmountRub: decimal.RequireFromString("950"),
	})
	require.NoError(t, err)

	_, err = env.svc.Process(context.Background(), ports.ProcessRequestInput{
		RequestID: request.ID,
		Status:    domain.RequestStatusPaid,
		Receipt:   &domain.Receipt{Kind: domain.ReceiptKindImage, MimeType: "image/gif", Name: "x.gif", Value: "aGVsbG8="},
	})

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_002", appErr.Code)
}
