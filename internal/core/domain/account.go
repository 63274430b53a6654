package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Decimal scales for monetary values. USDT amounts keep 8 fractional digits
// so repeated freeze/release cycles never lose precision; RUB amounts keep 2;
// payable amounts are matched at 4.
const (
	ScaleUsdt    = 8
	ScaleRub     = 2
	ScalePayable = 4
)

// ErrInsufficientAvailable is returned by balance operations that would
// drive the available balance negative. Callers translate it into an
// apperror with the shortfall attached.
var ErrInsufficientAvailable = errors.New("insufficient available balance")

// Account is a user's custodial balance pair. Both balances are always >= 0.
// Mutation goes through the methods below, never direct field writes.
type Account struct {
	ID           uuid.UUID       `json:"id"`
	ChatID       string          `json:"chat_id"` // Chat-platform user identifier
	Username     string          `json:"username"`
	Available    decimal.Decimal `json:"available_balance"`
	Frozen       decimal.Decimal `json:"frozen_balance"`
	RegisteredAt time.Time       `json:"registered_at"`
}

// Freeze reserves amount against the account, moving it from available to
// frozen. Returns ErrInsufficientAvailable without mutating anything if the
// available balance is short.
func (a *Account) Freeze(amount decimal.Decimal) error {
	if a.Available.LessThan(amount) {
		return ErrInsufficientAvailable
	}
	a.Available = a.Available.Sub(amount)
	a.Frozen = a.Frozen.Add(amount)
	return nil
}

// Release returns amount from frozen back to available. The frozen balance
// is floored at zero: historical data may carry sub-satoshi drift and a
// legitimate release must not be blocked by it.
func (a *Account) Release(amount decimal.Decimal) {
	a.Available = a.Available.Add(amount)
	a.Frozen = a.Frozen.Sub(amount)
	if a.Frozen.IsNegative() {
		a.Frozen = decimal.Zero
	}
}

// Settle removes amount from frozen permanently (paid out externally).
// Floored at zero like Release.
func (a *Account) Settle(amount decimal.Decimal) {
	a.Frozen = a.Frozen.Sub(amount)
	if a.Frozen.IsNegative() {
		a.Frozen = decimal.Zero
	}
}

// Credit adds amount directly to available (deposit confirmation, admin
// grant).
func (a *Account) Credit(amount decimal.Decimal) {
	a.Available = a.Available.Add(amount)
}

// AdjustFrozen is used when an in-flight request's amount is edited after
// funds were frozen. A positive delta freezes more from available (failing
// with ErrInsufficientAvailable); a negative delta releases the excess.
func (a *Account) AdjustFrozen(delta decimal.Decimal) error {
	switch {
	case delta.IsPositive():
		return a.Freeze(delta)
	case delta.IsNegative():
		a.Release(delta.Neg())
	}
	return nil
}

// SetBalances overwrites both balances directly (administrative path).
// Rejects negative values; performs no other validation.
func (a *Account) SetBalances(available, frozen decimal.Decimal) error {
	if available.IsNegative() || frozen.IsNegative() {
		return errors.New("balances must be non-negative")
	}
	a.Available = available
	a.Frozen = frozen
	return nil
}
