package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DepositStatus represents the lifecycle state of an incoming deposit.
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusConfirmed DepositStatus = "confirmed"
	DepositStatusRejected  DepositStatus = "rejected"
	DepositStatusExpired   DepositStatus = "expired"
)

// Deposit is one incoming-funds attempt. PayableAmount is the unique amount
// the matcher assigned; an on-chain transfer of exactly that amount resolves
// to this deposit. No funds are reserved while pending.
type Deposit struct {
	ID              uuid.UUID       `json:"id"`
	AccountID       uuid.UUID       `json:"account_id"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	PayableAmount   decimal.Decimal `json:"payable_amount"`
	Status          DepositStatus   `json:"status"`
	WalletAddress   string          `json:"wallet_address"`
	TxHash          *string         `json:"tx_hash,omitempty"`
	ConfirmedBy     *string         `json:"confirmed_by,omitempty"`
	ConfirmedAt     *time.Time      `json:"confirmed_at,omitempty"`
	ExpiresAt       time.Time       `json:"expires_at"`
	CreatedAt       time.Time       `json:"created_at"`
}

// IsTerminal reports whether the deposit reached a final state.
func (d *Deposit) IsTerminal() bool {
	return d.Status != DepositStatusPending
}

// IsActive reports whether the deposit still occupies its payable amount:
// pending and not yet expired.
func (d *Deposit) IsActive(now time.Time) bool {
	return d.Status == DepositStatusPending && now.Before(d.ExpiresAt)
}
