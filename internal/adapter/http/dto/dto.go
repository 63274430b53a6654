package dto

import (
	"time"

	"payout-gateway/internal/core/domain"

	"github.com/shopspring/decimal"
)

// AuthUserRequest is the request body for mini-app user auth.
type AuthUserRequest struct {
	Username string `json:"username" binding:"omitempty,max=100"`
}

// AdminLoginRequest is the request body for admin login.
type AdminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// OperatorLoginRequest is the request body for operator login.
type OperatorLoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for successful staff login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
	Role   string `json:"role"`
}

// CreateRequestRequest is the request body for payment request submission.
type CreateRequestRequest struct {
	AmountRub decimal.Decimal `json:"amount_rub"`
	Urgency   string          `json:"urgency" binding:"omitempty,oneof=standard urgent"`
	Comment   string          `json:"comment" binding:"omitempty,max=500"`
}

// ReceiptPayload is the tagged receipt attachment on a paid decision.
type ReceiptPayload struct {
	Kind     string `json:"kind" binding:"required,oneof=image pdf link"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Value    string `json:"value" binding:"required"`
}

// ProcessRequestRequest is the combined staff decision body: an optional
// amount edit plus a status decision and optional receipt.
type ProcessRequestRequest struct {
	Status       string           `json:"status" binding:"required,oneof=paid rejected processing"`
	NewAmountRub *decimal.Decimal `json:"new_amount_rub,omitempty"`
	Receipt      *ReceiptPayload  `json:"receipt,omitempty"`
	AdminComment string           `json:"admin_comment" binding:"omitempty,max=500"`
}

// CreateDepositRequest is the request body for automated deposit creation.
type CreateDepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// ObserverDepositRequest is the blockchain-observer webhook body.
type ObserverDepositRequest struct {
	PayableAmount decimal.Decimal `json:"payable_amount"`
	ActualAmount  decimal.Decimal `json:"actual_amount"`
	TxHash        string          `json:"tx_hash" binding:"required,max=128,safe_id"`
}

// SetBalancesRequest is the admin balance override body.
type SetBalancesRequest struct {
	Available decimal.Decimal `json:"available_balance"`
	Frozen    decimal.Decimal `json:"frozen_balance"`
}

// CreditRequest is the admin manual credit body.
type CreditRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CreateOperatorRequest is the admin operator creation body.
type CreateOperatorRequest struct {
	Login    string `json:"login" binding:"required,min=3,max=50,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// SetOperatorActiveRequest toggles an operator account.
type SetOperatorActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// AccountResponse is the wire form of a user account.
type AccountResponse struct {
	ID           string `json:"id"`
	ChatID       string `json:"chat_id"`
	Username     string `json:"username,omitempty"`
	Available    string `json:"available_balance"`
	Frozen       string `json:"frozen_balance"`
	RegisteredAt string `json:"registered_at"`
}

// RequestResponse is the wire form of a payment request.
type RequestResponse struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	AmountRub    string          `json:"amount_rub"`
	AmountUsdt   string          `json:"amount_usdt"`
	FrozenRate   string          `json:"frozen_rate"`
	Urgency      string          `json:"urgency"`
	Status       string          `json:"status"`
	Comment      string          `json:"comment,omitempty"`
	Receipt      *domain.Receipt `json:"receipt,omitempty"`
	AdminComment string          `json:"admin_comment,omitempty"`
	CreatedAt    string          `json:"created_at"`
}

// DepositResponse is the wire form of a deposit.
type DepositResponse struct {
	ID              string  `json:"id"`
	AccountID       string  `json:"account_id"`
	RequestedAmount string  `json:"requested_amount"`
	PayableAmount   string  `json:"payable_amount"`
	Status          string  `json:"status"`
	WalletAddress   string  `json:"wallet_address"`
	TxHash          *string `json:"tx_hash,omitempty"`
	ConfirmedBy     *string `json:"confirmed_by,omitempty"`
	ConfirmedAt     *string `json:"confirmed_at,omitempty"`
	ExpiresAt       string  `json:"expires_at"`
	CreatedAt       string  `json:"created_at"`
}

// NotificationResponse is the wire form of an in-app notification.
type NotificationResponse struct {
	ID        string  `json:"id"`
	RequestID *string `json:"request_id,omitempty"`
	Message   string  `json:"message"`
	Read      bool    `json:"read"`
	CreatedAt string  `json:"created_at"`
}

// UnreadCountResponse wraps the unread notification counter.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// OperatorResponse is the wire form of an operator account.
type OperatorResponse struct {
	ID        string `json:"id"`
	Login     string `json:"login"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

// SweepResponse reports how many deposits an expiration sweep closed.
type SweepResponse struct {
	Expired int64 `json:"expired"`
}

// FromAccount converts a domain account to its wire form.
func FromAccount(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:           a.ID.String(),
		ChatID:       a.ChatID,
		Username:     a.Username,
		Available:    a.Available.String(),
		Frozen:       a.Frozen.String(),
		RegisteredAt: a.RegisteredAt.Format(time.RFC3339),
	}
}

// FromRequest converts a domain payment request to its wire form.
func FromRequest(r *domain.PaymentRequest) RequestResponse {
	return RequestResponse{
		ID:           r.ID.String(),
		AccountID:    r.AccountID.String(),
		AmountRub:    r.AmountRub.String(),
		AmountUsdt:   r.AmountUsdt.String(),
		FrozenRate:   r.FrozenRate.String(),
		Urgency:      string(r.Urgency),
		Status:       string(r.Status),
		Comment:      r.Comment,
		Receipt:      r.Receipt,
		AdminComment: r.AdminComment,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
}

// FromRequests converts a slice of payment requests.
func FromRequests(rs []domain.PaymentRequest) []RequestResponse {
	out := make([]RequestResponse, 0, len(rs))
	for i := range rs {
		out = append(out, FromRequest(&rs[i]))
	}
	return out
}

// FromDeposit converts a domain deposit to its wire form.
func FromDeposit(d *domain.Deposit) DepositResponse {
	resp := DepositResponse{
		ID:              d.ID.String(),
		AccountID:       d.AccountID.String(),
		RequestedAmount: d.RequestedAmount.String(),
		PayableAmount:   d.PayableAmount.StringFixed(4),
		Status:          string(d.Status),
		WalletAddress:   d.WalletAddress,
		TxHash:          d.TxHash,
		ConfirmedBy:     d.ConfirmedBy,
		ExpiresAt:       d.ExpiresAt.Format(time.RFC3339),
		CreatedAt:       d.CreatedAt.Format(time.RFC3339),
	}
	if d.ConfirmedAt != nil {
		s := d.ConfirmedAt.Format(time.RFC3339)
		resp.ConfirmedAt = &s
	}
	return resp
}

// FromDeposits converts a slice of deposits.
func FromDeposits(ds []domain.Deposit) []DepositResponse {
	out := make([]DepositResponse, 0, len(ds))
	for i := range ds {
		out = append(out, FromDeposit(&ds[i]))
	}
	return out
}

// FromNotification converts a domain notification to its wire form.
func FromNotification(n *domain.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID.String(),
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
	if n.RequestID != nil {
		s := n.RequestID.String()
		resp.RequestID = &s
	}
	return resp
}

// FromNotifications converts a slice of notifications.
func FromNotifications(ns []domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(ns))
	for i := range ns {
		out = append(out, FromNotification(&ns[i]))
	}
	return out
}

// FromOperator converts a domain operator to its wire form.
func FromOperator(o *domain.Operator) OperatorResponse {
	return OperatorResponse{
		ID:        o.ID.String(),
		Login:     o.Login,
		Active:    o.Active,
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
	}
}

// FromOperators converts a slice of operators.
func FromOperators(os []domain.Operator) []OperatorResponse {
	out := make([]OperatorResponse, 0, len(os))
	for i := range os {
		out = append(out, FromOperator(&os[i]))
	}
	return out
}

// ToReceipt maps the wire payload onto the domain receipt.
func (p *ReceiptPayload) ToReceipt() *domain.Receipt {
	if p == nil {
		return nil
	}
	return &domain.Receipt{
		Kind:     domain.ReceiptKind(p.Kind),
		Name:     p.Name,
		MimeType: p.MimeType,
		Value:    p.Value,
	}
}
