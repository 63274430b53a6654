package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestStatus represents the lifecycle state of a cash-out request.
type RequestStatus string

const (
	RequestStatusSubmitted  RequestStatus = "submitted"
	RequestStatusProcessing RequestStatus = "processing"
	RequestStatusPaid       RequestStatus = "paid"
	RequestStatusRejected   RequestStatus = "rejected"
	RequestStatusCancelled  RequestStatus = "cancelled"
)

// Urgency marks how fast the operator should handle a request.
type Urgency string

const (
	UrgencyStandard Urgency = "standard"
	UrgencyUrgent   Urgency = "urgent"
)

// ReceiptKind tags the attachment variant of a payout receipt.
type ReceiptKind string

const (
	ReceiptKindImage ReceiptKind = "image"
	ReceiptKindPDF   ReceiptKind = "pdf"
	ReceiptKindLink  ReceiptKind = "link"
)

// maxReceiptBytes caps the decoded attachment size at 10 MB.
const maxReceiptBytes = 10 << 20

// Receipt is a tagged attachment: image and pdf carry base64 content plus a
// file name, link carries a URL.
type Receipt struct {
	Kind     ReceiptKind `json:"kind"`
	Name     string      `json:"name,omitempty"`
	MimeType string      `json:"mime_type,omitempty"`
	Value    string      `json:"value"` // base64 payload or URL depending on Kind
}

// Validate checks the per-kind required fields and the size cap.
func (r Receipt) Validate() error {
	switch r.Kind {
	case ReceiptKindImage:
		if r.MimeType != "image/jpeg" && r.MimeType != "image/jpg" && r.MimeType != "image/png" {
			return fmt.Errorf("receipt: unsupported image mime type %q", r.MimeType)
		}
	case ReceiptKindPDF:
		if r.MimeType != "application/pdf" {
			return fmt.Errorf("receipt: unsupported pdf mime type %q", r.MimeType)
		}
	case ReceiptKindLink:
		if r.Value == "" {
			return fmt.Errorf("receipt: link requires a url")
		}
		return nil
	default:
		return fmt.Errorf("receipt: unknown kind %q", r.Kind)
	}
	if r.Name == "" {
		return fmt.Errorf("receipt: file name required")
	}
	if r.Value == "" {
		return fmt.Errorf("receipt: file content required")
	}
	// Base64 expands content by 4/3; compare against the encoded length.
	if len(r.Value)*3/4 > maxReceiptBytes {
		return fmt.Errorf("receipt: file exceeds 10MB limit")
	}
	return nil
}

// PaymentRequest is one cash-out attempt. AmountUsdt stays reserved against
// the owning account from creation until a terminal status. FrozenRate is
// snapshotted at creation and never recomputed.
type PaymentRequest struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	AmountRub    decimal.Decimal `json:"amount_rub"`
	AmountUsdt   decimal.Decimal `json:"amount_usdt"`
	FrozenRate   decimal.Decimal `json:"frozen_rate"`
	Urgency      Urgency         `json:"urgency"`
	Status       RequestStatus   `json:"status"`
	Comment      string          `json:"comment,omitempty"`
	Receipt      *Receipt        `json:"receipt,omitempty"`
	AdminComment string          `json:"admin_comment,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// IsTerminal reports whether the request reached a final state. Terminal
// requests accept no further transitions or amount edits.
func (r *PaymentRequest) IsTerminal() bool {
	return r.Status == RequestStatusPaid ||
		r.Status == RequestStatusRejected ||
		r.Status == RequestStatusCancelled
}
