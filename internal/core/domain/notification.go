package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an append-only record of a user-facing event. It is an
// output of the ledger and state machines, never an input.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	AccountID uuid.UUID  `json:"account_id"`
	RequestID *uuid.UUID `json:"request_id,omitempty"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
}
