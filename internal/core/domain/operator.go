package domain

import (
	"time"

	"github.com/google/uuid"
)

// Operator is a staff account that processes payment requests.
type Operator struct {
	ID           uuid.UUID `json:"id"`
	Login        string    `json:"login"`
	PasswordHash string    `json:"-"` // Argon2id encoded hash
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Role identifies the authenticated principal class on core entry points.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleUser     Role = "user"
)
