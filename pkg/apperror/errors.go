package apperror

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string      `json:"error_code"`
	Message    string      `json:"message"`
	HTTPStatus int         `json:"-"`
	Details    interface{} `json:"details,omitempty"` // Machine-readable payload (e.g. shortfall)
	Err        error       `json:"-"`                 // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger & Lifecycle (LED) ----

// InsufficientFundsDetails reports how far short the available balance is.
type InsufficientFundsDetails struct {
	Available decimal.Decimal `json:"available"`
	Required  decimal.Decimal `json:"required"`
}

func ErrInsufficientFunds(available, required decimal.Decimal) *AppError {
	return &AppError{
		Code:       "LED_001",
		Message:    fmt.Sprintf("Insufficient available balance: have %s, need %s", available.String(), required.String()),
		HTTPStatus: http.StatusPaymentRequired,
		Details:    InsufficientFundsDetails{Available: available, Required: required},
	}
}

func ErrInvalidAmount() *AppError {
	return New("LED_002", "Invalid amount", http.StatusBadRequest)
}

func ErrAlreadyFinalized(status string) *AppError {
	return New("LED_003", fmt.Sprintf("Entity already finalized as %q", status), http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New("LED_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrAmountExhausted(requested decimal.Decimal) *AppError {
	return New("LED_005",
		fmt.Sprintf("Too many concurrent deposits near %s, retry later", requested.String()),
		http.StatusConflict)
}

func ErrDepositOutOfBounds(min, max decimal.Decimal) *AppError {
	return New("LED_006",
		fmt.Sprintf("Deposit amount must be between %s and %s USDT", min.String(), max.String()),
		http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrOperatorDisabled() *AppError {
	return New("AUTH_003", "Operator account is deactivated", http.StatusForbidden)
}

func ErrForbidden() *AppError {
	return New("AUTH_004", "Access denied", http.StatusForbidden)
}

func ErrLoginTaken() *AppError {
	return New("AUTH_005", "Login already in use", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a LED_002-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("LED_002", message, http.StatusBadRequest)
}
