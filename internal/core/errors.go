package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Every error returned by the ledger and the services unwraps to
// exactly one of these, so callers branch with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrAuth              = errors.New("authentication error")
	ErrDuplicateUser     = errors.New("duplicate user")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBudgetExceeded    = errors.New("budget exceeded")
	ErrUserNotFound      = errors.New("user not found")
)

// Specific validation failures.
var (
	ErrInvalidAmount  = NewValidationError("amount must be positive")
	ErrEmptyCategory  = NewValidationError("category cannot be empty")
	ErrEmptyUsername  = NewValidationError("username cannot be empty")
	ErrEmptyPassword  = NewValidationError("password cannot be empty")
	ErrLongPassword   = NewValidationError("password must be at most 72 bytes")
	ErrInvalidKind    = NewValidationError("invalid transaction kind")
	ErrMalformedInput = NewValidationError("invalid amount format")
)

// kindError carries a user-facing message and the kind it belongs to.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// NewValidationError returns an error that matches ErrValidation.
func NewValidationError(msg string) error {
	return &kindError{kind: ErrValidation, msg: msg}
}

// NewAuthError returns an error that matches ErrAuth.
func NewAuthError(msg string) error {
	return &kindError{kind: ErrAuth, msg: msg}
}

// NewDuplicateUserError returns an error that matches ErrDuplicateUser.
func NewDuplicateUserError(username string) error {
	return &kindError{kind: ErrDuplicateUser, msg: fmt.Sprintf("user already exists: %s", username)}
}

// NewInsufficientFundsError returns an error that matches ErrInsufficientFunds.
func NewInsufficientFundsError(balance, amount decimal.Decimal) error {
	return &kindError{
		kind: ErrInsufficientFunds,
		msg:  fmt.Sprintf("insufficient funds: balance %s, requested %s", balance.String(), amount.String()),
	}
}

// BudgetExceededError reports that the expenses of a category went over its cap.
// The expense that caused it has already been recorded.
type BudgetExceededError struct {
	Category string
	Cap      decimal.Decimal
	Spent    decimal.Decimal
}

func (e *BudgetExceededError) Error() string {
	return "budget limit exceeded for category: " + e.Category
}

func (e *BudgetExceededError) Unwrap() error { return ErrBudgetExceeded }
