package core

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// Transaction is a single income or expense entry in the ledger.
	Transaction struct {
		ID          int64  `json:"id"`
		Amount      Amount `json:"amount"`
		Category    string `json:"category"`
		Description string `json:"description"`
		IsIncome    bool   `json:"is_income"`
		Date        string `json:"date"` // free-form, stored as received
	}

	// TransactionInput carries the full field set accepted by create and update.
	TransactionInput struct {
		Amount      Amount
		Category    string
		Description string
		IsIncome    bool
		Date        string
	}

	// User is an account record. PasswordHash never leaves the service layer.
	User struct {
		ID           int64
		Email        string
		PasswordHash string
	}

	// UserInput is the payload accepted when registering a user.
	UserInput struct {
		Email    string
		Password string
	}
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// FieldError describes a single rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ValidationError is returned when a request payload does not match the expected shape.
type ValidationError struct {
	Detail string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Detail
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%s (%s)", e.Detail, strings.Join(parts, "; "))
}

// NewValidationError builds a ValidationError with an optional list of field failures.
func NewValidationError(detail string, fields ...FieldError) *ValidationError {
	return &ValidationError{Detail: detail, Fields: fields}
}

// AsValidation returns the ValidationError carried by err, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Apply overwrites every field of t with the input. Partial updates are not supported.
func (in TransactionInput) Apply(t *Transaction) {
	t.Amount = in.Amount
	t.Category = in.Category
	t.Description = in.Description
	t.IsIncome = in.IsIncome
	t.Date = in.Date
}

// Kind returns "income" or "expense".
func (t Transaction) Kind() string {
	if t.IsIncome {
		return "income"
	}
	return "expense"
}
