package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by Reader.Get when the order does not exist.
var ErrNotFound = errors.New("order not found")

// Kind is the client-facing category of a validation failure.
type Kind string

const (
	KindInvalidOrder Kind = "InvalidOrder"
	KindMissingField Kind = "MissingField"
	KindInvalidType  Kind = "InvalidType"
)

// ValidationError reports a rejected submission. It is always produced
// before the store is touched.
type ValidationError struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// EmptyCartError returns the error for a submission without items.
func EmptyCartError() error {
	return &ValidationError{Kind: KindInvalidOrder, Field: "items", Message: "order must contain at least one item"}
}

// InvalidTotalError returns the error for an absent or non-numeric total.
func InvalidTotalError() error {
	return &ValidationError{Kind: KindInvalidOrder, Field: "total", Message: "total must be a valid number"}
}

// MissingFieldError returns the error for an absent required field.
func MissingFieldError(field string) error {
	return &ValidationError{Kind: KindMissingField, Field: field, Message: field + " is required"}
}

// InvalidTypeError returns the error for a field of the wrong type.
func InvalidTypeError(field, want string) error {
	return &ValidationError{
		Kind:    KindInvalidType,
		Field:   field,
		Message: fmt.Sprintf("%s must be a valid %s", field, want),
	}
}

// InvalidOrderError returns a generic malformed-cart error.
func InvalidOrderError(field, msg string) error {
	return &ValidationError{Kind: KindInvalidOrder, Field: field, Message: msg}
}

// StockInsufficientError aborts an order under StockPolicyStrict.
type StockInsufficientError struct {
	ProductID int64
	Requested int
}

func (e *StockInsufficientError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (requested %d)", e.ProductID, e.Requested)
}

// TransactionError wraps a store failure that caused the order transaction
// to roll back.
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string {
	return "order transaction failed: " + e.Err.Error()
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
