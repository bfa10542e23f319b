// Package errs defines the error taxonomy shared by the ledger, the journal and
// the payment scheduler.
package errs

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

var (
	// ErrValidation marks malformed input: non-positive amounts, bad account
	// type combinations, payments above what is owed.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientFunds occurs when a debit or transfer exceeds the available
	// balance and a negative balance is not allowed.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientCredit occurs when a debit exceeds the remaining credit line
	// of an overdraft account.
	ErrInsufficientCredit = errors.New("insufficient credit")

	// ErrSameAccount rejects transfers whose source and destination match.
	ErrSameAccount = errors.New("source and destination account are the same")

	// ErrNotFound covers unknown entities and entities owned by someone else.
	ErrNotFound = errors.New("not found")

	// ErrShortfall indicates a payment pool below the sum of minimum payments.
	ErrShortfall = errors.New("available amount does not cover minimum payments")

	// ErrOperationFailed marks storage faults. These are not business-rule
	// failures and are reported to callers as a separate category.
	ErrOperationFailed = errors.New("operation failed")

	// ErrConcurrentUpdate is returned by stores when an optimistic version
	// check loses against a concurrent writer.
	ErrConcurrentUpdate = errors.New("concurrent update detected")
)

// Kind is a coarse classification of an error for callers that translate
// failures into user-facing responses.
type Kind string

const (
	KindNone               Kind = ""
	KindValidation         Kind = "validation"
	KindInsufficientFunds  Kind = "insufficient_funds"
	KindInsufficientCredit Kind = "insufficient_credit"
	KindSameAccount        Kind = "same_account"
	KindNotFound           Kind = "not_found"
	KindShortfall          Kind = "shortfall"
	KindOperationFailed    Kind = "operation_failed"
)

// ValidationError describes rejected input. MaxPayable is set when the
// rejection is an overpayment, and reports the largest acceptable amount.
type ValidationError struct {
	Field      string
	Reason     string
	MaxPayable *decimal.Decimal
}

func (e *ValidationError) Error() string {
	msg := e.Reason
	if e.Field != "" {
		msg = e.Field + ": " + e.Reason
	}
	if e.MaxPayable != nil {
		msg += fmt.Sprintf(" (maximum payable %s)", e.MaxPayable.String())
	}
	return "validation failed: " + msg
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError for the given field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// MoneyScale is the number of decimal places stored for money amounts.
const MoneyScale = 2

// CheckScale rejects v when it carries more than MoneyScale decimal places.
func CheckScale(field string, v decimal.Decimal) error {
	if !v.Equal(v.Truncate(MoneyScale)) {
		return Invalid(field, fmt.Sprintf("at most %d decimal places", MoneyScale))
	}
	return nil
}

// Overpayment builds a ValidationError reporting the maximum payable amount.
func Overpayment(field string, max decimal.Decimal) error {
	return &ValidationError{Field: field, Reason: "amount exceeds outstanding debt", MaxPayable: &max}
}

// InsufficientFundsError carries the balance that was available for a debit.
type InsufficientFundsError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %s, available %s", e.Requested, e.Available)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// InsufficientCreditError carries the unused part of a credit line.
type InsufficientCreditError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient credit: requested %s, remaining line %s", e.Requested, e.Available)
}

func (e *InsufficientCreditError) Unwrap() error { return ErrInsufficientCredit }

// ShortfallError reports how far a payment pool is from covering minimums.
type ShortfallError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("shortfall: required %s, available %s, missing %s", e.Required, e.Available, e.Shortfall)
}

func (e *ShortfallError) Unwrap() error { return ErrShortfall }

// NotFound wraps ErrNotFound with the entity and identifier.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

// OperationError wraps a storage fault. It matches both ErrOperationFailed and
// the original cause under errors.Is.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: operation failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() []error { return []error{ErrOperationFailed, e.Err} }

// Operation wraps err as an OperationError unless err already is one.
func Operation(op string, err error) error {
	if err == nil {
		return nil
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return err
	}
	return &OperationError{Op: op, Err: err}
}

// KindOf classifies err. Anything that is not a known business error is an
// operation failure.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrOperationFailed):
		return KindOperationFailed
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrInsufficientCredit):
		return KindInsufficientCredit
	case errors.Is(err, ErrSameAccount):
		return KindSameAccount
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrShortfall):
		return KindShortfall
	default:
		return KindOperationFailed
	}
}

// IsBusiness reports whether err is a recoverable business-rule failure.
func IsBusiness(err error) bool {
	k := KindOf(err)
	return k != KindNone && k != KindOperationFailed
}

// Status maps err to an HTTP status code for the HTTP adapter.
func Status(err error) int {
	switch KindOf(err) {
	case KindNone:
		return http.StatusOK
	case KindValidation, KindSameAccount:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientFunds, KindInsufficientCredit, KindShortfall:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Message is the text safe to show a client for err. Operation failures are
// reduced to a generic message; their cause is logged where they occur.
func Message(err error) string {
	if KindOf(err) == KindOperationFailed {
		return ErrOperationFailed.Error()
	}
	return err.Error()
}
