package billing

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Errors the engine returns match one of these through
// errors.Is; the specific sentinels below carry them. ErrNoActiveTariff is
// the one error that matches two kinds.
var (
	ErrNotFound        = errors.New("billing: not found")
	ErrConflict        = errors.New("billing: conflict")
	ErrInvalidArgument = errors.New("billing: invalid argument")
	ErrUnresolvable    = errors.New("billing: unresolvable")
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrAlreadyExists = kindError(ErrConflict, "billing: already exists")

	// Account errors
	ErrCustomerNotFound    = kindError(ErrNotFound, "billing: customer not found")
	ErrAccountNotFound     = kindError(ErrNotFound, "billing: account not found")
	ErrInsufficientAdvance = kindError(ErrConflict, "billing: advance balance would go negative")

	// Tariff and rule errors
	ErrTariffNotFound = kindError(ErrNotFound, "billing: tariff not found")
	// ErrNoActiveTariff is both NotFound and Unresolvable: no tariff is in
	// effect for the category and date, and retrying will not change that.
	ErrNoActiveTariff = &kinded{kinds: []error{ErrNotFound, ErrUnresolvable}, msg: "billing: no active tariff"}
	ErrNoSlabs        = kindError(ErrUnresolvable, "billing: tariff has no slabs")
	// ErrCurrencyMismatch means a tariff is priced in a currency other than
	// the one bills are issued in.
	ErrCurrencyMismatch = kindError(ErrUnresolvable, "billing: tariff currency differs from billing currency")

	// Reading errors
	ErrReadingNotFound      = kindError(ErrNotFound, "billing: meter reading not found")
	ErrReadingAlreadyExists = kindError(ErrConflict, "billing: meter reading already exists for account and month")

	// Bill errors
	ErrBillNotFound      = kindError(ErrNotFound, "billing: bill not found")
	ErrBillAlreadyExists = kindError(ErrConflict, "billing: bill already generated for account and month")

	// Payment errors
	ErrPaymentNotFound = kindError(ErrNotFound, "billing: payment not found")

	// Store errors
	ErrConcurrentUpdate  = kindError(ErrConflict, "billing: concurrent update")
	ErrStoreClosed       = errors.New("billing: store is closed")
	ErrTransactionFailed = errors.New("billing: transaction failed")
	ErrMigrationFailed   = errors.New("billing: migration failed")
)

type kinded struct {
	kinds []error
	msg   string
}

func kindError(kind error, msg string) error {
	return &kinded{kinds: []error{kind}, msg: msg}
}

// detailed returns an error with its own message that still matches
// sentinel and every kind sentinel carries.
func detailed(sentinel error, format string, args ...any) error {
	kinds := []error{sentinel}
	if k, ok := sentinel.(*kinded); ok {
		kinds = append(kinds, k.kinds...)
	}
	return &kinded{kinds: kinds, msg: fmt.Sprintf(format, args...)}
}

func (e *kinded) Error() string { return e.msg }

func (e *kinded) Is(target error) bool {
	for _, k := range e.kinds {
		if k == target {
			return true
		}
	}
	return false
}

// ValidationError is an InvalidArgument failure on one input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("billing: validation failed for %s: %s", e.Field, e.Message)
}

// Is makes every ValidationError match ErrInvalidArgument.
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalid(field, format string, args ...any) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "billing: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("billing: %d errors occurred: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true for duplicate bills, readings and lost races.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsInvalidArgument returns true for rejected input.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsUnresolvable returns true when reference data cannot price a bill.
func IsUnresolvable(err error) bool {
	return errors.Is(err, ErrUnresolvable)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentUpdate) ||
		errors.Is(err, ErrTransactionFailed)
}
