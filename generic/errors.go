/*
errors.go - Centralized error types for the document engine

PURPOSE:
  All expected business-rule failures in one place. Every error here is a
  typed, recoverable result value the caller can branch on - never an
  exception for ordinary control flow. Only programmer errors (unknown
  document type, malformed transition table) panic.

ERROR CATEGORIES:
  1. Input errors      - InvalidLineItemError, CurrencyMismatchError
  2. Lifecycle errors  - TransitionError (names the violated guard)
  3. Conversion errors - OverConsumptionError (names the source line and
                         the exact remaining amount)
  4. Store errors      - not found, version conflict

USAGE:
  Callers branch with errors.Is / errors.As:

    var te *generic.TransitionError
    if errors.As(err, &te) {
        render(te.ViolatedGuard)
    }

SEE ALSO:
  - machine.go: produces TransitionError
  - convert.go: produces OverConsumptionError
  - calc.go: produces InvalidLineItemError
*/
package generic

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidLineItem is returned for negative quantities or prices.
	ErrInvalidLineItem = errors.New("invalid line item")

	// ErrCurrencyMismatch is returned when two Money values of different
	// currencies are combined. There is no implicit conversion.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrTransitionNotAllowed is returned for an undefined (state, action)
	// pair or a failing guard. Undefined pairs fail closed.
	ErrTransitionNotAllowed = errors.New("transition not allowed")

	// ErrOverConsumption is returned when a conversion would consume more
	// than the source line has remaining.
	ErrOverConsumption = errors.New("conversion exceeds source remaining")

	// ErrUnbalancedEntry is returned by guards on ledger-style documents
	// whose recomputed totals do not match their stored totals.
	ErrUnbalancedEntry = errors.New("unbalanced entry")

	// ErrDocumentNotFound is returned when a referenced document doesn't exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentExists is returned by Create when the ID is already taken.
	ErrDocumentExists = errors.New("document already exists")

	// ErrVersionConflict is returned when optimistic locking detects that
	// the document changed between read and write.
	ErrVersionConflict = errors.New("document version conflict")
)

// =============================================================================
// STRUCTURED ERRORS - Carry context for the caller
// =============================================================================

// InvalidLineItemError reports bad input data on a single line.
type InvalidLineItemError struct {
	LineID LineItemID
	Field  string
	Reason string
}

func (e *InvalidLineItemError) Error() string {
	return fmt.Sprintf("invalid line item %s: %s %s", e.LineID, e.Field, e.Reason)
}

func (e *InvalidLineItemError) Unwrap() error { return ErrInvalidLineItem }

// CurrencyMismatchError reports an attempt to combine incompatible currencies.
type CurrencyMismatchError struct {
	Left  Currency
	Right Currency
	Op    string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: cannot %s %s and %s", e.Op, e.Left, e.Right)
}

func (e *CurrencyMismatchError) Unwrap() error { return ErrCurrencyMismatch }

// TransitionError reports an illegal state change. ViolatedGuard names the
// guard that failed ("NotEditable", "UnbalancedEntry", ...) or
// "UndefinedTransition" when no such edge exists in the table.
type TransitionError struct {
	DocumentType  string
	From          State
	Action        Action
	ViolatedGuard string
	Detail        string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s: cannot %q from %q (guard: %s)",
		e.DocumentType, e.Action, e.From, e.ViolatedGuard)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return ErrTransitionNotAllowed }

// OverConsumptionError reports a conversion that would over-consume a
// source line. Remaining carries the exact amount still available so the
// caller can render a corrected suggestion.
type OverConsumptionError struct {
	SourceLineID LineItemID
	Requested    decimal.Decimal
	Remaining    decimal.Decimal
}

func (e *OverConsumptionError) Error() string {
	return fmt.Sprintf("over-consumption on line %s: requested %s, remaining %s",
		e.SourceLineID, e.Requested, e.Remaining)
}

func (e *OverConsumptionError) Unwrap() error { return ErrOverConsumption }

// UnbalancedEntryError reports totals that do not add up on a document
// that requires balanced entries before posting.
type UnbalancedEntryError struct {
	DocumentID DocumentID
	Expected   Money
	Actual     Money
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("unbalanced entry on %s: expected %s, got %s",
		e.DocumentID, e.Expected, e.Actual)
}

func (e *UnbalancedEntryError) Unwrap() error { return ErrUnbalancedEntry }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is a business-rule violation the
// caller can recover from (as opposed to an infrastructure failure).
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidLineItem) ||
		errors.Is(err, ErrCurrencyMismatch) ||
		errors.Is(err, ErrTransitionNotAllowed) ||
		errors.Is(err, ErrOverConsumption) ||
		errors.Is(err, ErrUnbalancedEntry)
}

// IsRetryable returns true if the error might succeed on a fresh snapshot.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsNotFound returns true if the error indicates a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}
