package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("lattice: validation failed")

	// ErrTransaction is matched by every *TransactionError.
	ErrTransaction = errors.New("lattice: transaction rejected")

	// ErrOperation is matched by every *OperationError.
	ErrOperation = errors.New("lattice: operation failed")

	// ErrConditionFailed is returned when the store rejects a write because its
	// condition evaluated to false.
	ErrConditionFailed = errors.New("lattice: condition check failed")

	// ErrConsumed is returned when a builder is executed or enlisted twice.
	ErrConsumed = errors.New("lattice: operation already consumed")
)

// ValidationError reports a builder or command that cannot be compiled.
type ValidationError struct {
	Table   string
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("lattice: validation failed")
	if e.Table != "" {
		fmt.Fprintf(&b, " for table %q", e.Table)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %q", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// TransactionReason identifies why a transaction rejected an item or refused
// to execute.
type TransactionReason string

const (
	ReasonDuplicateItem   TransactionReason = "duplicate item"
	ReasonEmpty           TransactionReason = "empty transaction"
	ReasonTooManyItems    TransactionReason = "too many items"
	ReasonAlreadyExecuted TransactionReason = "transaction already executed"
)

// TransactionError is returned before dispatch when a transaction is invalid.
type TransactionError struct {
	Reason TransactionReason
	Table  string
	Key    string
	Count  int
	Limit  int
}

func (e *TransactionError) Error() string {
	switch e.Reason {
	case ReasonDuplicateItem:
		return fmt.Sprintf("lattice: %s: table %q key %s is already part of this transaction", e.Reason, e.Table, e.Key)
	case ReasonTooManyItems:
		return fmt.Sprintf("lattice: %s: %d exceeds limit of %d", e.Reason, e.Count, e.Limit)
	}
	return "lattice: " + string(e.Reason)
}

func (e *TransactionError) Is(target error) bool {
	return target == ErrTransaction
}

// OperationError wraps an executor failure with a resolved dump of every item
// that was submitted, since the store does not reliably say which one failed.
type OperationError struct {
	Op    string
	Items []Readable
	Err   error
}

func (e *OperationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "lattice: %s failed: %v", e.Op, e.Err)

	var cancelled *CancellationError
	errors.As(e.Err, &cancelled)

	for i, item := range e.Items {
		fmt.Fprintf(&b, "\n  [%d] %s", i, item.String())
		if cancelled != nil {
			if r, ok := cancelled.reasonFor(i); ok {
				fmt.Fprintf(&b, " <- %s", r.Code)
				if r.Message != "" {
					fmt.Fprintf(&b, ": %s", r.Message)
				}
			}
		}
	}
	return b.String()
}

func (e *OperationError) Is(target error) bool {
	return target == ErrOperation
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// CancellationReason is the store's verdict for one transaction item.
type CancellationReason struct {
	Index   int
	Code    string
	Message string
}

// CancellationError reports a cancelled transaction with per-item reasons.
// Items that were not at fault carry the code "None" and are omitted.
type CancellationError struct {
	Reasons []CancellationReason
	Err     error
}

func (e *CancellationError) Error() string {
	parts := make([]string, 0, len(e.Reasons))
	for _, r := range e.Reasons {
		parts = append(parts, fmt.Sprintf("item %d: %s", r.Index, r.Code))
	}
	if len(parts) == 0 {
		return "lattice: transaction cancelled"
	}
	return "lattice: transaction cancelled (" + strings.Join(parts, ", ") + ")"
}

func (e *CancellationError) Unwrap() error {
	return e.Err
}

// Is reports ErrConditionFailed when any item failed its condition.
func (e *CancellationError) Is(target error) bool {
	if target != ErrConditionFailed {
		return false
	}
	for _, r := range e.Reasons {
		if r.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

func (e *CancellationError) reasonFor(index int) (CancellationReason, bool) {
	for _, r := range e.Reasons {
		if r.Index == index {
			return r, true
		}
	}
	return CancellationReason{}, false
}

func consumedError(table string) error {
	return &ValidationError{Table: table, Message: "operation already consumed", Err: ErrConsumed}
}
