package store

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors. These are terminal for the request that caused them; only
// storage-layer failures (anything not matching the taxonomy) are worth
// retrying unchanged.
var (
	// ErrNotFound is returned when a referenced record does not exist or is
	// tombstoned.
	ErrNotFound = errors.New("not found")

	// ErrConcurrencyConflict is returned when an allocation attempt exhausts
	// its retry budget against a locked database.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// ValidationError describes malformed or missing required input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientQuantityError is returned when an allocation request exceeds the
// donation's remaining pool.
type InsufficientQuantityError struct {
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity: requested %s, remaining %s", e.Requested, e.Remaining)
}

// InvalidStatusTransitionError is returned for a status change outside the
// allow-list.
type InvalidStatusTransitionError struct {
	From string
	To   string
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}
