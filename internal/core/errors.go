package core

import "errors"

// Error kinds surfaced to callers as typed failures. Services wrap them with
// context via fmt.Errorf("...: %w", Err...), so callers match with errors.Is.
var (
	// ErrInvalidTransition means the target status is not in the acting
	// role's transition menu for the order's current status.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrValidation covers missing reasons/notes, non-positive weights or
	// amounts, and quantity-tolerance violations.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyOrder is returned when reconciliation runs against an order
	// whose suggested total is zero.
	ErrEmptyOrder = errors.New("order has no reconcilable quantity")

	// ErrInvalidAmount means a payment is negative or exceeds the remaining
	// balance by more than Epsilon.
	ErrInvalidAmount = errors.New("invalid payment amount")

	// ErrConcurrentModification means the order row changed between read and
	// write. The caller retries the whole operation from a fresh read; the
	// core never retries internally.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrNotFound covers missing orders, items, and products.
	ErrNotFound = errors.New("not found")
)
