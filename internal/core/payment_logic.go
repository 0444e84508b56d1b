package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Epsilon is the currency-unit slack used when comparing collected vs total
// amounts, absorbing rounding noise.
var Epsilon = decimal.RequireFromString("0.01")

// PaymentMethodNone is forced onto zero-amount delivery confirmations.
const PaymentMethodNone = "none"

// DerivePaymentStatus is the single source of truth for payment_status:
// fully_paid iff collected >= total - Epsilon, unpaid iff collected is zero,
// partially_paid otherwise.
func DerivePaymentStatus(collected, total decimal.Decimal) PaymentStatus {
	if collected.IsZero() {
		return PaymentUnpaid
	}
	if collected.GreaterThanOrEqual(total.Sub(Epsilon)) {
		return PaymentFullyPaid
	}
	return PaymentPartiallyPaid
}

// DeriveLandingStatus decides the order status a payment event lands on. The
// payment outcome, not the caller's requested target, is authoritative: a
// requested "Delivered" resolves to the partially-collected status when the
// collected amount falls short.
func DeriveLandingStatus(amount, newCollected, total decimal.Decimal) OrderStatus {
	if amount.IsZero() {
		return StatusDeliveredUnpaid
	}
	if newCollected.GreaterThanOrEqual(total.Sub(Epsilon)) {
		return StatusDelivered
	}
	return StatusDeliveredPartial
}

// ValidatePaymentAmount rejects negative amounts and amounts exceeding the
// remaining balance by more than Epsilon.
func ValidatePaymentAmount(amount, collected, total decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: amount %s is negative", ErrInvalidAmount, amount)
	}
	remaining := total.Sub(collected)
	if amount.GreaterThan(remaining.Add(Epsilon)) {
		return fmt.Errorf("%w: amount %s exceeds remaining balance %s", ErrInvalidAmount, amount, remaining)
	}
	return nil
}

// DistributeGroupPayment splits one collected amount across consolidated
// order rows in proportion to each row's total. The deltas always sum to
// exactly the paid amount: any floating drift beyond Epsilon is corrected by
// adding the residual to the last row (deterministic tie-break, not
// largest-remainder).
func DistributeGroupPayment(rowTotals []decimal.Decimal, amount decimal.Decimal) ([]decimal.Decimal, error) {
	if len(rowTotals) == 0 {
		return nil, fmt.Errorf("%w: group has no rows", ErrValidation)
	}

	var groupTotal decimal.Decimal
	for _, t := range rowTotals {
		groupTotal = groupTotal.Add(t)
	}
	if groupTotal.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: group total must be positive, got %s", ErrValidation, groupTotal)
	}

	deltas := make([]decimal.Decimal, len(rowTotals))
	var distributed decimal.Decimal
	for i, t := range rowTotals {
		deltas[i] = amount.Mul(t.Div(groupTotal))
		distributed = distributed.Add(deltas[i])
	}

	residual := amount.Sub(distributed)
	if !residual.IsZero() {
		last := len(deltas) - 1
		deltas[last] = deltas[last].Add(residual)
	}
	return deltas, nil
}
