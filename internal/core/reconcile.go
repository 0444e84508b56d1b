package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// WeightToleranceKg is the fixed tolerance between the suggested and the
// measured total at the security check. A hard business rule, not configurable.
var WeightToleranceKg = decimal.NewFromInt(30)

// Unit labels for the reconciliation total.
const (
	CommonUnitKg    = "Kg"
	CommonUnitOther = "Units"
)

// Suggestion is the reconciler's view of an order before the guard enters the
// measured total.
type Suggestion struct {
	Total          decimal.Decimal
	CommonUnit     string // CommonUnitKg when every item converts, else CommonUnitOther
	AllConvertible bool
}

// ItemActual is one item's reconciled quantity, in the item's native unit.
type ItemActual struct {
	ItemID int
	Actual decimal.Decimal
}

// SuggestTotal sums the normalized per-item quantities. The common unit is Kg
// only when every item is convertible; otherwise the total is a raw-quantity
// sum labelled "Units" and the caller must skip the tolerance check.
//
// The mixed-unit fallback means no tolerance validation at all for such
// orders. That mirrors the existing business behavior; AllConvertible is
// surfaced so callers can at least warn.
func SuggestTotal(items []OrderItem) Suggestion {
	s := Suggestion{AllConvertible: true}
	for _, item := range items {
		mass, ok := NormalizedQuantity(item)
		if !ok {
			s.AllConvertible = false
		}
		s.Total = s.Total.Add(mass)
	}
	if s.AllConvertible {
		s.CommonUnit = CommonUnitKg
	} else {
		s.CommonUnit = CommonUnitOther
	}
	return s
}

// ValidateActual checks the measured total entered at the security check.
// The 30 kg tolerance applies only when the common unit is Kg.
func ValidateActual(actual decimal.Decimal, s Suggestion) error {
	if actual.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: actual total must be greater than zero, got %s", ErrValidation, actual)
	}
	if s.CommonUnit == CommonUnitKg {
		diff := actual.Sub(s.Total).Abs()
		if diff.GreaterThan(WeightToleranceKg) {
			return fmt.Errorf("%w: actual total %s differs from suggested %s by %s kg (tolerance %s kg)",
				ErrValidation, actual, s.Total, diff, WeightToleranceKg)
		}
	}
	return nil
}

// Reconcile redistributes one measured total proportionally across the
// order's items: each item's actual quantity is its ordered quantity scaled
// by actualTotal/suggestedTotal, in the item's native unit. Quantities are
// never entered per item.
func Reconcile(items []OrderItem, actualTotal decimal.Decimal) ([]ItemActual, error) {
	s := SuggestTotal(items)
	if s.Total.IsZero() {
		return nil, fmt.Errorf("%w: suggested total is zero", ErrEmptyOrder)
	}
	if err := ValidateActual(actualTotal, s); err != nil {
		return nil, err
	}

	ratio := actualTotal.Div(s.Total)
	actuals := make([]ItemActual, 0, len(items))
	for _, item := range items {
		actuals = append(actuals, ItemActual{
			ItemID: item.ID,
			Actual: item.Quantity.Mul(ratio),
		})
	}
	return actuals, nil
}
