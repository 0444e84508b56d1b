package core

import "github.com/shopspring/decimal"

var gramsPerKg = decimal.NewFromInt(1000)

// NormalizedQuantity converts an item's ordered quantity into kilograms.
// Kg items pass through, Packs multiply by weight_per_pack_kg, gram-unit items
// multiply by grams_per_unit/1000. An item missing its required conversion
// factor falls back to the raw quantity and reports convertible=false
// (degraded mode — the caller must drop the Kg label and tolerance check).
func NormalizedQuantity(item OrderItem) (mass decimal.Decimal, convertible bool) {
	switch item.UnitType {
	case UnitKg:
		return item.Quantity, true
	case UnitPacks:
		if item.WeightPerPackKg == nil || item.WeightPerPackKg.IsZero() {
			return item.Quantity, false
		}
		return item.Quantity.Mul(*item.WeightPerPackKg), true
	case UnitGram:
		if item.GramsPerUnit == nil || item.GramsPerUnit.IsZero() {
			return item.Quantity, false
		}
		return item.Quantity.Mul(*item.GramsPerUnit).Div(gramsPerKg), true
	default:
		return item.Quantity, false
	}
}
