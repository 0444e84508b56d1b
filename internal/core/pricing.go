package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultVATRate is the statutory VAT rate applied when an order is VAT
// applicable, expressed as a fraction.
var DefaultVATRate = decimal.RequireFromString("0.18")

// defaultWeighedCategoryCodes are the category codes whose products are
// billed by actually-delivered weight rather than ordered quantity.
var defaultWeighedCategoryCodes = []string{"BT", "LD", "OC", "PS", "WT"}

// PricingEngine computes order monetary totals. It is pure: every method is a
// function over the snapshot it is given, safe to run repeatedly without
// locking.
type PricingEngine struct {
	vatRate           decimal.Decimal
	weighedCategories map[string]struct{}
}

// NewPricingEngine builds an engine with the default VAT rate and
// weighed-goods category set.
func NewPricingEngine() *PricingEngine {
	return NewPricingEngineWith(DefaultVATRate, defaultWeighedCategoryCodes)
}

// NewPricingEngineWith builds an engine with an explicit VAT rate and
// weighed-goods category codes. The category set is injected once here, never
// re-declared per call site.
func NewPricingEngineWith(vatRate decimal.Decimal, weighedCodes []string) *PricingEngine {
	set := make(map[string]struct{}, len(weighedCodes))
	for _, code := range weighedCodes {
		set[strings.ToUpper(code)] = struct{}{}
	}
	return &PricingEngine{vatRate: vatRate, weighedCategories: set}
}

// VATRate returns the engine's VAT rate fraction.
func (e *PricingEngine) VATRate() decimal.Decimal { return e.vatRate }

// IsWeighedGoods reports whether a product in the given category is billed by
// delivered weight: either the category code is in the configured set, or the
// category name contains "chicken" (case-insensitive name-substring fallback).
func (e *PricingEngine) IsWeighedGoods(categoryCode, categoryName string) bool {
	if _, ok := e.weighedCategories[strings.ToUpper(categoryCode)]; ok {
		return true
	}
	return strings.Contains(strings.ToLower(categoryName), "chicken")
}

// LineTotal computes one item's total: quantity (or the weight override, when
// set) times unit price, less the percent discount. overrideWeight nil or zero
// means "no override" — fall back to the ordered quantity.
func (e *PricingEngine) LineTotal(item OrderItem, overrideWeight *decimal.Decimal) decimal.Decimal {
	qty := item.Quantity
	if overrideWeight != nil && overrideWeight.IsPositive() {
		qty = *overrideWeight
	}
	total := qty.Mul(item.Price)
	if item.Discount != nil && item.Discount.IsPositive() {
		factor := decimal.NewFromInt(1).Sub(item.Discount.Div(decimal.NewFromInt(100)))
		total = total.Mul(factor)
	}
	return total
}

// OrderSubtotal sums line totals. weightOverrides maps item ID to a delivered
// weight in kg; overrides are honored only for items the engine classifies as
// weighed goods.
func (e *PricingEngine) OrderSubtotal(items []OrderItem, weightOverrides map[int]decimal.Decimal) decimal.Decimal {
	var subtotal decimal.Decimal
	for _, item := range items {
		var override *decimal.Decimal
		if w, ok := weightOverrides[item.ID]; ok && e.IsWeighedGoods(item.CategoryCode, item.CategoryName) {
			override = &w
		}
		subtotal = subtotal.Add(e.LineTotal(item, override))
	}
	return subtotal
}

// OrderTotal applies VAT (when applicable) on top of the subtotal and rounds
// to 2 decimal places, half-up on the cent. Returns the grand total and the
// VAT portion.
func (e *PricingEngine) OrderTotal(items []OrderItem, weightOverrides map[int]decimal.Decimal, vatApplicable bool) (total, vatAmount decimal.Decimal) {
	subtotal := e.OrderSubtotal(items, weightOverrides)
	if !vatApplicable {
		return subtotal.Round(2), decimal.Zero.Round(2)
	}
	vatAmount = subtotal.Mul(e.vatRate).Round(2)
	total = subtotal.Add(subtotal.Mul(e.vatRate)).Round(2)
	return total, vatAmount
}

// ExtractVAT reverses VAT out of a VAT-inclusive grand total:
// subtotal = total / (1 + rate), vat = total - subtotal. Both rounded to 2 dp.
func (e *PricingEngine) ExtractVAT(total decimal.Decimal) (subtotal, vatAmount decimal.Decimal) {
	one := decimal.NewFromInt(1)
	subtotal = total.Div(one.Add(e.vatRate)).Round(2)
	vatAmount = total.Sub(subtotal).Round(2)
	return subtotal, vatAmount
}
