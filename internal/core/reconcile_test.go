package core_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"farmgate/internal/core"
)

func kgItem(id int, qty string) core.OrderItem {
	return core.OrderItem{ID: id, Quantity: d(qty), UnitType: core.UnitKg}
}

func TestSuggestTotal_AllKg(t *testing.T) {
	items := []core.OrderItem{kgItem(1, "100"), kgItem(2, "40")}

	s := core.SuggestTotal(items)
	if !s.Total.Equal(d("140")) {
		t.Errorf("total = %s, want 140", s.Total)
	}
	if s.CommonUnit != core.CommonUnitKg {
		t.Errorf("common unit = %s, want Kg", s.CommonUnit)
	}
	if !s.AllConvertible {
		t.Error("expected all items convertible")
	}
}

func TestSuggestTotal_MixedUnits(t *testing.T) {
	packWeight := d("2.5")
	grams := d("500")
	items := []core.OrderItem{
		kgItem(1, "100"),
		{ID: 2, Quantity: d("4"), UnitType: core.UnitPacks, WeightPerPackKg: &packWeight},
		{ID: 3, Quantity: d("20"), UnitType: core.UnitGram, GramsPerUnit: &grams},
	}

	s := core.SuggestTotal(items)
	// 100 + 4*2.5 + 20*0.5 = 120
	if !s.Total.Equal(d("120")) {
		t.Errorf("total = %s, want 120", s.Total)
	}
	if s.CommonUnit != core.CommonUnitKg {
		t.Errorf("common unit = %s, want Kg", s.CommonUnit)
	}
}

func TestSuggestTotal_MissingConversionFactor(t *testing.T) {
	items := []core.OrderItem{
		kgItem(1, "100"),
		{ID: 2, Quantity: d("4"), UnitType: core.UnitPacks}, // no pack weight
	}

	s := core.SuggestTotal(items)
	if s.AllConvertible {
		t.Error("expected degraded mode for missing pack weight")
	}
	if s.CommonUnit != core.CommonUnitOther {
		t.Errorf("common unit = %s, want Units", s.CommonUnit)
	}
	// Raw-quantity fallback: 100 + 4.
	if !s.Total.Equal(d("104")) {
		t.Errorf("total = %s, want 104", s.Total)
	}
}

func TestReconcile_ProportionalRedistribution(t *testing.T) {
	// Suggested 140 kg, measured 133: each item scales by 133/140 = 0.95.
	items := []core.OrderItem{kgItem(1, "100"), kgItem(2, "40")}

	actuals, err := core.Reconcile(items, d("133"))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(actuals) != 2 {
		t.Fatalf("got %d actuals, want 2", len(actuals))
	}
	if !actuals[0].Actual.Equal(d("95")) {
		t.Errorf("item 1 actual = %s, want 95", actuals[0].Actual)
	}
	if !actuals[1].Actual.Equal(d("38")) {
		t.Errorf("item 2 actual = %s, want 38", actuals[1].Actual)
	}

	// The reconciled quantities preserve the measured total.
	sum := actuals[0].Actual.Add(actuals[1].Actual)
	if !sum.Equal(d("133")) {
		t.Errorf("actuals sum = %s, want 133", sum)
	}
}

func TestReconcile_ToleranceExceeded(t *testing.T) {
	items := []core.OrderItem{kgItem(1, "100")}

	// 140 vs 100 suggested: 40 kg over the 30 kg tolerance.
	_, err := core.Reconcile(items, d("140"))
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}

	// Exactly 30 over is inside the tolerance.
	if _, err := core.Reconcile(items, d("130")); err != nil {
		t.Errorf("boundary 130 vs 100: %v", err)
	}
	// Exactly 30 under likewise.
	if _, err := core.Reconcile(items, d("70")); err != nil {
		t.Errorf("boundary 70 vs 100: %v", err)
	}
}

func TestReconcile_NoToleranceForMixedUnits(t *testing.T) {
	// Degraded mode: no conversion factor, so the tolerance check is skipped
	// even for a wildly different measured total.
	items := []core.OrderItem{
		{ID: 1, Quantity: d("100"), UnitType: core.UnitPacks},
	}

	actuals, err := core.Reconcile(items, d("500"))
	if err != nil {
		t.Fatalf("Reconcile in degraded mode: %v", err)
	}
	if !actuals[0].Actual.Equal(d("500")) {
		t.Errorf("actual = %s, want 500", actuals[0].Actual)
	}
}

func TestReconcile_Rejections(t *testing.T) {
	items := []core.OrderItem{kgItem(1, "100")}

	if _, err := core.Reconcile(items, decimal.Zero); !errors.Is(err, core.ErrValidation) {
		t.Errorf("zero actual: err = %v, want ErrValidation", err)
	}
	if _, err := core.Reconcile(items, d("-5")); !errors.Is(err, core.ErrValidation) {
		t.Errorf("negative actual: err = %v, want ErrValidation", err)
	}
	if _, err := core.Reconcile(nil, d("10")); !errors.Is(err, core.ErrEmptyOrder) {
		t.Errorf("empty order: err = %v, want ErrEmptyOrder", err)
	}
}

func TestNormalizedQuantity(t *testing.T) {
	packWeight := d("1.2")
	grams := d("250")

	tests := []struct {
		name        string
		item        core.OrderItem
		want        string
		convertible bool
	}{
		{"kg passthrough", kgItem(1, "7.5"), "7.5", true},
		{"packs", core.OrderItem{Quantity: d("10"), UnitType: core.UnitPacks, WeightPerPackKg: &packWeight}, "12", true},
		{"grams", core.OrderItem{Quantity: d("8"), UnitType: core.UnitGram, GramsPerUnit: &grams}, "2", true},
		{"packs without weight", core.OrderItem{Quantity: d("10"), UnitType: core.UnitPacks}, "10", false},
		{"grams without factor", core.OrderItem{Quantity: d("8"), UnitType: core.UnitGram}, "8", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mass, ok := core.NormalizedQuantity(tt.item)
			if !mass.Equal(d(tt.want)) {
				t.Errorf("mass = %s, want %s", mass, tt.want)
			}
			if ok != tt.convertible {
				t.Errorf("convertible = %v, want %v", ok, tt.convertible)
			}
		})
	}
}
