package core_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"farmgate/internal/core"
)

func TestDerivePaymentStatus(t *testing.T) {
	tests := []struct {
		name      string
		collected string
		total     string
		want      core.PaymentStatus
	}{
		{"nothing collected", "0", "1000", core.PaymentUnpaid},
		{"partial", "400", "1000", core.PaymentPartiallyPaid},
		{"exact", "1000", "1000", core.PaymentFullyPaid},
		{"within epsilon", "999.99", "1000", core.PaymentFullyPaid},
		{"just below epsilon", "999.98", "1000", core.PaymentPartiallyPaid},
		{"overpaid", "1000.01", "1000", core.PaymentFullyPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.DerivePaymentStatus(d(tt.collected), d(tt.total))
			if got != tt.want {
				t.Errorf("DerivePaymentStatus(%s, %s) = %s, want %s", tt.collected, tt.total, got, tt.want)
			}
		})
	}
}

func TestDeriveLandingStatus(t *testing.T) {
	tests := []struct {
		name         string
		amount       string
		newCollected string
		total        string
		want         core.OrderStatus
	}{
		{"zero amount confirms delivery unpaid", "0", "0", "1000", core.StatusDeliveredUnpaid},
		{"partial payment", "400", "400", "1000", core.StatusDeliveredPartial},
		{"full payment", "1000", "1000", "1000", core.StatusDelivered},
		{"completing payment", "600", "1000", "1000", core.StatusDelivered},
		{"full within epsilon", "999.99", "999.99", "1000", core.StatusDelivered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.DeriveLandingStatus(d(tt.amount), d(tt.newCollected), d(tt.total))
			if got != tt.want {
				t.Errorf("DeriveLandingStatus(%s, %s, %s) = %s, want %s",
					tt.amount, tt.newCollected, tt.total, got, tt.want)
			}
		})
	}
}

func TestValidatePaymentAmount(t *testing.T) {
	if err := core.ValidatePaymentAmount(d("-1"), decimal.Zero, d("1000")); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative amount: err = %v, want ErrInvalidAmount", err)
	}
	// 600 remaining, epsilon allows up to 600.01.
	if err := core.ValidatePaymentAmount(d("600.01"), d("400"), d("1000")); err != nil {
		t.Errorf("amount at epsilon boundary: %v", err)
	}
	if err := core.ValidatePaymentAmount(d("600.02"), d("400"), d("1000")); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("overpayment: err = %v, want ErrInvalidAmount", err)
	}
	if err := core.ValidatePaymentAmount(decimal.Zero, decimal.Zero, d("1000")); err != nil {
		t.Errorf("zero amount is a valid delivery confirmation: %v", err)
	}
}

func TestDistributeGroupPayment_Proportional(t *testing.T) {
	// Totals 300 and 700, paying 333.33: shares are 99.999 and 233.331.
	totals := []decimal.Decimal{d("300"), d("700")}

	deltas, err := core.DistributeGroupPayment(totals, d("333.33"))
	if err != nil {
		t.Fatalf("DistributeGroupPayment: %v", err)
	}
	if !deltas[0].Equal(d("99.999")) {
		t.Errorf("delta[0] = %s, want 99.999", deltas[0])
	}
	if !deltas[1].Equal(d("233.331")) {
		t.Errorf("delta[1] = %s, want 233.331", deltas[1])
	}

	sum := deltas[0].Add(deltas[1])
	if !sum.Equal(d("333.33")) {
		t.Errorf("deltas sum = %s, want exactly 333.33", sum)
	}
}

func TestDistributeGroupPayment_ResidualToLastRow(t *testing.T) {
	// Three equal thirds never divide 100 exactly; the drift lands on the
	// last row and the sum still equals the paid amount.
	totals := []decimal.Decimal{d("100"), d("100"), d("100")}

	deltas, err := core.DistributeGroupPayment(totals, d("100"))
	if err != nil {
		t.Fatalf("DistributeGroupPayment: %v", err)
	}

	var sum decimal.Decimal
	for _, delta := range deltas {
		sum = sum.Add(delta)
	}
	if !sum.Equal(d("100")) {
		t.Errorf("deltas sum = %s, want exactly 100", sum)
	}
	if deltas[0].Equal(deltas[2]) {
		t.Error("expected the residual correction on the last row")
	}
}

func TestDistributeGroupPayment_Rejections(t *testing.T) {
	if _, err := core.DistributeGroupPayment(nil, d("10")); !errors.Is(err, core.ErrValidation) {
		t.Errorf("empty group: err = %v, want ErrValidation", err)
	}
	totals := []decimal.Decimal{decimal.Zero, decimal.Zero}
	if _, err := core.DistributeGroupPayment(totals, d("10")); !errors.Is(err, core.ErrValidation) {
		t.Errorf("zero group total: err = %v, want ErrValidation", err)
	}
}
