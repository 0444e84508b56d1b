package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"farmgate/internal/core"
)

var financeActor = core.Actor{UserID: 4, Role: core.RoleFinanceAdmin}

// departedOrder creates an order and moves it to Departed From Farm, the state
// payments are normally collected from.
func departedOrder(t *testing.T, orders core.OrderService) *core.Order {
	t.Helper()
	order := createTestOrder(t, orders)
	order, err := orders.Transition(context.Background(), order.ID, adminActor, core.StatusDepartedFarm, core.TransitionOptions{})
	if err != nil {
		t.Fatalf("depart: %v", err)
	}
	return order
}

func TestPaymentService_PartialThenFull(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	orders := newTestOrderService(pool)
	payments := core.NewPaymentService(pool, core.NewPricingEngine())
	order := departedOrder(t, orders)
	ctx := context.Background()

	// Partial collection: 1000 of 2360.
	bill, err := payments.RecordPayment(ctx, order.ID, financeActor, core.PaymentParams{
		Amount: decimal.RequireFromString("1000"),
		Method: "cash",
	})
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if bill.ReceiptNo != order.DisplayID+"-P1" {
		t.Errorf("receipt = %s, want %s-P1", bill.ReceiptNo, order.DisplayID)
	}
	if !bill.RemainingBalance.Equal(decimal.RequireFromString("1360")) {
		t.Errorf("remaining = %s, want 1360", bill.RemainingBalance)
	}

	fetched, err := orders.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if fetched.Status != core.StatusDeliveredPartial {
		t.Errorf("status = %s, want %s", fetched.Status, core.StatusDeliveredPartial)
	}
	if fetched.PaymentStatus != core.PaymentPartiallyPaid {
		t.Errorf("payment status = %s, want %s", fetched.PaymentStatus, core.PaymentPartiallyPaid)
	}

	// Completing collection lands on Delivered with a sequenced receipt.
	bill, err = payments.RecordPayment(ctx, order.ID, financeActor, core.PaymentParams{
		Amount: decimal.RequireFromString("1360"),
		Method: "upi",
	})
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if bill.ReceiptNo != order.DisplayID+"-P2" {
		t.Errorf("receipt = %s, want %s-P2", bill.ReceiptNo, order.DisplayID)
	}

	fetched, _ = orders.GetOrder(ctx, order.ID)
	if fetched.Status != core.StatusDelivered {
		t.Errorf("status = %s, want %s", fetched.Status, core.StatusDelivered)
	}
	if fetched.PaymentStatus != core.PaymentFullyPaid {
		t.Errorf("payment status = %s, want %s", fetched.PaymentStatus, core.PaymentFullyPaid)
	}
	if fetched.CompletedBy == nil || *fetched.CompletedBy != financeActor.UserID {
		t.Errorf("completed_by = %v, want %d", fetched.CompletedBy, financeActor.UserID)
	}

	history, err := payments.ListPayments(ctx, order.ID)
	if err != nil {
		t.Fatalf("ListPayments: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("payment rows = %d, want 2", len(history))
	}
}

func TestPaymentService_ZeroAmountConfirmsDelivery(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	orders := newTestOrderService(pool)
	payments := core.NewPaymentService(pool, core.NewPricingEngine())
	order := departedOrder(t, orders)
	ctx := context.Background()

	bill, err := payments.RecordPayment(ctx, order.ID, financeActor, core.PaymentParams{
		Amount: decimal.Zero,
		Method: "cash",
	})
	if err != nil {
		t.Fatalf("zero payment: %v", err)
	}
	if bill.ReceiptNo != "" {
		t.Errorf("receipt = %q, want empty for a zero-amount event", bill.ReceiptNo)
	}
	if bill.PaymentMethod != core.PaymentMethodNone {
		t.Errorf("method = %q, want %q", bill.PaymentMethod, core.PaymentMethodNone)
	}

	fetched, _ := orders.GetOrder(ctx, order.ID)
	if fetched.Status != core.StatusDeliveredUnpaid {
		t.Errorf("status = %s, want %s", fetched.Status, core.StatusDeliveredUnpaid)
	}
	if fetched.PaymentStatus != core.PaymentUnpaid {
		t.Errorf("payment status = %s, want %s", fetched.PaymentStatus, core.PaymentUnpaid)
	}
	// The confirmation itself is audited on the order row.
	if fetched.CompletedBy == nil || *fetched.CompletedBy != financeActor.UserID {
		t.Errorf("completed_by = %v, want %d", fetched.CompletedBy, financeActor.UserID)
	}
	if fetched.CompletedAt == nil {
		t.Error("expected completed_at to be stamped")
	}

	// No ledger row is written for a zero-amount confirmation.
	history, _ := payments.ListPayments(ctx, order.ID)
	if len(history) != 0 {
		t.Errorf("payment rows = %d, want 0", len(history))
	}
}

func TestPaymentService_RepricesFromDeliveredWeights(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	orders := newTestOrderService(pool)
	payments := core.NewPaymentService(pool, core.NewPricingEngine())
	order := departedOrder(t, orders)
	ctx := context.Background()

	// The broiler line (weighed goods) delivered at 9.5 kg instead of the
	// ordered 10: subtotal 9.5*100 + 5*200 = 1950, total 2301.00 with VAT.
	weighedItemID := order.Items[0].ID
	bill, err := payments.RecordPayment(ctx, order.ID, financeActor, core.PaymentParams{
		Amount: decimal.RequireFromString("2301"),
		Method: "cash",
		DeliveryWeightsKg: map[int]decimal.Decimal{
			weighedItemID: decimal.RequireFromString("9.5"),
		},
	})
	if err != nil {
		t.Fatalf("payment with weights: %v", err)
	}
	if !bill.TotalAmount.Equal(decimal.RequireFromString("2301")) {
		t.Errorf("repriced total = %s, want 2301", bill.TotalAmount)
	}

	fetched, _ := orders.GetOrder(ctx, order.ID)
	if fetched.Status != core.StatusDelivered {
		t.Errorf("status = %s, want %s", fetched.Status, core.StatusDelivered)
	}
	if !fetched.TotalAmount.Equal(decimal.RequireFromString("2301")) {
		t.Errorf("stored total = %s, want 2301", fetched.TotalAmount)
	}
	if fetched.Items[0].FinalDeliveryWeightKg == nil {
		t.Error("expected staged final delivery weight on the weighed line")
	}
}

func TestPaymentService_RejectsOverpayment(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	orders := newTestOrderService(pool)
	payments := core.NewPaymentService(pool, core.NewPricingEngine())
	order := departedOrder(t, orders)

	_, err := payments.RecordPayment(context.Background(), order.ID, financeActor, core.PaymentParams{
		Amount: decimal.RequireFromString("5000"),
		Method: "cash",
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("overpayment: err = %v, want ErrInvalidAmount", err)
	}
}

func TestPaymentService_GroupPayment(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	orders := newTestOrderService(pool)
	payments := core.NewPaymentService(pool, core.NewPricingEngine())
	ctx := context.Background()

	first := departedOrder(t, orders)
	second := departedOrder(t, orders)
	ids := []int{first.ID, second.ID}

	groupReceipt, err := payments.ConsolidateOrders(ctx, ids, financeActor)
	if err != nil {
		t.Fatalf("ConsolidateOrders: %v", err)
	}
	if groupReceipt == "" {
		t.Fatal("empty group receipt")
	}

	// Equal totals: a half-payment splits evenly and both orders land partial.
	bill, err := payments.RecordGroupPayment(ctx, ids, financeActor, core.GroupPaymentParams{
		Amount: decimal.RequireFromString("2360"),
		Method: "cheque",
	})
	if err != nil {
		t.Fatalf("RecordGroupPayment: %v", err)
	}
	if bill.ReceiptNo != groupReceipt+"-P1" {
		t.Errorf("receipt = %s, want %s-P1", bill.ReceiptNo, groupReceipt)
	}
	// The group bill carries the members' summed VAT: 360 each.
	if !bill.VATAmount.Equal(decimal.RequireFromString("720")) {
		t.Errorf("group VAT = %s, want 720", bill.VATAmount)
	}

	for _, id := range ids {
		o, err := orders.GetOrder(ctx, id)
		if err != nil {
			t.Fatalf("GetOrder(%d): %v", id, err)
		}
		if o.Status != core.StatusDeliveredPartial {
			t.Errorf("order %d status = %s, want %s", id, o.Status, core.StatusDeliveredPartial)
		}
		if !o.CollectedAmount.Equal(decimal.RequireFromString("1180")) {
			t.Errorf("order %d collected = %s, want 1180", id, o.CollectedAmount)
		}
	}

	// Settling the rest lands both on Delivered with the next group sequence.
	bill, err = payments.RecordGroupPayment(ctx, ids, financeActor, core.GroupPaymentParams{
		Amount: decimal.RequireFromString("2360"),
		Method: "cheque",
	})
	if err != nil {
		t.Fatalf("second group payment: %v", err)
	}
	if bill.ReceiptNo != groupReceipt+"-P2" {
		t.Errorf("receipt = %s, want %s-P2", bill.ReceiptNo, groupReceipt)
	}
	for _, id := range ids {
		o, _ := orders.GetOrder(ctx, id)
		if o.Status != core.StatusDelivered {
			t.Errorf("order %d status = %s, want %s", id, o.Status, core.StatusDelivered)
		}
	}
}

func TestPaymentService_ConsolidateRejectsMixedCustomers(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	orders := newTestOrderService(pool)
	payments := core.NewPaymentService(pool, core.NewPricingEngine())
	ctx := context.Background()

	first := departedOrder(t, orders)

	second, err := orders.CreateOrder(ctx, "CUST2", 1, "2026-09-01", "KA-01-9999", true, []core.OrderLineInput{
		{ProductCode: "BT-WHOLE", Quantity: decimal.RequireFromString("3")},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := orders.Transition(ctx, second.ID, adminActor, core.StatusDepartedFarm, core.TransitionOptions{}); err != nil {
		t.Fatalf("depart second: %v", err)
	}

	_, err = payments.ConsolidateOrders(ctx, []int{first.ID, second.ID}, financeActor)
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("mixed customers: err = %v, want ErrValidation", err)
	}

	_, err = payments.ConsolidateOrders(ctx, []int{first.ID}, financeActor)
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("single-order group: err = %v, want ErrValidation", err)
	}
}

func TestPaymentService_Summary(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	orders := newTestOrderService(pool)
	payments := core.NewPaymentService(pool, core.NewPricingEngine())
	order := departedOrder(t, orders)
	ctx := context.Background()

	if _, err := payments.RecordPayment(ctx, order.ID, financeActor, core.PaymentParams{
		Amount: decimal.RequireFromString("500"),
		Method: "cash",
	}); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if _, err := payments.RecordPayment(ctx, order.ID, financeActor, core.PaymentParams{
		Amount: decimal.RequireFromString("200"),
		Method: "upi",
	}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	rows, err := payments.PaymentSummary(ctx, "2000-01-01", "2100-01-01")
	if err != nil {
		t.Fatalf("PaymentSummary: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("summary rows = %d, want 2 (one per method)", len(rows))
	}

	var total decimal.Decimal
	for _, row := range rows {
		total = total.Add(row.Total)
	}
	if !total.Equal(decimal.RequireFromString("700")) {
		t.Errorf("summary total = %s, want 700", total)
	}
}
