package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"farmgate/internal/core"
)

func TestReturnService_ProcessReturn(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	orders := newTestOrderService(pool)
	returns := core.NewReturnService(pool)
	order := createTestOrder(t, orders)
	ctx := context.Background()

	item := order.Items[0] // 10 kg of BT-WHOLE

	ret, err := returns.ProcessReturn(ctx, item.ID, decimal.RequireFromString("3"), "damaged in transit", adminActor)
	if err != nil {
		t.Fatalf("ProcessReturn: %v", err)
	}
	if !ret.Quantity.Equal(decimal.RequireFromString("3")) {
		t.Errorf("return quantity = %s, want 3", ret.Quantity)
	}
	if ret.ReturnedBy != adminActor.UserID {
		t.Errorf("returned_by = %d, want %d", ret.ReturnedBy, adminActor.UserID)
	}

	// The item's returned quantity and the product stock both moved.
	fetched, err := orders.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if !fetched.Items[0].ReturnedQuantity.Equal(decimal.RequireFromString("3")) {
		t.Errorf("item returned quantity = %s, want 3", fetched.Items[0].ReturnedQuantity)
	}

	var onHand decimal.Decimal
	if err := pool.QueryRow(ctx, "SELECT quantity_on_hand FROM products WHERE code = 'BT-WHOLE'").Scan(&onHand); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if !onHand.Equal(decimal.RequireFromString("1003")) {
		t.Errorf("quantity_on_hand = %s, want 1003", onHand)
	}

	listed, err := returns.ListReturns(ctx, order.ID)
	if err != nil {
		t.Fatalf("ListReturns: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("returns listed = %d, want 1", len(listed))
	}
}

func TestReturnService_Rejections(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	orders := newTestOrderService(pool)
	returns := core.NewReturnService(pool)
	order := createTestOrder(t, orders)
	ctx := context.Background()

	item := order.Items[0]

	if _, err := returns.ProcessReturn(ctx, item.ID, decimal.Zero, "reason", adminActor); !errors.Is(err, core.ErrValidation) {
		t.Errorf("zero quantity: err = %v, want ErrValidation", err)
	}
	if _, err := returns.ProcessReturn(ctx, item.ID, decimal.RequireFromString("1"), "  ", adminActor); !errors.Is(err, core.ErrValidation) {
		t.Errorf("blank reason: err = %v, want ErrValidation", err)
	}
	// More than ordered.
	if _, err := returns.ProcessReturn(ctx, item.ID, decimal.RequireFromString("11"), "too much", adminActor); !errors.Is(err, core.ErrValidation) {
		t.Errorf("over-return: err = %v, want ErrValidation", err)
	}

	// Cumulative returns cannot exceed the ordered quantity either.
	if _, err := returns.ProcessReturn(ctx, item.ID, decimal.RequireFromString("8"), "first batch", adminActor); err != nil {
		t.Fatalf("first return: %v", err)
	}
	if _, err := returns.ProcessReturn(ctx, item.ID, decimal.RequireFromString("3"), "second batch", adminActor); !errors.Is(err, core.ErrValidation) {
		t.Errorf("cumulative over-return: err = %v, want ErrValidation", err)
	}
}
