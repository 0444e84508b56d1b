package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PaymentParams carries one collection event against a single order.
type PaymentParams struct {
	Amount        decimal.Decimal
	Method        string
	ChequeNumber  *string
	ChequeDate    *string
	// DeliveryWeightsKg stages final delivered weights (item ID -> kg) for
	// weighed goods. Repricing happens here, at payment time — weight entry
	// elsewhere only stages values.
	DeliveryWeightsKg map[int]decimal.Decimal
	// RequestedTarget is the caller's intended landing status; empty means
	// Delivered. The payment outcome decides the actual landing status.
	RequestedTarget OrderStatus
	ExpectedVersion *int
	// IdempotencyKey guards against double-submits; generated when empty.
	IdempotencyKey string
}

// GroupPaymentParams carries one collection event against a consolidated
// order group.
type GroupPaymentParams struct {
	Amount       decimal.Decimal
	Method       string
	ChequeNumber *string
	ChequeDate   *string
}

// PaymentSummaryRow is one aggregate bucket of collected amounts.
type PaymentSummaryRow struct {
	Date   string          `json:"date"` // YYYY-MM-DD
	Method string          `json:"method"`
	Total  decimal.Decimal `json:"total"`
}

// PaymentService is the payment ledger: it records collections, derives
// payment status, lands delivery statuses, and issues receipt identifiers.
type PaymentService interface {
	RecordPayment(ctx context.Context, orderID int, actor Actor, p PaymentParams) (*BillData, error)
	ConsolidateOrders(ctx context.Context, orderIDs []int, actor Actor) (string, error)
	RecordGroupPayment(ctx context.Context, orderIDs []int, actor Actor, p GroupPaymentParams) (*BillData, error)
	ListPayments(ctx context.Context, orderID int) ([]OrderPayment, error)
	PaymentSummary(ctx context.Context, from, to string) ([]PaymentSummaryRow, error)
}

type paymentService struct {
	pool    *pgxpool.Pool
	pricing *PricingEngine
	now     func() time.Time
}

func NewPaymentService(pool *pgxpool.Pool, pricing *PricingEngine) PaymentService {
	return &paymentService{pool: pool, pricing: pricing, now: time.Now}
}

func (s *paymentService) RecordPayment(ctx context.Context, orderID int, actor Actor, p PaymentParams) (*BillData, error) {
	target := p.RequestedTarget
	if target == "" {
		target = StatusDelivered
	}
	switch target {
	case StatusDelivered, StatusDeliveredPartial, StatusDeliveredUnpaid:
	default:
		return nil, fmt.Errorf("%w: %q is not a payment-driven status", ErrValidation, target)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if p.ExpectedVersion != nil && *p.ExpectedVersion != order.Version {
		return nil, fmt.Errorf("%w: order %d changed since it was read", ErrConcurrentModification, orderID)
	}
	if !CanTransition(order, actor.Role, target) {
		return nil, fmt.Errorf("%w: role %q cannot move order %s from %q to %q",
			ErrInvalidTransition, actor.Role, order.DisplayID, order.Status, target)
	}

	items, err := fetchOrderItemsQ(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	total, vatAmount := order.TotalAmount, order.VATAmount
	if len(p.DeliveryWeightsKg) > 0 {
		total, vatAmount, items, err = s.repriceTx(ctx, tx, order, items, p.DeliveryWeightsKg)
		if err != nil {
			return nil, err
		}
	}

	if err := ValidatePaymentAmount(p.Amount, order.CollectedAmount, total); err != nil {
		return nil, err
	}

	newCollected := order.CollectedAmount.Add(p.Amount)
	landing := DeriveLandingStatus(p.Amount, newCollected, total)
	paymentStatus := DerivePaymentStatus(newCollected, total)

	method := p.Method
	if p.Amount.IsZero() {
		// A zero-amount event only confirms delivery; no money changed hands.
		method = PaymentMethodNone
	}

	receiptNo := ""
	if p.Amount.IsPositive() {
		receiptNo, err = s.nextReceiptTx(ctx, tx, order.ID, order.DisplayID)
		if err != nil {
			return nil, err
		}
		if err := s.insertPaymentTx(ctx, tx, order.ID, p.Amount, method, receiptNo, actor.UserID, p.ChequeNumber, p.ChequeDate, p.IdempotencyKey); err != nil {
			return nil, err
		}
	}

	// A settled order is complete; so is a zero-amount confirmation, which
	// closes delivery without a ledger row. Both stamp who finished it.
	completes := landing == StatusDelivered || p.Amount.IsZero()
	if err := execOrderUpdate(ctx, tx, order, `
		UPDATE orders
		SET status = $1, payment_status = $2, collected_amount = $3, payment_method = $4,
		    total_amount = $5, vat_amount = $6, receipt_no = COALESCE(NULLIF($7, ''), receipt_no),
		    completed_by = CASE WHEN $8 THEN $9 ELSE completed_by END,
		    completed_at = CASE WHEN $8 THEN NOW() ELSE completed_at END,
		    version = version + 1
		WHERE id = $10 AND version = $11`,
		landing, paymentStatus, newCollected, method, total, vatAmount, receiptNo,
		completes, actor.UserID, order.ID, order.Version); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	return &BillData{
		OrderDisplayID:      order.DisplayID,
		ReceiptNo:           receiptNo,
		CustomerName:        order.CustomerName,
		TransactionAmount:   p.Amount,
		PreviouslyCollected: order.CollectedAmount,
		RemainingBalance:    total.Sub(newCollected),
		TotalAmount:         total,
		VATAmount:           vatAmount,
		PaymentStatusText:   string(landing),
		PaymentMethod:       method,
		Items:               items,
	}, nil
}

// repriceTx stages final delivery weights onto weighed-goods items and
// recomputes the order totals from the full set of staged weights.
func (s *paymentService) repriceTx(ctx context.Context, tx pgx.Tx, order *Order, items []OrderItem, weights map[int]decimal.Decimal) (total, vatAmount decimal.Decimal, updated []OrderItem, err error) {
	overrides := make(map[int]decimal.Decimal)
	for i := range items {
		item := &items[i]
		if w, ok := weights[item.ID]; ok {
			if !s.pricing.IsWeighedGoods(item.CategoryCode, item.CategoryName) {
				return decimal.Zero, decimal.Zero, nil, fmt.Errorf("%w: item %d (%s) is not weighed goods", ErrValidation, item.ID, item.ProductName)
			}
			if w.IsNegative() {
				return decimal.Zero, decimal.Zero, nil, fmt.Errorf("%w: delivery weight for item %d is negative", ErrValidation, item.ID)
			}
			if w.IsPositive() {
				item.FinalDeliveryWeightKg = &w
				if _, err := tx.Exec(ctx,
					"UPDATE order_items SET final_delivery_weight_kg = $1 WHERE id = $2",
					w, item.ID); err != nil {
					return decimal.Zero, decimal.Zero, nil, fmt.Errorf("failed to stage delivery weight for item %d: %w", item.ID, err)
				}
			}
		}
		// Previously staged weights participate in the reprice too.
		if item.FinalDeliveryWeightKg != nil && item.FinalDeliveryWeightKg.IsPositive() {
			overrides[item.ID] = *item.FinalDeliveryWeightKg
		}
	}

	total, vatAmount = s.pricing.OrderTotal(items, overrides, order.IsVATApplicable)
	return total, vatAmount, items, nil
}

// nextReceiptTx issues the next sequential receipt id for an order:
// "{displayID}-P{count+1}". Runs under the order's FOR UPDATE lock, so
// concurrent payments against the same order serialize before counting.
func (s *paymentService) nextReceiptTx(ctx context.Context, tx pgx.Tx, orderID int, displayID string) (string, error) {
	var count int
	if err := tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM order_payments WHERE order_id = $1", orderID).Scan(&count); err != nil {
		return "", fmt.Errorf("failed to count prior payments: %w", err)
	}
	return fmt.Sprintf("%s-P%d", displayID, count+1), nil
}

func (s *paymentService) insertPaymentTx(ctx context.Context, tx pgx.Tx, orderID int, amount decimal.Decimal, method, receiptNo string, collectedBy int, chequeNumber, chequeDate *string, idempotencyKey string) error {
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO order_payments (order_id, amount, payment_method, receipt_no, collected_by,
		                            cheque_number, cheque_date, idempotency_key, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`, orderID, amount, method, receiptNo, collectedBy, chequeNumber, chequeDate, idempotencyKey)
	if err != nil {
		return fmt.Errorf("failed to insert payment record: %w", err)
	}
	return nil
}

// ── Consolidated groups ──────────────────────────────────────────────────────

// ConsolidateOrders stamps a shared receipt number onto a set of orders for
// the same customer, turning them into one payable unit.
func (s *paymentService) ConsolidateOrders(ctx context.Context, orderIDs []int, actor Actor) (string, error) {
	if len(orderIDs) < 2 {
		return "", fmt.Errorf("%w: a consolidated group needs at least two orders", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	members, err := s.lockMembersTx(ctx, tx, orderIDs)
	if err != nil {
		return "", err
	}

	customerID := members[0].CustomerID
	for _, m := range members {
		if m.CustomerID != customerID {
			return "", fmt.Errorf("%w: consolidated orders must belong to one customer", ErrValidation)
		}
		if m.ReceiptNo != "" {
			return "", fmt.Errorf("%w: order %s already belongs to receipt group %s", ErrValidation, m.DisplayID, m.ReceiptNo)
		}
		switch m.Status {
		case StatusDepartedFarm, StatusDeliveredUnpaid, StatusDeliveredPartial:
		default:
			return "", fmt.Errorf("%w: order %s in status %q cannot join a payment group", ErrValidation, m.DisplayID, m.Status)
		}
	}

	groupReceipt := "CG-" + strings.ToUpper(uuid.NewString()[:8])
	for _, m := range members {
		if err := execOrderUpdate(ctx, tx, m,
			"UPDATE orders SET receipt_no = $1, version = version + 1 WHERE id = $2 AND version = $3",
			groupReceipt, m.ID, m.Version); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit consolidation: %w", err)
	}
	return groupReceipt, nil
}

// RecordGroupPayment distributes one collected amount across the group's
// member rows in proportion to each row's total, corrects any rounding
// residual into the last row, and inserts a single group-level payment
// record carrying one receipt id for the whole transaction.
func (s *paymentService) RecordGroupPayment(ctx context.Context, orderIDs []int, actor Actor, p GroupPaymentParams) (*BillData, error) {
	if len(orderIDs) == 0 {
		return nil, fmt.Errorf("%w: group has no rows", ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: group payment amount must be positive", ErrInvalidAmount)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	members, err := s.lockMembersTx(ctx, tx, orderIDs)
	if err != nil {
		return nil, err
	}

	groupReceipt := members[0].ReceiptNo
	var groupTotal, groupVAT, groupCollected decimal.Decimal
	rowTotals := make([]decimal.Decimal, len(members))
	for i, m := range members {
		if m.ReceiptNo == "" || m.ReceiptNo != groupReceipt {
			return nil, fmt.Errorf("%w: orders do not share one receipt group; consolidate them first", ErrValidation)
		}
		if !CanTransition(m, actor.Role, StatusDelivered) {
			return nil, fmt.Errorf("%w: role %q cannot record payment on order %s in status %q",
				ErrInvalidTransition, actor.Role, m.DisplayID, m.Status)
		}
		rowTotals[i] = m.TotalAmount
		groupTotal = groupTotal.Add(m.TotalAmount)
		groupVAT = groupVAT.Add(m.VATAmount)
		groupCollected = groupCollected.Add(m.CollectedAmount)
	}

	if err := ValidatePaymentAmount(p.Amount, groupCollected, groupTotal); err != nil {
		return nil, err
	}

	deltas, err := DistributeGroupPayment(rowTotals, p.Amount)
	if err != nil {
		return nil, err
	}

	displayIDs := make([]string, len(members))
	for i, m := range members {
		displayIDs[i] = m.DisplayID
		newCollected := m.CollectedAmount.Add(deltas[i])
		landing := DeriveLandingStatus(deltas[i], newCollected, m.TotalAmount)
		if err := execOrderUpdate(ctx, tx, m, `
			UPDATE orders
			SET status = $1, payment_status = $2, collected_amount = $3, payment_method = $4, version = version + 1
			WHERE id = $5 AND version = $6`,
			landing, DerivePaymentStatus(newCollected, m.TotalAmount), newCollected, p.Method, m.ID, m.Version); err != nil {
			return nil, err
		}
	}

	// One receipt id per group transaction, sequenced within the group.
	var priorGroupPayments int
	if err := tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM order_payments WHERE receipt_no LIKE $1 || '-P%'", groupReceipt).Scan(&priorGroupPayments); err != nil {
		return nil, fmt.Errorf("failed to count group payments: %w", err)
	}
	receiptNo := fmt.Sprintf("%s-P%d", groupReceipt, priorGroupPayments+1)

	if err := s.insertPaymentTx(ctx, tx, members[0].ID, p.Amount, p.Method, receiptNo, actor.UserID, p.ChequeNumber, p.ChequeDate, ""); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit group payment: %w", err)
	}

	newGroupCollected := groupCollected.Add(p.Amount)
	return &BillData{
		OrderDisplayID:      strings.Join(displayIDs, "+"),
		ReceiptNo:           receiptNo,
		CustomerName:        members[0].CustomerName,
		TransactionAmount:   p.Amount,
		PreviouslyCollected: groupCollected,
		RemainingBalance:    groupTotal.Sub(newGroupCollected),
		TotalAmount:         groupTotal,
		VATAmount:           groupVAT,
		PaymentStatusText:   string(DerivePaymentStatus(newGroupCollected, groupTotal)),
		PaymentMethod:       p.Method,
	}, nil
}

// lockMembersTx locks group member rows in ascending id order so concurrent
// group payments acquire locks in a consistent order.
func (s *paymentService) lockMembersTx(ctx context.Context, tx pgx.Tx, orderIDs []int) ([]*Order, error) {
	rows, err := tx.Query(ctx, orderSelect+" WHERE o.id = ANY($1) ORDER BY o.id FOR UPDATE OF o", orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to lock group members: %w", err)
	}
	defer rows.Close()

	var members []*Order
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, &o)
	}
	if len(members) != len(orderIDs) {
		return nil, fmt.Errorf("%w: one or more group orders", ErrNotFound)
	}
	return members, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *paymentService) ListPayments(ctx context.Context, orderID int) ([]OrderPayment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, amount, payment_method, receipt_no, collected_by,
		       cheque_number, cheque_date, COALESCE(idempotency_key, ''), payment_date
		FROM order_payments
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []OrderPayment
	for rows.Next() {
		var pay OrderPayment
		if err := rows.Scan(&pay.ID, &pay.OrderID, &pay.Amount, &pay.PaymentMethod, &pay.ReceiptNo,
			&pay.CollectedBy, &pay.ChequeNumber, &pay.ChequeDate, &pay.IdempotencyKey, &pay.PaymentDate); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, pay)
	}
	return payments, nil
}

func (s *paymentService) PaymentSummary(ctx context.Context, from, to string) ([]PaymentSummaryRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payment_date::date::text, payment_method, SUM(amount)
		FROM order_payments
		WHERE payment_date::date >= $1 AND payment_date::date <= $2
		GROUP BY payment_date::date, payment_method
		ORDER BY payment_date::date, payment_method
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment summary: %w", err)
	}
	defer rows.Close()

	var summary []PaymentSummaryRow
	for rows.Next() {
		var row PaymentSummaryRow
		if err := rows.Scan(&row.Date, &row.Method, &row.Total); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summary = append(summary, row)
	}
	return summary, nil
}
