package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Actor identifies who is performing an operation, as resolved by the
// identity collaborator.
type Actor struct {
	UserID int
	Role   Role
}

// TransitionOptions carries the side-effect inputs certain targets require.
type TransitionOptions struct {
	AssignTo          *int     // target Assigned: user to assign
	BypassNote        string   // target Security Check Bypassed: free-text note
	BypassReason      string   // target Security Check Bypassed: reason
	IncompleteReasons []string // target Security Check Incomplete: predefined reasons
	IncompleteNote    string   // target Security Check Incomplete: free-text note
	ExpectedVersion   *int     // optimistic guard: fail if the row moved since this read
}

// OrderService manages order intake and the lifecycle state machine.
// Payment-driven transitions (the Delivered* statuses) go through
// PaymentService instead.
type OrderService interface {
	// Master data
	CreateCustomer(ctx context.Context, code, name, email, phone, address string) (*Customer, error)
	GetCustomers(ctx context.Context) ([]Customer, error)
	CreateProduct(ctx context.Context, code, name, categoryCode string, unitType UnitType, price decimal.Decimal, weightPerPackKg, gramsPerUnit *decimal.Decimal) (*Product, error)
	GetProducts(ctx context.Context) ([]Product, error)

	// Intake and queries
	CreateOrder(ctx context.Context, customerCode string, orderedBy int, deliveryDate, vehicleNumber string, vatApplicable bool, lines []OrderLineInput) (*Order, error)
	GetOrder(ctx context.Context, orderID int) (*Order, error)
	GetOrderByDisplayID(ctx context.Context, displayID string) (*Order, error)
	GetOrders(ctx context.Context, status *OrderStatus) ([]Order, error)
	GetOrdersForUser(ctx context.Context, userID int) ([]Order, error)

	// Lifecycle
	Transition(ctx context.Context, orderID int, actor Actor, target OrderStatus, opts TransitionOptions) (*Order, error)
	ApplySecurityCheck(ctx context.Context, orderID int, actor Actor, actualTotal decimal.Decimal) (*Order, error)
}

type orderService struct {
	pool    *pgxpool.Pool
	pricing *PricingEngine
	now     func() time.Time
	loc     *time.Location
}

// NewOrderService builds the order service. loc is the farm-local timezone
// used for the off-hours bypass window; nil means time.Local.
func NewOrderService(pool *pgxpool.Pool, pricing *PricingEngine, loc *time.Location) OrderService {
	if loc == nil {
		loc = time.Local
	}
	return &orderService{pool: pool, pricing: pricing, now: time.Now, loc: loc}
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared
// query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ── Master Data ──────────────────────────────────────────────────────────────

func (s *orderService) CreateCustomer(ctx context.Context, code, name, email, phone, address string) (*Customer, error) {
	var c Customer
	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (code, name, email, phone, address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, code, name, email, phone, address
	`, code, name, email, phone, address).Scan(&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return &c, nil
}

func (s *orderService) GetCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, name, email, phone, address
		FROM customers
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.Address); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, nil
}

func (s *orderService) CreateProduct(ctx context.Context, code, name, categoryCode string, unitType UnitType, price decimal.Decimal, weightPerPackKg, gramsPerUnit *decimal.Decimal) (*Product, error) {
	if unitType == UnitPacks && weightPerPackKg == nil {
		return nil, fmt.Errorf("%w: weight_per_pack_kg is required for Packs products", ErrValidation)
	}
	if unitType == UnitGram && gramsPerUnit == nil {
		return nil, fmt.Errorf("%w: grams_per_unit is required for gram-unit products", ErrValidation)
	}

	var categoryID int
	err := s.pool.QueryRow(ctx, "SELECT id FROM categories WHERE code = $1", categoryCode).Scan(&categoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: category code %s", ErrNotFound, categoryCode)
		}
		return nil, fmt.Errorf("failed to resolve category %s: %w", categoryCode, err)
	}

	var p Product
	err = s.pool.QueryRow(ctx, `
		INSERT INTO products (code, name, category_id, unit_type, price, weight_per_pack_kg, grams_per_unit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, code, name, category_id, unit_type, price, weight_per_pack_kg, grams_per_unit, quantity_on_hand, is_active
	`, code, name, categoryID, unitType, price, weightPerPackKg, gramsPerUnit).Scan(
		&p.ID, &p.Code, &p.Name, &p.CategoryID, &p.UnitType, &p.Price,
		&p.WeightPerPackKg, &p.GramsPerUnit, &p.QuantityOnHand, &p.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &p, nil
}

func (s *orderService) GetProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.code, p.name, p.category_id, c.code, c.name,
		       p.unit_type, p.price, p.weight_per_pack_kg, p.grams_per_unit, p.quantity_on_hand, p.is_active
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.is_active = true
		ORDER BY p.code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.CategoryID, &p.CategoryCode, &p.CategoryName,
			&p.UnitType, &p.Price, &p.WeightPerPackKg, &p.GramsPerUnit, &p.QuantityOnHand, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, nil
}

// ── Intake ───────────────────────────────────────────────────────────────────

func (s *orderService) CreateOrder(ctx context.Context, customerCode string, orderedBy int, deliveryDate, vehicleNumber string, vatApplicable bool, lines []OrderLineInput) (*Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: order must have at least one line", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var customerID int
	err = tx.QueryRow(ctx, "SELECT id FROM customers WHERE code = $1", customerCode).Scan(&customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer code %s", ErrNotFound, customerCode)
		}
		return nil, fmt.Errorf("failed to resolve customer: %w", err)
	}

	// Resolve products and build priced items for the initial total.
	items := make([]OrderItem, 0, len(lines))
	for i, input := range lines {
		if input.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: line %d: quantity must be positive", ErrValidation, i+1)
		}
		if input.Discount != nil && (input.Discount.IsNegative() || input.Discount.GreaterThan(decimal.NewFromInt(100))) {
			return nil, fmt.Errorf("%w: line %d: discount must be between 0 and 100", ErrValidation, i+1)
		}

		var item OrderItem
		err = tx.QueryRow(ctx, `
			SELECT p.id, p.name, c.code, c.name, p.unit_type, p.weight_per_pack_kg, p.grams_per_unit, p.price
			FROM products p
			JOIN categories c ON c.id = p.category_id
			WHERE p.code = $1 AND p.is_active = true
		`, input.ProductCode).Scan(
			&item.ProductID, &item.ProductName, &item.CategoryCode, &item.CategoryName,
			&item.UnitType, &item.WeightPerPackKg, &item.GramsPerUnit, &item.Price,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: line %d: product code %s", ErrNotFound, i+1, input.ProductCode)
			}
			return nil, fmt.Errorf("line %d: failed to resolve product: %w", i+1, err)
		}

		item.Quantity = input.Quantity
		item.Discount = input.Discount
		if !input.Price.IsZero() {
			item.Price = input.Price
		}
		items = append(items, item)
	}

	total, vatAmount := s.pricing.OrderTotal(items, nil, vatApplicable)

	var orderID int
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (customer_id, ordered_by, status, security_check_status, vehicle_number,
		                    delivery_date, total_amount, vat_amount, is_vat_applicable,
		                    collected_amount, payment_status, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, 1)
		RETURNING id
	`, customerID, orderedBy, StatusPending, SecurityCheckNone, vehicleNumber,
		deliveryDate, total, vatAmount, vatApplicable, PaymentUnpaid).Scan(&orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	// Display id derives from the row id so it is unique without a second sequence.
	displayID := fmt.Sprintf("FG-%06d", orderID)
	if _, err = tx.Exec(ctx, "UPDATE orders SET display_id = $1 WHERE id = $2", displayID, orderID); err != nil {
		return nil, fmt.Errorf("failed to set display id: %w", err)
	}

	for _, item := range items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price, discount, returned_quantity)
			VALUES ($1, $2, $3, $4, $5, 0)
		`, orderID, item.ProductID, item.Quantity, item.Price, item.Discount)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order creation: %w", err)
	}

	return s.GetOrder(ctx, orderID)
}

// ── Queries ──────────────────────────────────────────────────────────────────

const orderSelect = `
	SELECT o.id, COALESCE(o.display_id, ''), o.customer_id, c.name, c.email,
	       o.ordered_by, o.assigned_to, o.completed_by,
	       o.status, o.security_check_status, o.security_check_notes,
	       COALESCE(o.vehicle_number, ''), o.delivery_date::text,
	       o.total_amount, o.vat_amount, o.is_vat_applicable,
	       o.collected_amount, o.payment_status, COALESCE(o.payment_method, ''), COALESCE(o.receipt_no, ''),
	       o.version, o.created_at, o.completed_at
	FROM orders o
	JOIN customers c ON c.id = o.customer_id
`

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(
		&o.ID, &o.DisplayID, &o.CustomerID, &o.CustomerName, &o.CustomerEmail,
		&o.OrderedBy, &o.AssignedTo, &o.CompletedBy,
		&o.Status, &o.SecurityCheckStatus, &o.SecurityCheckNotes,
		&o.VehicleNumber, &o.DeliveryDate,
		&o.TotalAmount, &o.VATAmount, &o.IsVATApplicable,
		&o.CollectedAmount, &o.PaymentStatus, &o.PaymentMethod, &o.ReceiptNo,
		&o.Version, &o.CreatedAt, &o.CompletedAt,
	)
}

func (s *orderService) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	return fetchOrderQ(ctx, s.pool, orderID, false)
}

func (s *orderService) GetOrderByDisplayID(ctx context.Context, displayID string) (*Order, error) {
	var orderID int
	err := s.pool.QueryRow(ctx, "SELECT id FROM orders WHERE display_id = $1", displayID).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, displayID)
		}
		return nil, fmt.Errorf("failed to lookup order by display id: %w", err)
	}
	return s.GetOrder(ctx, orderID)
}

func (s *orderService) GetOrders(ctx context.Context, status *OrderStatus) ([]Order, error) {
	query := orderSelect
	var args []any
	if status != nil {
		query += " WHERE o.status = $1"
		args = append(args, *status)
	}
	query += " ORDER BY o.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// GetOrdersForUser lists the orders a user placed or is assigned to deliver.
func (s *orderService) GetOrdersForUser(ctx context.Context, userID int) ([]Order, error) {
	rows, err := s.pool.Query(ctx, orderSelect+" WHERE o.ordered_by = $1 OR o.assigned_to = $1 ORDER BY o.id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders for user %d: %w", userID, err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

func (s *orderService) Transition(ctx context.Context, orderID int, actor Actor, target OrderStatus, opts TransitionOptions) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if opts.ExpectedVersion != nil && *opts.ExpectedVersion != order.Version {
		return nil, fmt.Errorf("%w: order %d changed since it was read", ErrConcurrentModification, orderID)
	}

	if !CanTransition(order, actor.Role, target) {
		return nil, fmt.Errorf("%w: role %q cannot move order %s from %q to %q",
			ErrInvalidTransition, actor.Role, order.DisplayID, order.Status, target)
	}
	if target == order.Status {
		return order, nil
	}

	switch target {
	case StatusAssigned:
		if opts.AssignTo == nil {
			return nil, fmt.Errorf("%w: assignment requires a target user", ErrValidation)
		}
		err = execOrderUpdate(ctx, tx, order,
			"UPDATE orders SET status = $1, assigned_to = $2, version = version + 1 WHERE id = $3 AND version = $4",
			target, *opts.AssignTo, order.ID, order.Version)

	case StatusSecurityIncomplete:
		if len(opts.IncompleteReasons) == 0 && strings.TrimSpace(opts.IncompleteNote) == "" {
			return nil, fmt.Errorf("%w: an incomplete security check requires at least one reason or a note", ErrValidation)
		}
		notes, mErr := json.Marshal(SecurityNotes{Reasons: opts.IncompleteReasons, CustomNote: opts.IncompleteNote})
		if mErr != nil {
			return nil, fmt.Errorf("failed to encode security notes: %w", mErr)
		}
		err = execOrderUpdate(ctx, tx, order,
			"UPDATE orders SET status = $1, security_check_status = $2, security_check_notes = $3, version = version + 1 WHERE id = $4 AND version = $5",
			target, SecurityCheckIncomplete, string(notes), order.ID, order.Version)

	case StatusSecurityBypassed:
		now := s.now().In(s.loc)
		if InWorkingHours(now) {
			return nil, fmt.Errorf("%w: off-hours bypass is only permitted outside 06:00-18:00 (farm local time is %s)",
				ErrValidation, now.Format("15:04"))
		}
		notes, mErr := json.Marshal(SecurityNotes{
			Bypassed:   true,
			Reason:     opts.BypassReason,
			Timestamp:  now,
			BypassedBy: actor.UserID,
			Note:       opts.BypassNote,
		})
		if mErr != nil {
			return nil, fmt.Errorf("failed to encode bypass record: %w", mErr)
		}
		err = execOrderUpdate(ctx, tx, order,
			"UPDATE orders SET status = $1, security_check_status = $2, security_check_notes = $3, version = version + 1 WHERE id = $4 AND version = $5",
			target, SecurityCheckBypassed, string(notes), order.ID, order.Version)

	case StatusSecurityChecked:
		items, iErr := fetchOrderItemsQ(ctx, tx, orderID)
		if iErr != nil {
			return nil, iErr
		}
		for _, item := range items {
			if item.ActualQuantity == nil {
				return nil, fmt.Errorf("%w: item %d has no reconciled quantity; run the security-check reconciliation first", ErrValidation, item.ID)
			}
		}
		err = execOrderUpdate(ctx, tx, order,
			"UPDATE orders SET status = $1, security_check_status = $2, security_check_notes = NULL, version = version + 1 WHERE id = $3 AND version = $4",
			target, SecurityCheckCompleted, order.ID, order.Version)

	case StatusCompleted:
		err = execOrderUpdate(ctx, tx, order,
			"UPDATE orders SET status = $1, completed_by = $2, completed_at = NOW(), version = version + 1 WHERE id = $3 AND version = $4",
			target, actor.UserID, order.ID, order.Version)

	case StatusDelivered, StatusDeliveredPartial, StatusDeliveredUnpaid:
		// Delivery statuses are landed by the payment ledger: the payment
		// outcome, not the requested target, decides where the order ends up.
		return nil, fmt.Errorf("%w: delivered statuses require a recorded payment transaction", ErrValidation)

	default:
		err = execOrderUpdate(ctx, tx, order,
			"UPDATE orders SET status = $1, version = version + 1 WHERE id = $2 AND version = $3",
			target, order.ID, order.Version)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}
	return s.GetOrder(ctx, orderID)
}

func (s *orderService) ApplySecurityCheck(ctx context.Context, orderID int, actor Actor, actualTotal decimal.Decimal) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order, actor.Role, StatusSecurityChecked) {
		return nil, fmt.Errorf("%w: role %q cannot complete the security check from %q",
			ErrInvalidTransition, actor.Role, order.Status)
	}

	items, err := fetchOrderItemsQ(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	actuals, err := Reconcile(items, actualTotal)
	if err != nil {
		return nil, err
	}

	for _, a := range actuals {
		if _, err := tx.Exec(ctx,
			"UPDATE order_items SET actual_quantity_after_security_check = $1 WHERE id = $2",
			a.Actual, a.ItemID); err != nil {
			return nil, fmt.Errorf("failed to write reconciled quantity for item %d: %w", a.ItemID, err)
		}
	}

	err = execOrderUpdate(ctx, tx, order,
		"UPDATE orders SET status = $1, security_check_status = $2, security_check_notes = NULL, version = version + 1 WHERE id = $3 AND version = $4",
		StatusSecurityChecked, SecurityCheckCompleted, order.ID, order.Version)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit security check: %w", err)
	}
	return s.GetOrder(ctx, orderID)
}

// ── Shared tx helpers ────────────────────────────────────────────────────────

// lockOrder reads an order header FOR UPDATE inside tx, serializing
// concurrent mutations of the same order.
func lockOrder(ctx context.Context, tx pgx.Tx, orderID int) (*Order, error) {
	var o Order
	err := scanOrder(tx.QueryRow(ctx, orderSelect+" WHERE o.id = $1 FOR UPDATE OF o", orderID), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}
	return &o, nil
}

// execOrderUpdate runs an order UPDATE that carries a version guard; zero
// rows affected means the row moved underneath us.
func execOrderUpdate(ctx context.Context, tx pgx.Tx, order *Order, sql string, args ...any) error {
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update order %d: %w", order.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %d version %d is stale", ErrConcurrentModification, order.ID, order.Version)
	}
	return nil
}

func fetchOrderItemsQ(ctx context.Context, q pgxQuerier, orderID int) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, c.code, c.name,
		       p.unit_type, p.weight_per_pack_kg, p.grams_per_unit,
		       oi.quantity, oi.price, oi.discount, oi.returned_quantity,
		       oi.actual_quantity_after_security_check, oi.final_delivery_weight_kg
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.CategoryCode, &item.CategoryName,
			&item.UnitType, &item.WeightPerPackKg, &item.GramsPerUnit,
			&item.Quantity, &item.Price, &item.Discount, &item.ReturnedQuantity,
			&item.ActualQuantity, &item.FinalDeliveryWeightKg,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

func fetchOrderQ(ctx context.Context, q pgxQuerier, orderID int, forUpdate bool) (*Order, error) {
	query := orderSelect + " WHERE o.id = $1"
	if forUpdate {
		query += " FOR UPDATE OF o"
	}
	var o Order
	if err := scanOrder(q.QueryRow(ctx, query, orderID), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}
	items, err := fetchOrderItemsQ(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}
