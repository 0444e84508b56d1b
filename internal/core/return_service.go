package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ReturnService validates and applies partial-quantity returns, restoring
// the product's on-hand inventory.
type ReturnService interface {
	ProcessReturn(ctx context.Context, orderItemID int, quantity decimal.Decimal, reason string, actor Actor) (*OrderReturn, error)
	ListReturns(ctx context.Context, orderID int) ([]OrderReturn, error)
}

type returnService struct {
	pool *pgxpool.Pool
}

func NewReturnService(pool *pgxpool.Pool) ReturnService {
	return &returnService{pool: pool}
}

// ProcessReturn increments the item's returned quantity, writes the immutable
// return audit record, and restocks the product — all three writes in one
// transaction.
func (s *returnService) ProcessReturn(ctx context.Context, orderItemID int, quantity decimal.Decimal, reason string, actor Actor) (*OrderReturn, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: return quantity must be positive", ErrValidation)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: a return requires a reason", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		productID        int
		ordered, already decimal.Decimal
	)
	err = tx.QueryRow(ctx, `
		SELECT product_id, quantity, returned_quantity
		FROM order_items
		WHERE id = $1
		FOR UPDATE
	`, orderItemID).Scan(&productID, &ordered, &already)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order item %d", ErrNotFound, orderItemID)
		}
		return nil, fmt.Errorf("failed to fetch order item %d: %w", orderItemID, err)
	}

	returnable := ordered.Sub(already)
	if quantity.GreaterThan(returnable) {
		return nil, fmt.Errorf("%w: return of %s exceeds returnable quantity %s", ErrValidation, quantity, returnable)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE order_items SET returned_quantity = returned_quantity + $1 WHERE id = $2",
		quantity, orderItemID); err != nil {
		return nil, fmt.Errorf("failed to update returned quantity: %w", err)
	}

	var ret OrderReturn
	err = tx.QueryRow(ctx, `
		INSERT INTO order_returns (order_item_id, quantity, reason, returned_by, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, order_item_id, quantity, reason, returned_by, created_at
	`, orderItemID, quantity, reason, actor.UserID).Scan(
		&ret.ID, &ret.OrderItemID, &ret.Quantity, &ret.Reason, &ret.ReturnedBy, &ret.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert return record: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE products SET quantity_on_hand = quantity_on_hand + $1 WHERE id = $2",
		quantity, productID); err != nil {
		return nil, fmt.Errorf("failed to restock product %d: %w", productID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit return: %w", err)
	}
	return &ret, nil
}

func (s *returnService) ListReturns(ctx context.Context, orderID int) ([]OrderReturn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.order_item_id, r.quantity, r.reason, r.returned_by, r.created_at
		FROM order_returns r
		JOIN order_items oi ON oi.id = r.order_item_id
		WHERE oi.order_id = $1
		ORDER BY r.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query returns: %w", err)
	}
	defer rows.Close()

	var returns []OrderReturn
	for rows.Next() {
		var r OrderReturn
		if err := rows.Scan(&r.ID, &r.OrderItemID, &r.Quantity, &r.Reason, &r.ReturnedBy, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan return: %w", err)
		}
		returns = append(returns, r)
	}
	return returns, nil
}
