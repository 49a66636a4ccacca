package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopmesh/shopmesh/internal/models"
)

// ErrOrderNotFound is returned when an order id does not exist
var ErrOrderNotFound = errors.New("order not found")

// OrderRepository provides order lookups with items and status timeline
type OrderRepository struct {
	db *Database
}

// NewOrderRepository creates an order repository
func NewOrderRepository(db *Database) *OrderRepository {
	return &OrderRepository{db: db}
}

// GetByID fetches an order with its line items and timeline events
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.DB().GetContext(ctx, &order, `
		SELECT id, user_id, status, total, shipping_method, tracking_number, created_at
		FROM orders
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := r.loadItems(ctx, &order); err != nil {
		return nil, err
	}

	if err := r.db.DB().SelectContext(ctx, &order.Events, `
		SELECT id, order_id, status, note, created_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY created_at ASC
	`, id); err != nil {
		return nil, fmt.Errorf("failed to load order events: %w", err)
	}

	return &order, nil
}

// ListByUser returns a user's most recent orders, newest first
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.DB().SelectContext(ctx, &orders, `
		SELECT id, user_id, status, total, shipping_method, tracking_number, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// ListRecent returns the most recent orders across all users. Admin only;
// authorization is enforced by the caller.
func (r *OrderRepository) ListRecent(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.DB().SelectContext(ctx, &orders, `
		SELECT id, user_id, status, total, shipping_method, tracking_number, created_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent orders: %w", err)
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, order *models.Order) error {
	if err := r.db.DB().SelectContext(ctx, &order.Items, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC
	`, order.ID); err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	return nil
}
