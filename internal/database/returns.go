package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shopmesh/shopmesh/internal/models"
)

// ReturnRepository persists return requests
type ReturnRepository struct {
	db *Database
}

// NewReturnRepository creates a return repository
func NewReturnRepository(db *Database) *ReturnRepository {
	return &ReturnRepository{db: db}
}

// GetActiveByOrder returns the non-cancelled return request for an
// order, or nil if none exists. At most one active return per order is
// enforced by the eligibility check before creation.
func (r *ReturnRepository) GetActiveByOrder(ctx context.Context, orderID string) (*models.ReturnRequest, error) {
	var ret models.ReturnRequest
	err := r.db.DB().GetContext(ctx, &ret, `
		SELECT id, order_id, user_id, reason, status, created_at
		FROM returns
		WHERE order_id = $1 AND status <> $2
		ORDER BY created_at DESC
		LIMIT 1
	`, orderID, models.ReturnStatusCancelled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up return request: %w", err)
	}
	return &ret, nil
}

// Create inserts a new return request in requested status
func (r *ReturnRepository) Create(ctx context.Context, orderID, userID, reason string) (*models.ReturnRequest, error) {
	ret := models.ReturnRequest{
		ID:      uuid.New().String(),
		OrderID: orderID,
		UserID:  userID,
		Reason:  reason,
		Status:  models.ReturnStatusRequested,
	}

	err := r.db.DB().QueryRowxContext(ctx, `
		INSERT INTO returns (id, order_id, user_id, reason, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, ret.ID, ret.OrderID, ret.UserID, ret.Reason, ret.Status).Scan(&ret.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create return request: %w", err)
	}
	return &ret, nil
}
