package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shopmesh/shopmesh/internal/models"
)

// AlertRepository persists product alert subscriptions. Alerts live in
// the same transactional store as orders and returns; process memory is
// never used, so alerts survive restarts and scale across instances.
type AlertRepository struct {
	db *Database
}

// NewAlertRepository creates an alert repository
func NewAlertRepository(db *Database) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new active alert
func (r *AlertRepository) Create(ctx context.Context, userID, productID, alertType string, targetPrice *float64) (*models.Alert, error) {
	alert := models.Alert{
		ID:          uuid.New().String(),
		UserID:      userID,
		ProductID:   productID,
		AlertType:   alertType,
		TargetPrice: targetPrice,
		Active:      true,
	}

	err := r.db.DB().QueryRowxContext(ctx, `
		INSERT INTO alerts (id, user_id, product_id, alert_type, target_price, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, alert.ID, alert.UserID, alert.ProductID, alert.AlertType, alert.TargetPrice, alert.Active).Scan(&alert.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}
	return &alert, nil
}

// ListByUser returns a user's active alerts, newest first
func (r *AlertRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Alert, error) {
	var alerts []models.Alert
	err := r.db.DB().SelectContext(ctx, &alerts, `
		SELECT id, user_id, product_id, alert_type, target_price, active, created_at
		FROM alerts
		WHERE user_id = $1 AND active
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}
