package models

import "time"

// Order statuses as stored in the orders table
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Order is a customer order with its line items and status timeline
type Order struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	Status         string    `json:"status" db:"status"`
	Total          float64   `json:"total" db:"total"`
	ShippingMethod string    `json:"shipping_method" db:"shipping_method"`
	TrackingNumber string    `json:"tracking_number" db:"tracking_number"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`

	Items  []OrderItem  `json:"items,omitempty" db:"-"`
	Events []OrderEvent `json:"events,omitempty" db:"-"`
}

// OrderItem is one line of an order
type OrderItem struct {
	ID          string  `json:"id" db:"id"`
	OrderID     string  `json:"order_id" db:"order_id"`
	ProductID   string  `json:"product_id" db:"product_id"`
	ProductName string  `json:"product_name" db:"product_name"`
	Quantity    int     `json:"quantity" db:"quantity"`
	UnitPrice   float64 `json:"unit_price" db:"unit_price"`
}

// OrderEvent is one entry in an order's status timeline
type OrderEvent struct {
	ID        string    `json:"id" db:"id"`
	OrderID   string    `json:"order_id" db:"order_id"`
	Status    string    `json:"status" db:"status"`
	Note      string    `json:"note" db:"note"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Return request statuses
const (
	ReturnStatusRequested = "requested"
	ReturnStatusApproved  = "approved"
	ReturnStatusRejected  = "rejected"
	ReturnStatusCancelled = "cancelled"
)

// ReturnRequest is a return ticket opened against an order
type ReturnRequest struct {
	ID        string    `json:"id" db:"id"`
	OrderID   string    `json:"order_id" db:"order_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Reason    string    `json:"reason" db:"reason"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Alert types a customer can subscribe to on a product
const (
	AlertTypePriceDrop = "price_drop"
	AlertTypeRestock   = "restock"
)

// Alert is a product alert subscription (price drop or restock)
type Alert struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	ProductID   string    `json:"product_id" db:"product_id"`
	AlertType   string    `json:"alert_type" db:"alert_type"`
	TargetPrice *float64  `json:"target_price,omitempty" db:"target_price"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
