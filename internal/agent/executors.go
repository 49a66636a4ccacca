package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopmesh/shopmesh/internal/database"
	"github.com/shopmesh/shopmesh/internal/models"
)

// returnWindowDays is the policy window for return eligibility
const returnWindowDays = 30

type searchProductsInput struct {
	Query    string   `json:"query"`
	Category string   `json:"category,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
}

type searchProductsResult struct {
	Products []models.RankedProduct `json:"products"`
}

// searchProducts is the only public tool. The engine never fails, so
// the worst case is an empty list.
func (ts *ToolSet) searchProducts(ctx context.Context, in searchProductsInput) json.RawMessage {
	results := ts.registry.search.Search(ctx, in.Query, searchCandidateLimit)

	filtered := make([]models.RankedProduct, 0, len(results))
	for _, p := range results {
		if in.Category != "" && !strings.EqualFold(p.Category, in.Category) {
			continue
		}
		if in.MaxPrice != nil && p.Price > *in.MaxPrice {
			continue
		}
		filtered = append(filtered, p)
		if len(filtered) == searchResultLimit {
			break
		}
	}

	return marshalResult(searchProductsResult{Products: filtered})
}

type trackOrderInput struct {
	OrderID string `json:"orderId"`
}

type trackOrderResult struct {
	OrderID        string              `json:"order_id"`
	Status         string              `json:"status"`
	ShippingMethod string              `json:"shipping_method"`
	TrackingNumber string              `json:"tracking_number,omitempty"`
	Timeline       []models.OrderEvent `json:"timeline"`
}

func (ts *ToolSet) trackOrder(ctx context.Context, in trackOrderInput) json.RawMessage {
	if in.OrderID == "" {
		return toolError("orderId is required")
	}

	order, err := ts.registry.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			return toolError("order %s not found", in.OrderID)
		}
		return toolError("failed to look up order: %v", err)
	}

	if !ts.callerOwnsOrIsAdmin(order.UserID) {
		return toolError("Unauthorized: you can only track your own orders")
	}

	return marshalResult(trackOrderResult{
		OrderID:        order.ID,
		Status:         order.Status,
		ShippingMethod: order.ShippingMethod,
		TrackingNumber: order.TrackingNumber,
		Timeline:       order.Events,
	})
}

type checkReturnEligibilityInput struct {
	OrderID string `json:"orderId"`
}

type returnEligibilityResult struct {
	Eligible          bool   `json:"eligible"`
	Reason            string `json:"reason"`
	DaysSincePurchase int    `json:"daysSincePurchase"`
	WindowDays        int    `json:"windowDays"`
	ExistingReturnID  string `json:"existingReturnId,omitempty"`
}

func (ts *ToolSet) checkReturnEligibility(ctx context.Context, in checkReturnEligibilityInput) json.RawMessage {
	if !ts.caller.Authenticated() {
		return toolError("Unauthorized: sign in to check return eligibility")
	}
	if in.OrderID == "" {
		return toolError("orderId is required")
	}

	order, err := ts.registry.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			return toolError("order %s not found", in.OrderID)
		}
		return toolError("failed to look up order: %v", err)
	}

	existing, err := ts.registry.returns.GetActiveByOrder(ctx, order.ID)
	if err != nil {
		return toolError("failed to check existing returns: %v", err)
	}

	return marshalResult(evaluateReturnEligibility(order, existing, time.Now()))
}

// evaluateReturnEligibility applies the return policy: no prior
// non-cancelled return, at most 30 whole days since purchase, and an
// order status that is neither cancelled nor pending. Day counting
// floors from the order creation timestamp to now.
func evaluateReturnEligibility(order *models.Order, existing *models.ReturnRequest, now time.Time) returnEligibilityResult {
	days := int(now.Sub(order.CreatedAt).Hours() / 24)
	result := returnEligibilityResult{
		DaysSincePurchase: days,
		WindowDays:        returnWindowDays,
	}

	if existing != nil {
		result.Reason = fmt.Sprintf("a return request already exists for this order (%s)", existing.ID)
		result.ExistingReturnID = existing.ID
		return result
	}

	if order.Status == models.OrderStatusCancelled || order.Status == models.OrderStatusPending {
		result.Reason = fmt.Sprintf("orders with status %q cannot be returned", order.Status)
		return result
	}

	if days > returnWindowDays {
		result.Reason = fmt.Sprintf("the %d-day return window has passed", returnWindowDays)
		return result
	}

	result.Eligible = true
	result.Reason = "order is within the return window"
	return result
}

type createReturnTicketInput struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

type createReturnTicketResult struct {
	Return  *models.ReturnRequest `json:"return"`
	Message string                `json:"message"`
}

func (ts *ToolSet) createReturnTicket(ctx context.Context, in createReturnTicketInput) json.RawMessage {
	if !ts.caller.Authenticated() {
		return toolError("Unauthorized: sign in to request a return")
	}
	if in.OrderID == "" {
		return toolError("orderId is required")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return toolError("a return reason is required")
	}

	order, err := ts.registry.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			return toolError("order %s not found", in.OrderID)
		}
		return toolError("failed to look up order: %v", err)
	}

	if !ts.callerOwnsOrIsAdmin(order.UserID) {
		return toolError("Unauthorized: you can only return your own orders")
	}

	existing, err := ts.registry.returns.GetActiveByOrder(ctx, order.ID)
	if err != nil {
		return toolError("failed to check existing returns: %v", err)
	}

	eligibility := evaluateReturnEligibility(order, existing, time.Now())
	if !eligibility.Eligible {
		return toolError("order is not eligible for return: %s", eligibility.Reason)
	}

	ret, err := ts.registry.returns.Create(ctx, order.ID, order.UserID, strings.TrimSpace(in.Reason))
	if err != nil {
		return toolError("failed to create return request: %v", err)
	}

	return marshalResult(createReturnTicketResult{
		Return:  ret,
		Message: fmt.Sprintf("Return request %s created for order %s. You will receive return instructions by email.", ret.ID, order.ID),
	})
}

type createAlertInput struct {
	ProductID   string   `json:"productId"`
	AlertType   string   `json:"alertType"`
	TargetPrice *float64 `json:"targetPrice,omitempty"`
}

type createAlertResult struct {
	Alert   *models.Alert `json:"alert"`
	Message string        `json:"message"`
}

func (ts *ToolSet) createAlert(ctx context.Context, in createAlertInput) json.RawMessage {
	if !ts.caller.Authenticated() {
		return toolError("Unauthorized: sign in to create alerts")
	}
	if in.ProductID == "" {
		return toolError("productId is required")
	}
	if in.AlertType != models.AlertTypePriceDrop && in.AlertType != models.AlertTypeRestock {
		return toolError("alertType must be %q or %q", models.AlertTypePriceDrop, models.AlertTypeRestock)
	}

	product, err := ts.registry.products.GetByID(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			return toolError("product %s not found", in.ProductID)
		}
		return toolError("failed to look up product: %v", err)
	}

	alert, err := ts.registry.alerts.Create(ctx, *ts.caller.UserID, product.ID, in.AlertType, in.TargetPrice)
	if err != nil {
		return toolError("failed to create alert: %v", err)
	}

	return marshalResult(createAlertResult{
		Alert:   alert,
		Message: fmt.Sprintf("Alert created: you will be notified about %s for %s.", in.AlertType, product.Name),
	})
}

type listUserOrdersInput struct {
	Limit int `json:"limit,omitempty"`
}

type listedOrder struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"`
	Total     float64            `json:"total"`
	CreatedAt time.Time          `json:"created_at"`
	Items     []models.OrderItem `json:"items"`
	ItemCount int                `json:"item_count"`
}

type listUserOrdersResult struct {
	Orders []listedOrder `json:"orders"`
}

func (ts *ToolSet) listUserOrders(ctx context.Context, in listUserOrdersInput) json.RawMessage {
	if !ts.caller.Authenticated() {
		return toolError("Unauthorized: sign in to view your orders")
	}

	limit := in.Limit
	if limit < 1 || limit > listOrdersMaxLimit {
		limit = listOrdersDefaultLimit
	}

	var (
		orders []models.Order
		err    error
	)
	if ts.caller.IsAdmin() {
		orders, err = ts.registry.orders.ListRecent(ctx, limit)
	} else {
		orders, err = ts.registry.orders.ListByUser(ctx, *ts.caller.UserID, limit)
	}
	if err != nil {
		return toolError("failed to list orders: %v", err)
	}

	listed := make([]listedOrder, 0, len(orders))
	for _, o := range orders {
		items := o.Items
		if len(items) > listOrdersItemTruncation {
			items = items[:listOrdersItemTruncation]
		}
		listed = append(listed, listedOrder{
			ID:        o.ID,
			Status:    o.Status,
			Total:     o.Total,
			CreatedAt: o.CreatedAt,
			Items:     items,
			ItemCount: len(o.Items),
		})
	}

	return marshalResult(listUserOrdersResult{Orders: listed})
}

func (ts *ToolSet) callerOwnsOrIsAdmin(ownerID string) bool {
	if ts.caller.IsAdmin() {
		return true
	}
	return ts.caller.Authenticated() && *ts.caller.UserID == ownerID
}
