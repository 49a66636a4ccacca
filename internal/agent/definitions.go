package agent

import "github.com/shopmesh/shopmesh/internal/llm"

// Definitions returns the tool catalog as presented to the model. The
// schemas describe inputs only; caller identity is injected at dispatch
// time and is deliberately absent from every schema.
func (ts *ToolSet) Definitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name: string(ToolSearchProducts),
			Description: "Search the product catalog with a free-text query. " +
				"Use this for any request that mentions searching, recommendations, budget, price, or style. " +
				"Optionally filter by category or a maximum price.",
			Parameters: objectSchema(map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Free-text search query in any language",
				},
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Optional category filter",
				},
				"maxPrice": map[string]interface{}{
					"type":        "number",
					"description": "Optional maximum price filter",
				},
			}, "query"),
		},
		{
			Name:        string(ToolTrackOrder),
			Description: "Look up the status, shipping details, and timeline of an order by its id.",
			Parameters: objectSchema(map[string]interface{}{
				"orderId": map[string]interface{}{
					"type":        "string",
					"description": "The order id to track",
				},
			}, "orderId"),
		},
		{
			Name:        string(ToolCheckReturnEligibility),
			Description: "Check whether an order is eligible for a return under the 30-day return policy.",
			Parameters: objectSchema(map[string]interface{}{
				"orderId": map[string]interface{}{
					"type":        "string",
					"description": "The order id to check",
				},
			}, "orderId"),
		},
		{
			Name:        string(ToolCreateReturnTicket),
			Description: "Create a return request for an eligible order. Always check eligibility first.",
			Parameters: objectSchema(map[string]interface{}{
				"orderId": map[string]interface{}{
					"type":        "string",
					"description": "The order id to return",
				},
				"reason": map[string]interface{}{
					"type":        "string",
					"description": "The customer's reason for the return",
				},
			}, "orderId", "reason"),
		},
		{
			Name:        string(ToolCreateAlert),
			Description: "Subscribe the customer to a price-drop or restock alert for a product.",
			Parameters: objectSchema(map[string]interface{}{
				"productId": map[string]interface{}{
					"type":        "string",
					"description": "The product id to watch",
				},
				"alertType": map[string]interface{}{
					"type": "string",
					"enum": []string{"price_drop", "restock"},
				},
				"targetPrice": map[string]interface{}{
					"type":        "number",
					"description": "Optional target price for price_drop alerts",
				},
			}, "productId", "alertType"),
		},
		{
			Name:        string(ToolListUserOrders),
			Description: "List the customer's recent orders with a short item summary.",
			Parameters: objectSchema(map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Number of orders to return, between 1 and 10 (default 5)",
				},
			}),
		},
	}
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
