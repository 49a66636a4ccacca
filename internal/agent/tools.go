// Package agent implements the conversational tool-orchestration loop:
// a closed catalog of typed tools bound to the caller's identity, and a
// step-bounded state machine that lets the model invoke them while
// streaming the reply.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopmesh/shopmesh/internal/llm"
	"github.com/shopmesh/shopmesh/internal/models"
	"github.com/shopmesh/shopmesh/internal/observability"
)

// ToolName identifies one tool of the closed catalog
type ToolName string

// The tool catalog. Dispatch is an exhaustive switch over these names;
// anything else is rejected before execution.
const (
	ToolSearchProducts         ToolName = "searchProducts"
	ToolTrackOrder             ToolName = "trackOrder"
	ToolCheckReturnEligibility ToolName = "checkReturnEligibility"
	ToolCreateReturnTicket     ToolName = "createReturnTicket"
	ToolCreateAlert            ToolName = "createAlert"
	ToolListUserOrders         ToolName = "listUserOrders"
)

// searchResultLimit caps product lists returned to the model
const searchResultLimit = 5

// searchCandidateLimit is the wider fetch backing the category and
// price filters, which apply after retrieval
const searchCandidateLimit = 10

// listOrdersDefaultLimit and listOrdersMaxLimit bound listUserOrders
const (
	listOrdersDefaultLimit = 5
	listOrdersMaxLimit     = 10
)

// listOrdersItemTruncation caps per-order item lists for brevity
const listOrdersItemTruncation = 2

// ProductSearcher resolves free-text queries into ranked products
type ProductSearcher interface {
	Search(ctx context.Context, query string, limit int) []models.RankedProduct
}

// ProductGetter fetches catalog products by id
type ProductGetter interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
}

// OrderReader provides order lookups
type OrderReader interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Order, error)
	ListRecent(ctx context.Context, limit int) ([]models.Order, error)
}

// ReturnStore provides return-request persistence
type ReturnStore interface {
	GetActiveByOrder(ctx context.Context, orderID string) (*models.ReturnRequest, error)
	Create(ctx context.Context, orderID, userID, reason string) (*models.ReturnRequest, error)
}

// AlertStore provides alert persistence
type AlertStore interface {
	Create(ctx context.Context, userID, productID, alertType string, targetPrice *float64) (*models.Alert, error)
}

// Registry holds the tool collaborators. Bind produces a per-request
// ToolSet with the caller's identity injected; the model never sees or
// supplies the caller context.
type Registry struct {
	search   ProductSearcher
	products ProductGetter
	orders   OrderReader
	returns  ReturnStore
	alerts   AlertStore
	logger   observability.Logger
}

// NewRegistry creates the tool registry
func NewRegistry(search ProductSearcher, products ProductGetter, orders OrderReader, returns ReturnStore, alerts AlertStore, logger observability.Logger) *Registry {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Registry{
		search:   search,
		products: products,
		orders:   orders,
		returns:  returns,
		alerts:   alerts,
		logger:   logger,
	}
}

// Bind constructs the caller-scoped tool set for one request
func (r *Registry) Bind(caller models.CallerContext) *ToolSet {
	return &ToolSet{registry: r, caller: caller}
}

// ToolSet is the per-request view of the catalog: every execution runs
// with the bound caller context resolved at request time.
type ToolSet struct {
	registry *Registry
	caller   models.CallerContext
}

// errorResult is the structured failure shape every tool degrades to,
// so the conversation continues instead of aborting the turn.
type errorResult struct {
	Error string `json:"error"`
}

func toolError(format string, args ...interface{}) json.RawMessage {
	data, _ := json.Marshal(errorResult{Error: fmt.Sprintf(format, args...)})
	return data
}

func marshalResult(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return toolError("failed to encode tool result: %v", err)
	}
	return data
}

// Execute dispatches one tool call. It never returns an error: every
// failure, including panics in an executor and malformed input, becomes
// a structured {error} result the model can react to.
func (ts *ToolSet) Execute(ctx context.Context, call llm.ToolCall) (result json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			ts.registry.logger.Error("tool executor panicked", map[string]interface{}{
				"tool":  call.Name,
				"panic": fmt.Sprintf("%v", r),
			})
			result = toolError("tool %s failed unexpectedly", call.Name)
		}
	}()

	switch ToolName(call.Name) {
	case ToolSearchProducts:
		var in searchProductsInput
		if err := decodeInput(call.Arguments, &in); err != nil {
			return toolError("invalid input for searchProducts: %v", err)
		}
		return ts.searchProducts(ctx, in)
	case ToolTrackOrder:
		var in trackOrderInput
		if err := decodeInput(call.Arguments, &in); err != nil {
			return toolError("invalid input for trackOrder: %v", err)
		}
		return ts.trackOrder(ctx, in)
	case ToolCheckReturnEligibility:
		var in checkReturnEligibilityInput
		if err := decodeInput(call.Arguments, &in); err != nil {
			return toolError("invalid input for checkReturnEligibility: %v", err)
		}
		return ts.checkReturnEligibility(ctx, in)
	case ToolCreateReturnTicket:
		var in createReturnTicketInput
		if err := decodeInput(call.Arguments, &in); err != nil {
			return toolError("invalid input for createReturnTicket: %v", err)
		}
		return ts.createReturnTicket(ctx, in)
	case ToolCreateAlert:
		var in createAlertInput
		if err := decodeInput(call.Arguments, &in); err != nil {
			return toolError("invalid input for createAlert: %v", err)
		}
		return ts.createAlert(ctx, in)
	case ToolListUserOrders:
		var in listUserOrdersInput
		if err := decodeInput(call.Arguments, &in); err != nil {
			return toolError("invalid input for listUserOrders: %v", err)
		}
		return ts.listUserOrders(ctx, in)
	default:
		return toolError("unknown tool: %s", call.Name)
	}
}

func decodeInput(arguments string, v interface{}) error {
	if arguments == "" {
		arguments = "{}"
	}
	if err := json.Unmarshal([]byte(arguments), v); err != nil {
		return errors.New("arguments are not valid JSON")
	}
	return nil
}
