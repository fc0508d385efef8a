package cart

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeCart = "Cart"

// Event type constants
const (
	EventTypeCartUpdated    = "CartUpdated"
	EventTypeCartReconciled = "CartReconciled"
)

// Mutation names carried by CartUpdatedEvent
const (
	OperationAdd            = "add"
	OperationUpdateQuantity = "update_quantity"
	OperationRemove         = "remove"
	OperationClear          = "clear"
	OperationReload         = "reload"
)

// CartUpdatedEvent is published after a mutation has been persisted
type CartUpdatedEvent struct {
	shared.BaseDomainEvent
	Scope         string     `json:"scope"`
	Authenticated bool       `json:"authenticated"`
	Operation     string     `json:"operation"`
	ProductID     *uuid.UUID `json:"product_id,omitempty"`
	LineCount     int        `json:"line_count"`
	ItemCount     int        `json:"item_count"`
}

// NewCartUpdatedEvent creates a new CartUpdatedEvent. scope is the device id for
// anonymous carts and the user id for authenticated ones.
func NewCartUpdatedEvent(scope string, authenticated bool, operation string, productID *uuid.UUID, c *Cart) *CartUpdatedEvent {
	return &CartUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartUpdated, AggregateTypeCart, scope),
		Scope:           scope,
		Authenticated:   authenticated,
		Operation:       operation,
		ProductID:       productID,
		LineCount:       c.Len(),
		ItemCount:       c.ItemCount(),
	}
}

// CartReconciledEvent is published once per sign-in after the anonymous cart was merged or discarded
type CartReconciledEvent struct {
	shared.BaseDomainEvent
	UserID        uuid.UUID             `json:"user_id"`
	CartID        uuid.UUID             `json:"cart_id"`
	Outcome       ReconciliationOutcome `json:"outcome"`
	ImportedLines int                   `json:"imported_lines"`
	DroppedLines  int                   `json:"dropped_lines"`
}

// NewCartReconciledEvent creates a new CartReconciledEvent
func NewCartReconciledEvent(userID, cartID uuid.UUID, outcome ReconciliationOutcome, imported, dropped int) *CartReconciledEvent {
	return &CartReconciledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartReconciled, AggregateTypeCart, userID.String()),
		UserID:          userID,
		CartID:          cartID,
		Outcome:         outcome,
		ImportedLines:   imported,
		DroppedLines:    dropped,
	}
}
