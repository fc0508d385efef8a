package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
)

// Snapshot is the cart read model handed to the UI layer
type Snapshot struct {
	Authenticated  bool                     `json:"authenticated"`
	UserID         *uuid.UUID               `json:"user_id,omitempty"`
	Lines          []SnapshotLine           `json:"lines"`
	Total          decimal.Decimal          `json:"total"`
	ItemCount      int                      `json:"item_count"`
	Loading        bool                     `json:"loading"`
	Reconciliation cart.ReconciliationState `json:"reconciliation"`
}

// SnapshotLine is one cart line with the product display data resolved
type SnapshotLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    int             `json:"quantity"`
	RemoteRowID *uuid.UUID      `json:"remote_row_id,omitempty"`
	Name        string          `json:"name"`
	Image       string          `json:"image,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

func toSnapshotLine(l cart.Line) SnapshotLine {
	out := SnapshotLine{
		ProductID:   l.ProductID,
		Quantity:    l.Quantity,
		RemoteRowID: l.RemoteRowID,
		Price:       decimal.Zero,
		Subtotal:    l.Subtotal(),
	}
	if l.Product != nil {
		out.Name = l.Product.Name
		out.Image = l.Product.Image
		out.Price = l.Product.Price
		out.Stock = l.Product.Stock
	}
	return out
}

// Line returns the snapshot line for productID
func (s Snapshot) Line(productID uuid.UUID) (SnapshotLine, bool) {
	for _, l := range s.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return SnapshotLine{}, false
}
