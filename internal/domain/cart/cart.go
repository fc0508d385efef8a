package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

// Line is a single product/quantity pair within a cart
type Line struct {
	ProductID uuid.UUID
	Quantity  int
	// RemoteRowID is set only when the line is backed by a remote cart_item row
	RemoteRowID *uuid.UUID
	// Product is the last known catalog snapshot, used for display and totals
	Product *catalog.Product
}

// Subtotal returns quantity × price, or zero when no product snapshot is attached
func (l Line) Subtotal() decimal.Decimal {
	if l.Product == nil {
		return decimal.Zero
	}
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart maps product ids to lines. At most one line exists per product and
// every stored line has a positive quantity. Lines keep insertion order.
type Cart struct {
	order []uuid.UUID
	lines map[uuid.UUID]Line
}

// NewCart returns an empty cart
func NewCart() *Cart {
	return &Cart{lines: make(map[uuid.UUID]Line)}
}

// NewCartFromLines builds a cart from lines, rejecting invalid quantities and duplicates
func NewCartFromLines(lines []Line) (*Cart, error) {
	c := NewCart()
	for _, l := range lines {
		if _, exists := c.lines[l.ProductID]; exists {
			return nil, shared.ErrInvalidInput.WithMessage("Duplicate line for product " + l.ProductID.String())
		}
		if err := c.Set(l); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Len returns the number of lines
func (c *Cart) Len() int {
	return len(c.order)
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.order) == 0
}

// Line returns the line for productID
func (c *Cart) Line(productID uuid.UUID) (Line, bool) {
	l, ok := c.lines[productID]
	return l, ok
}

// Quantity returns the quantity held for productID, 0 when absent
func (c *Cart) Quantity(productID uuid.UUID) int {
	return c.lines[productID].Quantity
}

// Set inserts or replaces the line for its product. A replaced line keeps its position.
func (c *Cart) Set(line Line) error {
	if line.ProductID == uuid.Nil {
		return shared.ErrInvalidInput.WithMessage("Line must reference a product")
	}
	if line.Quantity < 1 {
		return shared.ErrInvalidInput.WithMessage("Line quantity must be at least 1")
	}
	if _, exists := c.lines[line.ProductID]; !exists {
		c.order = append(c.order, line.ProductID)
	}
	c.lines[line.ProductID] = line
	return nil
}

// Remove deletes the line for productID and reports whether it existed
func (c *Cart) Remove(productID uuid.UUID) bool {
	if _, exists := c.lines[productID]; !exists {
		return false
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every line
func (c *Cart) Clear() {
	c.order = nil
	c.lines = make(map[uuid.UUID]Line)
}

// Lines returns the lines in insertion order
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.lines[id])
	}
	return out
}

// ProductIDs returns the product ids in insertion order
func (c *Cart) ProductIDs() []uuid.UUID {
	out := make([]uuid.UUID, len(c.order))
	copy(out, c.order)
	return out
}

// ItemCount returns the sum of all line quantities
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Total returns Σ quantity × price over the attached product snapshots
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, id := range c.order {
		total = total.Add(c.lines[id].Subtotal())
	}
	return total
}

// Clone returns a copy that shares no mutable state with c
func (c *Cart) Clone() *Cart {
	out := &Cart{
		order: make([]uuid.UUID, len(c.order)),
		lines: make(map[uuid.UUID]Line, len(c.lines)),
	}
	copy(out.order, c.order)
	for id, l := range c.lines {
		out.lines[id] = l
	}
	return out
}
