package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Product is the catalog's read model of a purchasable item.
// The cart never mutates it; it reads Stock to clamp quantities and Price to compute totals.
type Product struct {
	shared.BaseEntity
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	Category    string
	Rating      decimal.Decimal
	Stock       int
}

// NewProduct creates a new product
func NewProduct(name string, price decimal.Decimal, stock int) (*Product, error) {
	p := &Product{
		BaseEntity: shared.NewBaseEntity(),
		Name:       strings.TrimSpace(name),
		Price:      price,
		Rating:     decimal.Zero,
		Stock:      stock,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the product's invariants
func (p *Product) Validate() error {
	if p.Name == "" {
		return shared.ErrInvalidInput.WithMessage("Product name cannot be empty")
	}
	if len(p.Name) > 200 {
		return shared.ErrInvalidInput.WithMessage("Product name cannot exceed 200 characters")
	}
	if p.Price.IsNegative() {
		return shared.ErrInvalidInput.WithMessage("Product price cannot be negative")
	}
	if p.Stock < 0 {
		return shared.ErrInvalidInput.WithMessage("Product stock cannot be negative")
	}
	return nil
}

// InStock reports whether at least one unit is available
func (p *Product) InStock() bool {
	return p.Stock > 0
}
