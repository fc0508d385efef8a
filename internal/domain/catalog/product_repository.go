package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository is the catalog lookup consumed by the cart.
// FindByID returns shared.ErrNotFound when the product does not resolve.
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDs finds the products that still exist among ids
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error
}
