package cart

import (
	"context"

	"github.com/google/uuid"
)

// LocalCartCache is the device-scoped store holding the anonymous cart.
// Load returns an empty cart for absent or malformed content; an error means
// the underlying storage could not be reached.
type LocalCartCache interface {
	Load(ctx context.Context) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Clear(ctx context.Context) error
}

// RemoteCartStore is the server-side cart (cart header + cart_item rows) scoped to a user.
// A missing row is reported through found=false, never as an error. Any returned
// error is a connectivity or authorization failure.
type RemoteCartStore interface {
	// EnsureCart returns the user's cart id, creating the header on first use
	EnsureCart(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)

	// ListItems returns the cart's lines joined with current catalog data.
	// Rows whose product no longer resolves are omitted.
	ListItems(ctx context.Context, cartID uuid.UUID) ([]Line, error)

	// FindItem returns the row for productID
	FindItem(ctx context.Context, cartID, productID uuid.UUID) (Line, bool, error)

	// UpsertItem updates the row's quantity or inserts it, returning the row id
	UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (uuid.UUID, error)

	// DeleteItem removes the row for productID; a missing row is not an error
	DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error

	// ClearItems removes every row of the cart
	ClearItems(ctx context.Context, cartID uuid.UUID) error
}
