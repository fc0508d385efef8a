package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

// backend is the storage a Store currently routes mutations to.
// Every read goes to the backend itself, never to the in-memory cart.
type backend interface {
	authenticated() bool
	load(ctx context.Context) ([]cart.Line, error)
	find(ctx context.Context, productID uuid.UUID) (cart.Line, bool, error)
	put(ctx context.Context, productID uuid.UUID, quantity int, product *catalog.Product) (*uuid.UUID, error)
	remove(ctx context.Context, productID uuid.UUID) error
	clear(ctx context.Context) error
	// translate maps a raw adapter error to the cart error taxonomy
	translate(err error) error
}

// localBackend routes to the device cache used by anonymous sessions
type localBackend struct {
	cache cart.LocalCartCache
}

func (b localBackend) authenticated() bool { return false }

func (b localBackend) load(ctx context.Context) ([]cart.Line, error) {
	c, err := b.cache.Load(ctx)
	if err != nil {
		return nil, err
	}
	return c.Lines(), nil
}

func (b localBackend) find(ctx context.Context, productID uuid.UUID) (cart.Line, bool, error) {
	c, err := b.cache.Load(ctx)
	if err != nil {
		return cart.Line{}, false, err
	}
	line, ok := c.Line(productID)
	return line, ok, nil
}

func (b localBackend) put(ctx context.Context, productID uuid.UUID, quantity int, product *catalog.Product) (*uuid.UUID, error) {
	c, err := b.cache.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Set(cart.Line{ProductID: productID, Quantity: quantity, Product: product}); err != nil {
		return nil, err
	}
	return nil, b.cache.Save(ctx, c)
}

func (b localBackend) remove(ctx context.Context, productID uuid.UUID) error {
	c, err := b.cache.Load(ctx)
	if err != nil {
		return err
	}
	if !c.Remove(productID) {
		return nil
	}
	return b.cache.Save(ctx, c)
}

func (b localBackend) clear(ctx context.Context) error {
	return b.cache.Clear(ctx)
}

func (b localBackend) translate(err error) error {
	return translate(err, shared.ErrLocalCacheUnavailable)
}

// remoteBackend routes to the user's server-side cart
type remoteBackend struct {
	store  cart.RemoteCartStore
	userID uuid.UUID
	cartID uuid.UUID
}

func (b remoteBackend) authenticated() bool { return true }

func (b remoteBackend) load(ctx context.Context) ([]cart.Line, error) {
	return b.store.ListItems(ctx, b.cartID)
}

func (b remoteBackend) find(ctx context.Context, productID uuid.UUID) (cart.Line, bool, error) {
	return b.store.FindItem(ctx, b.cartID, productID)
}

func (b remoteBackend) put(ctx context.Context, productID uuid.UUID, quantity int, _ *catalog.Product) (*uuid.UUID, error) {
	rowID, err := b.store.UpsertItem(ctx, b.cartID, productID, quantity)
	if err != nil {
		return nil, err
	}
	return &rowID, nil
}

func (b remoteBackend) remove(ctx context.Context, productID uuid.UUID) error {
	return b.store.DeleteItem(ctx, b.cartID, productID)
}

func (b remoteBackend) clear(ctx context.Context) error {
	return b.store.ClearItems(ctx, b.cartID)
}

func (b remoteBackend) translate(err error) error {
	return translate(err, shared.ErrRemoteUnavailable)
}

// translate passes domain errors through and wraps anything else in kind
func translate(err error, kind *shared.DomainError) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return kind.Wrap(err)
}
