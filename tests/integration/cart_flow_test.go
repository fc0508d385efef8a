//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	cartapp "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *catalog.Product {
	t.Helper()

	p, err := catalog.NewProduct(name, decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormProductRepository(db).Save(context.Background(), p))
	return p
}

func TestCartFlow_GuestCartImportedOnSignIn(t *testing.T) {
	tdb := NewSharedTestDB(t)
	ctx := context.Background()

	lamp := seedProduct(t, tdb.DB, "Lamp", "19.90", 5)
	desk := seedProduct(t, tdb.DB, "Desk", "120.00", 2)
	remote := persistence.NewGormRemoteCartStore(tdb.DB)

	bus := event.NewInMemoryEventBus(nil)
	provider := cache.NewLocalCartCacheProvider(cache.NewMemoryStore(), "cart:", time.Hour, nil)
	registry := cartapp.NewSessionRegistry(cartapp.SessionDeps{
		Catalog:         persistence.NewGormProductRepository(tdb.DB),
		Remote:          remote,
		LocalCache:      provider.For,
		NewIdentityFeed: cartapp.NewIdentityFeed,
		Publisher:       bus,
	}, cartapp.SessionRegistryConfig{})
	t.Cleanup(func() {
		_ = registry.Close()
		_ = bus.Stop(context.Background())
		_ = provider.Close()
	})

	session, err := registry.Get(ctx, "device-pg")
	require.NoError(t, err)
	require.NoError(t, session.Identity.Publish(ctx, cart.Anonymous()))

	require.NoError(t, session.Store.Add(ctx, lamp.ID))
	require.NoError(t, session.Store.Add(ctx, lamp.ID))
	require.NoError(t, session.Store.Add(ctx, desk.ID))
	require.NoError(t, session.Store.UpdateQuantity(ctx, desk.ID, 10))

	guest := session.Store.Snapshot(ctx)
	assert.False(t, guest.Authenticated)
	assert.Equal(t, 4, guest.ItemCount)

	userID := uuid.New()
	require.NoError(t, session.Identity.Publish(ctx, cart.Authenticated(userID)))

	snap := session.Store.Snapshot(ctx)
	assert.True(t, snap.Authenticated)
	require.NotNil(t, snap.UserID)
	assert.Equal(t, userID, *snap.UserID)

	line, ok := snap.Line(desk.ID)
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity, "quantity stays within stock")
	assert.NotNil(t, line.RemoteRowID)
	assert.True(t, decimal.RequireFromString("279.80").Equal(snap.Total))

	cartID, err := remote.EnsureCart(ctx, userID)
	require.NoError(t, err)
	rows, err := remote.ListItems(ctx, cartID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	require.NoError(t, session.Store.Remove(ctx, lamp.ID))
	_, ok, err = remote.FindItem(ctx, cartID, lamp.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCartFlow_RemoteCartFollowsUserAcrossDevices(t *testing.T) {
	tdb := NewSharedTestDB(t)
	ctx := context.Background()

	mug := seedProduct(t, tdb.DB, "Mug", "4.50", 10)

	bus := event.NewInMemoryEventBus(nil)
	provider := cache.NewLocalCartCacheProvider(cache.NewMemoryStore(), "cart:", time.Hour, nil)
	registry := cartapp.NewSessionRegistry(cartapp.SessionDeps{
		Catalog:         persistence.NewGormProductRepository(tdb.DB),
		Remote:          persistence.NewGormRemoteCartStore(tdb.DB),
		LocalCache:      provider.For,
		NewIdentityFeed: cartapp.NewIdentityFeed,
		Publisher:       bus,
	}, cartapp.SessionRegistryConfig{})
	t.Cleanup(func() {
		_ = registry.Close()
		_ = bus.Stop(context.Background())
		_ = provider.Close()
	})

	userID := uuid.New()

	phone, err := registry.Get(ctx, "device-phone")
	require.NoError(t, err)
	require.NoError(t, phone.Identity.Publish(ctx, cart.Authenticated(userID)))
	require.NoError(t, phone.Store.Add(ctx, mug.ID))
	require.NoError(t, phone.Store.UpdateQuantity(ctx, mug.ID, 3))

	laptop, err := registry.Get(ctx, "device-laptop")
	require.NoError(t, err)
	require.NoError(t, laptop.Identity.Publish(ctx, cart.Authenticated(userID)))

	line, ok := laptop.Store.Snapshot(ctx).Line(mug.ID)
	require.True(t, ok)
	assert.Equal(t, 3, line.Quantity)

	require.NoError(t, phone.Store.Engine().SignOut(ctx))
	assert.Empty(t, phone.Store.Snapshot(ctx).Lines)

	require.NoError(t, phone.Identity.Publish(ctx, cart.Authenticated(userID)))
	line, ok = phone.Store.Snapshot(ctx).Line(mug.ID)
	require.True(t, ok)
	assert.Equal(t, 3, line.Quantity, "remote cart survives sign-out")
}
