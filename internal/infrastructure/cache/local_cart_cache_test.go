package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testProduct(t *testing.T, name string, price string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(name, decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	p.Category = "tools"
	p.Rating = decimal.RequireFromString("4.5")
	return p
}

// failingStore returns err from every call
type failingStore struct {
	err error
}

func (s failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, s.err
}

func (s failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return s.err
}

func (s failingStore) Delete(context.Context, string) error {
	return s.err
}

func (s failingStore) Close() error {
	return nil
}

func TestLocalCartCache_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	provider := NewLocalCartCacheProvider(store, "cart:local:", 0, nil)
	local := provider.For("device-1")
	ctx := context.Background()

	hammer := testProduct(t, "Hammer", "12.50", 10)
	nails := testProduct(t, "Nails", "0.99", 500)

	c := cart.NewCart()
	require.NoError(t, c.Set(cart.Line{ProductID: hammer.ID, Quantity: 2, Product: hammer}))
	require.NoError(t, c.Set(cart.Line{ProductID: nails.ID, Quantity: 100, Product: nails}))

	require.NoError(t, local.Save(ctx, c))

	loaded, err := local.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())

	lines := loaded.Lines()
	assert.Equal(t, hammer.ID, lines[0].ProductID, "insertion order is preserved")
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Nil(t, lines[0].RemoteRowID)
	require.NotNil(t, lines[0].Product)
	assert.Equal(t, "Hammer", lines[0].Product.Name)
	assert.True(t, hammer.Price.Equal(lines[0].Product.Price))
	assert.Equal(t, 10, lines[0].Product.Stock)
	assert.Equal(t, nails.ID, lines[1].ProductID)
	assert.Equal(t, 100, lines[1].Quantity)

	t.Run("saving what was loaded is a no-op", func(t *testing.T) {
		before, _, err := store.Get(ctx, "cart:local:device-1")
		require.NoError(t, err)

		require.NoError(t, local.Save(ctx, loaded))

		after, _, err := store.Get(ctx, "cart:local:device-1")
		require.NoError(t, err)
		assert.JSONEq(t, string(before), string(after))
	})
}

func TestLocalCartCache_DevicesAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	provider := NewLocalCartCacheProvider(store, "cart:local:", 0, nil)
	ctx := context.Background()

	p := testProduct(t, "Lamp", "30", 3)
	c := cart.NewCart()
	require.NoError(t, c.Set(cart.Line{ProductID: p.ID, Quantity: 1, Product: p}))
	require.NoError(t, provider.For("a").Save(ctx, c))

	other, err := provider.For("b").Load(ctx)
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())
}

func TestLocalCartCache_EmptyAndClear(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	provider := NewLocalCartCacheProvider(store, "cart:local:", 0, nil)
	local := provider.For("device-1")
	ctx := context.Background()

	t.Run("absent content loads as an empty cart", func(t *testing.T) {
		c, err := local.Load(ctx)
		require.NoError(t, err)
		assert.True(t, c.IsEmpty())
	})

	t.Run("saving an empty cart removes the entry", func(t *testing.T) {
		p := testProduct(t, "Cup", "3", 5)
		c := cart.NewCart()
		require.NoError(t, c.Set(cart.Line{ProductID: p.ID, Quantity: 1}))
		require.NoError(t, local.Save(ctx, c))
		assert.Equal(t, 1, store.Size())

		require.NoError(t, local.Save(ctx, cart.NewCart()))
		assert.Equal(t, 0, store.Size())
	})

	t.Run("clear removes the entry", func(t *testing.T) {
		p := testProduct(t, "Cup", "3", 5)
		c := cart.NewCart()
		require.NoError(t, c.Set(cart.Line{ProductID: p.ID, Quantity: 1}))
		require.NoError(t, local.Save(ctx, c))

		require.NoError(t, local.Clear(ctx))

		loaded, err := local.Load(ctx)
		require.NoError(t, err)
		assert.True(t, loaded.IsEmpty())
	})
}

func TestLocalCartCache_MalformedContent(t *testing.T) {
	ctx := context.Background()
	valid := uuid.New()

	tests := []struct {
		name        string
		payload     string
		wantLines   int
		wantWarning string
	}{
		{
			name:        "not json",
			payload:     "{{{",
			wantLines:   0,
			wantWarning: "Discarding unreadable local cart",
		},
		{
			name:        "wrong shape",
			payload:     `{"product_id":"x"}`,
			wantLines:   0,
			wantWarning: "Discarding unreadable local cart",
		},
		{
			name: "invalid entries are skipped",
			payload: `[
				{"product_id":"` + valid.String() + `","quantity":2},
				{"product_id":"00000000-0000-0000-0000-000000000000","quantity":1},
				{"product_id":"` + uuid.NewString() + `","quantity":0},
				{"product_id":"` + valid.String() + `","quantity":5}
			]`,
			wantLines:   1,
			wantWarning: "Skipped invalid local cart entries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			defer store.Close()
			core, recorded := observer.New(zap.WarnLevel)
			local := NewLocalCartCacheProvider(store, "k:", 0, zap.New(core)).For("d")

			require.NoError(t, store.Set(ctx, "k:d", []byte(tt.payload), 0))

			c, err := local.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLines, c.Len())
			assert.Equal(t, 1, recorded.FilterMessage(tt.wantWarning).Len())
		})
	}

	t.Run("first entry wins over a duplicate", func(t *testing.T) {
		c, dropped, err := DecodeCart([]byte(`[
			{"product_id":"` + valid.String() + `","quantity":2},
			{"product_id":"` + valid.String() + `","quantity":5}
		]`))
		require.NoError(t, err)
		assert.Equal(t, 1, dropped)
		assert.Equal(t, 2, c.Quantity(valid))
	})
}

func TestLocalCartCache_StorageFailure(t *testing.T) {
	storageErr := errors.New("disk unavailable")
	local := NewLocalCartCacheProvider(failingStore{err: storageErr}, "k:", 0, nil).For("d")
	ctx := context.Background()

	_, err := local.Load(ctx)
	assert.ErrorIs(t, err, storageErr)

	c := cart.NewCart()
	require.NoError(t, c.Set(cart.Line{ProductID: uuid.New(), Quantity: 1}))
	assert.ErrorIs(t, local.Save(ctx, c), storageErr)
	assert.ErrorIs(t, local.Clear(ctx), storageErr)
}

func TestLocalCartCache_TTL(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	local := NewLocalCartCacheProvider(store, "k:", 10*time.Millisecond, nil).For("d")
	ctx := context.Background()

	c := cart.NewCart()
	require.NoError(t, c.Set(cart.Line{ProductID: uuid.New(), Quantity: 1}))
	require.NoError(t, local.Save(ctx, c))

	time.Sleep(20 * time.Millisecond)

	loaded, err := local.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty(), "expired guest carts load empty")
}
