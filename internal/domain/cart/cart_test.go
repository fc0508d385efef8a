package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProduct(t *testing.T, price string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("Item", decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	return p
}

func TestCart_Set(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	t.Run("keeps one line per product", func(t *testing.T) {
		c := NewCart()
		require.NoError(t, c.Set(Line{ProductID: a, Quantity: 1}))
		require.NoError(t, c.Set(Line{ProductID: b, Quantity: 1}))
		require.NoError(t, c.Set(Line{ProductID: a, Quantity: 3}))

		assert.Equal(t, 2, c.Len())
		assert.Equal(t, 3, c.Quantity(a))
		assert.Equal(t, []uuid.UUID{a, b}, c.ProductIDs())
	})

	t.Run("rejects non-positive quantities", func(t *testing.T) {
		c := NewCart()
		err := c.Set(Line{ProductID: a, Quantity: 0})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.True(t, c.IsEmpty())
	})

	t.Run("rejects nil product id", func(t *testing.T) {
		err := NewCart().Set(Line{Quantity: 1})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestCart_Remove(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	c := NewCart()
	require.NoError(t, c.Set(Line{ProductID: a, Quantity: 1}))
	require.NoError(t, c.Set(Line{ProductID: b, Quantity: 2}))

	assert.True(t, c.Remove(a))
	assert.False(t, c.Remove(a))
	assert.Equal(t, []uuid.UUID{b}, c.ProductIDs())
	assert.Equal(t, 0, c.Quantity(a))
}

func TestNewCartFromLines(t *testing.T) {
	a := uuid.New()

	_, err := NewCartFromLines([]Line{{ProductID: a, Quantity: 1}, {ProductID: a, Quantity: 2}})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	c, err := NewCartFromLines([]Line{{ProductID: a, Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, 2, c.ItemCount())
}

func TestCart_Total(t *testing.T) {
	pa := newProduct(t, "10.50", 5)
	pb := newProduct(t, "3", 5)
	c := NewCart()
	require.NoError(t, c.Set(Line{ProductID: pa.ID, Quantity: 2, Product: pa}))
	require.NoError(t, c.Set(Line{ProductID: pb.ID, Quantity: 3, Product: pb}))
	require.NoError(t, c.Set(Line{ProductID: uuid.New(), Quantity: 4}))

	assert.True(t, decimal.RequireFromString("30").Equal(c.Total()), c.Total().String())
	assert.Equal(t, 9, c.ItemCount())
}

func TestCart_Clone(t *testing.T) {
	a := uuid.New()
	c := NewCart()
	require.NoError(t, c.Set(Line{ProductID: a, Quantity: 1}))

	clone := c.Clone()
	require.NoError(t, clone.Set(Line{ProductID: a, Quantity: 4}))
	clone.Remove(a)

	assert.Equal(t, 1, c.Quantity(a))
	assert.True(t, clone.IsEmpty())
}

func TestSessionIdentity(t *testing.T) {
	u := uuid.New()

	anon := Anonymous()
	assert.False(t, anon.IsAuthenticated())
	assert.True(t, anon.Equal(SessionIdentity{}))
	assert.Equal(t, "anonymous", anon.String())

	auth := Authenticated(u)
	id, ok := auth.UserID()
	assert.True(t, ok)
	assert.Equal(t, u, id)
	assert.True(t, auth.Equal(Authenticated(u)))
	assert.False(t, auth.Equal(Authenticated(uuid.New())))
	assert.False(t, auth.Equal(anon))
}

func TestLine_Subtotal(t *testing.T) {
	p := newProduct(t, "2.25", 10)
	assert.True(t, decimal.RequireFromString("9").Equal(Line{ProductID: p.ID, Quantity: 4, Product: p}.Subtotal()))
	assert.True(t, Line{ProductID: p.ID, Quantity: 4}.Subtotal().IsZero())
}
