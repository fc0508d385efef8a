package handler

import (
	"net/http"
	"testing"

	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionHandler_SignOut(t *testing.T) {
	f := newAPIFixture(t)
	lamp := f.env.SeedProduct(t, "Lamp", "19.90", 5)
	authed, _ := f.signedIn(t, "device-signout")

	snap := snapshot(t, f.do(t, http.MethodPost, "/api/v1/cart/items", dto.AddItemRequest{ProductID: lamp.ID.String()}, authed))
	require.True(t, snap.Authenticated)
	require.Len(t, snap.Lines, 1)

	snap = snapshot(t, f.do(t, http.MethodPost, "/api/v1/session/sign-out", nil, authed))
	assert.False(t, snap.Authenticated)
	assert.Empty(t, snap.Lines)

	t.Run("the token is revoked", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/cart", nil, authed)
		testutil.AssertError(t, w, http.StatusUnauthorized, dto.ErrCodeUnauthorized)
	})

	t.Run("the anonymous cart starts empty", func(t *testing.T) {
		snap := snapshot(t, f.do(t, http.MethodGet, "/api/v1/cart", nil, device("device-signout")))
		assert.False(t, snap.Authenticated)
		assert.Empty(t, snap.Lines)
	})

	t.Run("the remote cart survives sign-out", func(t *testing.T) {
		var count int64
		require.NoError(t, f.env.DB.Table("cart_item").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestSessionHandler_AnonymousSignOutClearsGuestCart(t *testing.T) {
	f := newAPIFixture(t)
	lamp := f.env.SeedProduct(t, "Lamp", "19.90", 5)
	h := device("device-guest")

	snapshot(t, f.do(t, http.MethodPost, "/api/v1/cart/items", dto.AddItemRequest{ProductID: lamp.ID.String()}, h))
	snap := snapshot(t, f.do(t, http.MethodPost, "/api/v1/session/sign-out", nil, h))
	assert.Empty(t, snap.Lines)

	snap = snapshot(t, f.do(t, http.MethodGet, "/api/v1/cart", nil, h))
	assert.Empty(t, snap.Lines)
	assert.Zero(t, f.env.Cache.Size())
}
