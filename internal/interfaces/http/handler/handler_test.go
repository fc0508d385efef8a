package handler

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	cartapp "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/tests/testutil"
	"github.com/stretchr/testify/require"
)

// apiFixture serves the cart routes over a SQLite-backed session registry
type apiFixture struct {
	env    *testutil.Env
	jwt    *auth.JWTService
	router *gin.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	env := testutil.NewEnv(t)
	jwt := auth.NewJWTService(config.JWTConfig{
		Secret:                "handler-test-secret-0123456789abcdef",
		Issuer:                "storefront-test",
		AccessTokenExpiration: time.Hour,
	})
	revocations := cache.NewMemoryStore()
	t.Cleanup(func() { _ = revocations.Close() })
	resolver := auth.NewIdentityResolver(jwt, auth.NewRevocationList(revocations))

	middleware.SetupValidator()
	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1", middleware.CartSession(middleware.DefaultDeviceHeader, env.Registry, resolver))

	carts := NewCartHandler()
	api.GET("/cart", carts.Get)
	api.DELETE("/cart", carts.Clear)
	api.POST("/cart/items", carts.AddItem)
	api.PUT("/cart/items/:product_id", carts.UpdateQuantity)
	api.DELETE("/cart/items/:product_id", carts.RemoveItem)
	api.POST("/session/sign-out", NewSessionHandler(resolver).SignOut)

	return &apiFixture{env: env, jwt: jwt, router: r}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.DoJSON(t, f.router, method, path, body, headers)
}

// snapshot asserts a successful response and returns its cart
func snapshot(t *testing.T, w *httptest.ResponseRecorder) cartapp.Snapshot {
	t.Helper()
	testutil.AssertSuccess(t, w)
	return testutil.Decode[cartapp.Snapshot](t, w).Data
}

func device(id string) map[string]string {
	return map[string]string{middleware.DefaultDeviceHeader: id}
}

// signedIn returns the headers of deviceID's requests bearing a fresh token for a new user
func (f *apiFixture) signedIn(t *testing.T, deviceID string) (map[string]string, string) {
	t.Helper()
	token, _, err := f.jwt.GenerateAccessToken(newUserID(), "")
	require.NoError(t, err)
	return map[string]string{
		middleware.DefaultDeviceHeader: deviceID,
		"Authorization":                "Bearer " + token,
	}, token
}
