package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func text(body string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, body)
	}
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "/api/v1", r.BasePath())
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	engine.GET("/health", text("ok"))

	tagged := func(c *gin.Context) {
		c.Header("X-API", "1")
		c.Next()
	}
	r := NewRouter(engine, WithAPIMiddleware(tagged))
	r.Register(
		NewDomainGroup("a", "/a").GET("/ping", text("pong-a")),
		NewDomainGroup("b", "/b").GET("/ping", text("pong-b")),
	)
	r.Setup()

	w := serve(engine, http.MethodGet, "/api/v1/a/ping")
	assert.Equal(t, "pong-a", w.Body.String())
	assert.Equal(t, "1", w.Header().Get("X-API"))

	w = serve(engine, http.MethodGet, "/api/v1/b/ping")
	assert.Equal(t, "pong-b", w.Body.String())

	w = serve(engine, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-API"), "API middleware must not wrap engine routes")
}

func TestDomainGroup(t *testing.T) {
	t.Run("registers every method", func(t *testing.T) {
		g := NewDomainGroup("items", "/items").
			GET("", text("list")).
			POST("", text("create")).
			PUT("/:id", text("update")).
			DELETE("/:id", text("delete"))

		engine := gin.New()
		g.RegisterRoutes(engine.Group("/api/v1"))

		tests := []struct {
			method string
			path   string
			body   string
		}{
			{http.MethodGet, "/api/v1/items", "list"},
			{http.MethodPost, "/api/v1/items", "create"},
			{http.MethodPut, "/api/v1/items/1", "update"},
			{http.MethodDelete, "/api/v1/items/1", "delete"},
		}
		for _, tt := range tests {
			w := serve(engine, tt.method, tt.path)
			assert.Equal(t, http.StatusOK, w.Code, "%s %s", tt.method, tt.path)
			assert.Equal(t, tt.body, w.Body.String())
		}
	})

	t.Run("group middleware aborts", func(t *testing.T) {
		g := NewDomainGroup("guarded", "/guarded").
			Use(func(c *gin.Context) { c.AbortWithStatus(http.StatusForbidden) }).
			GET("/x", text("x"))

		engine := gin.New()
		g.RegisterRoutes(engine.Group(""))

		assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodGet, "/guarded/x").Code)
	})

	t.Run("subgroups nest prefixes", func(t *testing.T) {
		g := NewDomainGroup("parent", "/parent")
		g.Group("child", "/child").GET("/leaf", text("leaf"))

		engine := gin.New()
		g.RegisterRoutes(engine.Group("/api"))

		w := serve(engine, http.MethodGet, "/api/parent/child/leaf")
		assert.Equal(t, "leaf", w.Body.String())
	})

	t.Run("lists routes", func(t *testing.T) {
		g := NewDomainGroup("parent", "/parent").GET("", text(""))
		g.Group("child", "/child").DELETE("/:id", text(""))

		routes := g.Routes("/api/v1")
		require.Len(t, routes, 2)
		assert.Equal(t, RouteInfo{Group: "parent", Method: http.MethodGet, Path: "/api/v1/parent"}, routes[0])
		assert.Equal(t, RouteInfo{Group: "child", Method: http.MethodDelete, Path: "/api/v1/parent/child/:id"}, routes[1])
		assert.Equal(t, "parent", g.Name())
		assert.Equal(t, "/parent", g.Prefix())
	})
}
