// Package testutil provides shared fixtures for the cart backend tests.
// It wires a session registry to an in-memory SQLite catalog and remote cart
// so HTTP-level tests exercise the real stores.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	cartapp "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// NewSQLiteDB opens an in-memory SQLite database with the cart schema migrated.
// The pool is pinned to one connection since each connection would see its own database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open SQLite database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, persistence.AutoMigrate(db), "Failed to migrate cart schema")
	return db
}

// SeedProduct inserts a catalog product and returns it
func SeedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *catalog.Product {
	t.Helper()

	p, err := catalog.NewProduct(name, decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormProductRepository(db).Save(context.Background(), p))
	return p
}

// Env is a session registry wired to SQLite-backed catalog and remote cart stores
type Env struct {
	DB       *gorm.DB
	Products *persistence.GormProductRepository
	Remote   *persistence.GormRemoteCartStore
	Cache    *cache.MemoryStore
	Bus      *event.InMemoryEventBus
	Registry *cartapp.SessionRegistry
}

// NewEnv builds an Env. Every resource is released on test cleanup.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	db := NewSQLiteDB(t)
	env := &Env{
		DB:       db,
		Products: persistence.NewGormProductRepository(db),
		Remote:   persistence.NewGormRemoteCartStore(db),
		Cache:    cache.NewMemoryStore(),
		Bus:      event.NewInMemoryEventBus(nil),
	}
	provider := cache.NewLocalCartCacheProvider(env.Cache, "cart:", time.Hour, nil)

	env.Registry = cartapp.NewSessionRegistry(cartapp.SessionDeps{
		Catalog:         env.Products,
		Remote:          env.Remote,
		LocalCache:      provider.For,
		NewIdentityFeed: cartapp.NewIdentityFeed,
		Publisher:       env.Bus,
	}, cartapp.SessionRegistryConfig{})

	t.Cleanup(func() {
		_ = env.Registry.Close()
		_ = env.Bus.Stop(context.Background())
		_ = provider.Close()
	})
	return env
}

// SeedProduct inserts a catalog product into the env's database
func (e *Env) SeedProduct(t *testing.T, name, price string, stock int) *catalog.Product {
	t.Helper()
	return SeedProduct(t, e.DB, name, price, stock)
}
