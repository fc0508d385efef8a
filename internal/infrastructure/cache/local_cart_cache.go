package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"go.uber.org/zap"
)

// storedLine is the persisted form of one anonymous cart line
type storedLine struct {
	ProductID uuid.UUID      `json:"product_id"`
	Quantity  int            `json:"quantity"`
	Product   *storedProduct `json:"product,omitempty"`
}

// storedProduct is the catalog snapshot carried with a stored line
type storedProduct struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Category    string          `json:"category,omitempty"`
	Rating      decimal.Decimal `json:"rating"`
	Stock       int             `json:"stock"`
}

func storedProductFrom(p *catalog.Product) *storedProduct {
	if p == nil {
		return nil
	}
	return &storedProduct{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Category:    p.Category,
		Rating:      p.Rating,
		Stock:       p.Stock,
	}
}

func (sp *storedProduct) toDomain() *catalog.Product {
	if sp == nil {
		return nil
	}
	p := &catalog.Product{
		Name:        sp.Name,
		Description: sp.Description,
		Price:       sp.Price,
		Image:       sp.Image,
		Category:    sp.Category,
		Rating:      sp.Rating,
		Stock:       sp.Stock,
	}
	p.ID = sp.ID
	return p
}

// EncodeCart serializes a cart into the local cache format.
// Remote row ids are not persisted; the local cart only ever holds guest lines.
func EncodeCart(c *cart.Cart) ([]byte, error) {
	lines := c.Lines()
	stored := make([]storedLine, 0, len(lines))
	for _, l := range lines {
		stored = append(stored, storedLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Product:   storedProductFrom(l.Product),
		})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart: %w", err)
	}
	return data, nil
}

// DecodeCart parses the local cache format. Malformed documents are an error;
// individual entries without a product id, with a non-positive quantity, or
// repeating an earlier product are skipped and counted in dropped.
func DecodeCart(data []byte) (c *cart.Cart, dropped int, err error) {
	var stored []storedLine
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, 0, fmt.Errorf("failed to decode cart: %w", err)
	}

	c = cart.NewCart()
	for _, sl := range stored {
		if sl.ProductID == uuid.Nil || sl.Quantity < 1 {
			dropped++
			continue
		}
		if _, exists := c.Line(sl.ProductID); exists {
			dropped++
			continue
		}
		line := cart.Line{ProductID: sl.ProductID, Quantity: sl.Quantity, Product: sl.Product.toDomain()}
		if err := c.Set(line); err != nil {
			dropped++
		}
	}
	return c, dropped, nil
}

// LocalCartCache stores one device's anonymous cart in a KeyValueStore
type LocalCartCache struct {
	store  KeyValueStore
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// Load returns the stored cart. Absent or unreadable content yields an empty cart;
// only a storage failure is returned as an error.
func (l *LocalCartCache) Load(ctx context.Context) (*cart.Cart, error) {
	data, found, err := l.store.Get(ctx, l.key)
	if err != nil {
		return nil, err
	}
	if !found || len(data) == 0 {
		return cart.NewCart(), nil
	}

	c, dropped, err := DecodeCart(data)
	if err != nil {
		l.logger.Warn("Discarding unreadable local cart",
			zap.String("key", l.key),
			zap.Error(err),
		)
		return cart.NewCart(), nil
	}
	if dropped > 0 {
		l.logger.Warn("Skipped invalid local cart entries",
			zap.String("key", l.key),
			zap.Int("dropped", dropped),
		)
	}
	return c, nil
}

// Save replaces the stored cart. An empty cart removes the entry.
func (l *LocalCartCache) Save(ctx context.Context, c *cart.Cart) error {
	if c == nil || c.IsEmpty() {
		return l.store.Delete(ctx, l.key)
	}
	data, err := EncodeCart(c)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, l.key, data, l.ttl)
}

// Clear removes the stored cart
func (l *LocalCartCache) Clear(ctx context.Context) error {
	return l.store.Delete(ctx, l.key)
}

var _ cart.LocalCartCache = (*LocalCartCache)(nil)

// LocalCartCacheProvider hands out per-device caches over a shared store
type LocalCartCacheProvider struct {
	store     KeyValueStore
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewLocalCartCacheProvider creates a provider. Keys are keyPrefix followed by the device id.
func NewLocalCartCacheProvider(store KeyValueStore, keyPrefix string, ttl time.Duration, logger *zap.Logger) *LocalCartCacheProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalCartCacheProvider{
		store:     store,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

// For returns the cache for deviceID
func (p *LocalCartCacheProvider) For(deviceID string) cart.LocalCartCache {
	return &LocalCartCache{
		store:  p.store,
		key:    p.keyPrefix + deviceID,
		ttl:    p.ttl,
		logger: p.logger.With(zap.String("device_id", deviceID)),
	}
}

// Close closes the underlying store
func (p *LocalCartCacheProvider) Close() error {
	return p.store.Close()
}
