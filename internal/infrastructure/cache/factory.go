package cache

import (
	"fmt"

	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StoreFactory creates the key/value store selected by configuration
type StoreFactory struct {
	localConfig           config.LocalCacheConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory store when the
// configured backend cannot be opened. Default is false.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(local config.LocalCacheConfig, redisCfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		localConfig: local,
		redisConfig: redisCfg,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateStore opens the configured backend
func (f *StoreFactory) CreateStore() (KeyValueStore, error) {
	store, err := f.createConfigured()
	if err == nil {
		f.logger.Info("Local cart store ready", zap.String("driver", f.localConfig.Driver))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, err
	}

	f.logger.Warn("Local cart store unavailable, falling back to in-memory store. "+
		"Anonymous carts will not survive a restart.",
		zap.String("driver", f.localConfig.Driver),
		zap.Error(err),
	)
	return NewMemoryStore(), nil
}

// CreateProvider opens the configured backend and wraps it in a LocalCartCacheProvider
func (f *StoreFactory) CreateProvider() (*LocalCartCacheProvider, error) {
	store, err := f.CreateStore()
	if err != nil {
		return nil, err
	}
	return NewLocalCartCacheProvider(store, f.localConfig.KeyPrefix, f.localConfig.TTL, f.logger), nil
}

func (f *StoreFactory) createConfigured() (KeyValueStore, error) {
	switch f.localConfig.Driver {
	case config.LocalCacheDriverSQLite, "":
		store, err := NewSQLiteStore(f.localConfig.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite local cart store: %w", err)
		}
		return store, nil
	case config.LocalCacheDriverRedis:
		store, err := NewRedisStore(RedisConfig{
			Addr:     f.redisConfig.Addr(),
			Password: f.redisConfig.Password,
			DB:       f.redisConfig.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis local cart store: %w", err)
		}
		return store, nil
	case config.LocalCacheDriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown local cache driver %q", f.localConfig.Driver)
	}
}
