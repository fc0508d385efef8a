package cache

import (
	"context"
	"time"
)

// KeyValueStore is the durable byte store behind device-scoped caches.
// A missing or expired key is reported through found=false, never as an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set stores value under key. A zero ttl keeps the entry until it is deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
