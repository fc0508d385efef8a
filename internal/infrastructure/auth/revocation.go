package auth

import (
	"context"
	"time"

	"github.com/storefront/backend/internal/infrastructure/cache"
)

const revokedKeyPrefix = "token:revoked:"

// RevocationList records access tokens invalidated by an explicit sign-out.
// Entries expire together with the token they revoke.
type RevocationList struct {
	store cache.KeyValueStore
}

// NewRevocationList creates a revocation list over store
func NewRevocationList(store cache.KeyValueStore) *RevocationList {
	return &RevocationList{store: store}
}

// Revoke marks the token id jti as revoked for ttl
func (r *RevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	return r.store.Set(ctx, revokedKeyPrefix+jti, []byte{1}, ttl)
}

// IsRevoked reports whether jti was revoked
func (r *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, found, err := r.store.Get(ctx, revokedKeyPrefix+jti)
	return found, err
}
