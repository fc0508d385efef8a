package auth

import (
	"context"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
)

// IdentityResolver turns an Authorization header into a session identity
type IdentityResolver struct {
	jwt         *JWTService
	revocations *RevocationList
}

// NewIdentityResolver creates a resolver. revocations may be nil.
func NewIdentityResolver(jwtService *JWTService, revocations *RevocationList) *IdentityResolver {
	return &IdentityResolver{jwt: jwtService, revocations: revocations}
}

// Resolve returns Anonymous for an empty header and Authenticated for a valid
// bearer token. Any other header is rejected. A revocation lookup failure is
// reported as LOCAL_CACHE_UNAVAILABLE rather than as an invalid token.
func (r *IdentityResolver) Resolve(ctx context.Context, header string) (cart.SessionIdentity, *Claims, error) {
	token, err := ExtractBearerToken(header)
	if err != nil {
		return cart.Anonymous(), nil, err
	}
	if token == "" {
		return cart.Anonymous(), nil, nil
	}

	claims, err := r.jwt.ValidateAccessToken(token)
	if err != nil {
		return cart.Anonymous(), nil, err
	}

	if r.revocations != nil {
		revoked, err := r.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return cart.Anonymous(), nil, shared.ErrLocalCacheUnavailable.Wrap(err)
		}
		if revoked {
			return cart.Anonymous(), nil, ErrTokenRevoked
		}
	}

	identity, err := claims.SessionIdentity()
	if err != nil {
		return cart.Anonymous(), nil, err
	}
	return identity, claims, nil
}

// Revoke invalidates the token described by claims until it expires
func (r *IdentityResolver) Revoke(ctx context.Context, claims *Claims) error {
	if r.revocations == nil || claims == nil {
		return nil
	}
	if err := r.revocations.Revoke(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
		return shared.ErrLocalCacheUnavailable.Wrap(err)
	}
	return nil
}
