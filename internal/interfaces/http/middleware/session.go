package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	cartapp "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	// SessionKey is the gin context key for the device's cart session
	SessionKey = "cart_session"
	// ClaimsKey is the gin context key for validated token claims
	ClaimsKey = "auth_claims"

	// DefaultDeviceHeader names the header carrying the device id
	DefaultDeviceHeader = "X-Device-ID"
)

// IdentityResolver resolves the Authorization header of a request
type IdentityResolver interface {
	Resolve(ctx context.Context, header string) (cart.SessionIdentity, *auth.Claims, error)
}

// SessionProvider returns the cart session of a device
type SessionProvider interface {
	Get(ctx context.Context, deviceID string) (*cartapp.Session, error)
}

// CartSession binds the request to its device's cart session. It resolves the
// caller's identity and delivers it to the session before the handler runs, so
// sign-in reconciliation completes before the cart is read or mutated.
func CartSession(deviceHeader string, sessions SessionProvider, resolver IdentityResolver) gin.HandlerFunc {
	if deviceHeader == "" {
		deviceHeader = DefaultDeviceHeader
	}

	return func(c *gin.Context) {
		deviceID := strings.TrimSpace(c.GetHeader(deviceHeader))
		if deviceID == "" {
			abortWithCode(c, dto.ErrCodeInvalidInput, "Missing "+deviceHeader+" header")
			return
		}

		ctx := logger.WithDeviceID(c.Request.Context(), deviceID)
		identity, claims, err := resolver.Resolve(ctx, c.GetHeader("Authorization"))
		if err != nil {
			var domainErr *shared.DomainError
			if errors.As(err, &domainErr) {
				logger.L(ctx).Error("Identity resolution failed", zap.Error(err))
				abortWithError(c, err)
				return
			}
			logger.L(ctx).Debug("Rejected access token", zap.Error(err))
			abortWithCode(c, dto.ErrCodeUnauthorized, "Invalid or expired access token")
			return
		}
		if userID, ok := identity.UserID(); ok {
			ctx = logger.WithUserID(ctx, userID.String())
		}
		c.Request = c.Request.WithContext(ctx)
		annotateSpan(c)

		session, err := sessions.Get(ctx, deviceID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if err := session.Identity.Publish(ctx, identity); err != nil {
			logger.L(ctx).Warn("Identity delivery failed", zap.Stringer("identity", identity), zap.Error(err))
			abortWithError(c, err)
			return
		}

		c.Set(SessionKey, session)
		if claims != nil {
			c.Set(ClaimsKey, claims)
		}
		c.Next()
	}
}

// GetSession returns the cart session bound by CartSession
func GetSession(c *gin.Context) (*cartapp.Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*cartapp.Session)
	return session, ok
}

// GetClaims returns the validated token claims, nil for anonymous requests
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
