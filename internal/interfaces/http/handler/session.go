package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// TokenRevoker invalidates an access token before it expires
type TokenRevoker interface {
	Revoke(ctx context.Context, claims *auth.Claims) error
}

// SessionHandler handles session lifecycle endpoints
type SessionHandler struct {
	BaseHandler
	revoker TokenRevoker
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(revoker TokenRevoker) *SessionHandler {
	return &SessionHandler{revoker: revoker}
}

// SignOut godoc
// @Summary      Sign the device out
// @Description  Resets the cart to an empty anonymous cart, clears the device cache and revokes the presented token
// @Tags         session
// @Produce      json
// @Success      200 {object} dto.Response{data=cartapp.Snapshot}
// @Router       /session/sign-out [post]
func (h *SessionHandler) SignOut(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := session.Store.Engine().SignOut(ctx); err != nil {
		h.HandleError(c, err)
		return
	}
	if claims := middleware.GetClaims(c); claims != nil {
		if err := h.revoker.Revoke(ctx, claims); err != nil {
			h.HandleError(c, err)
			return
		}
		logger.L(ctx).Info("Access token revoked", zap.String("jti", claims.ID))
	}
	h.Success(c, session.Store.Snapshot(ctx))
}
