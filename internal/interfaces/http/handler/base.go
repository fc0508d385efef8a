package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	cartapp "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data, middleware.GetRequestID(c)))
}

// Error sends an error response, deriving the status from the code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.Set(middleware.ErrorCodeKey, code)
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// HandleError converts err to an error response. Domain errors keep their code;
// anything else is reported as INTERNAL_ERROR without leaking its message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	status, code, message := dto.FromError(err)
	if status >= http.StatusInternalServerError {
		logger.L(c.Request.Context()).Error("Request failed",
			zap.String("error_code", code),
			zap.Error(err),
		)
	}
	c.Set(middleware.ErrorCodeKey, code)
	c.JSON(status, dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// session returns the cart session bound by the session middleware.
// Its absence is a wiring error.
func (h *BaseHandler) session(c *gin.Context) (*cartapp.Session, bool) {
	session, ok := middleware.GetSession(c)
	if !ok {
		h.Error(c, dto.ErrCodeInternal, "Cart session is not available")
		return nil, false
	}
	return session, true
}
