package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// CartHandler serves the device's cart. Every successful call returns the cart snapshot.
type CartHandler struct {
	BaseHandler
}

// NewCartHandler creates a new CartHandler
func NewCartHandler() *CartHandler {
	return &CartHandler{}
}

// Get godoc
// @Summary      Get the cart
// @Tags         cart
// @Produce      json
// @Param        X-Device-ID header string true "Device ID"
// @Success      200 {object} dto.Response{data=cartapp.Snapshot}
// @Router       /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	h.Success(c, session.Store.Snapshot(c.Request.Context()))
}

// AddItem godoc
// @Summary      Add one unit of a product
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body dto.AddItemRequest true "Product to add"
// @Success      200 {object} dto.Response{data=cartapp.Snapshot}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := session.Store.Add(ctx, uuid.MustParse(req.ProductID)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session.Store.Snapshot(ctx))
}

// UpdateQuantity godoc
// @Summary      Set a line's quantity
// @Description  The quantity is clamped to available stock; zero removes the line
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        product_id path string true "Product ID"
// @Param        request body dto.UpdateQuantityRequest true "New quantity"
// @Success      200 {object} dto.Response{data=cartapp.Snapshot}
// @Router       /cart/items/{product_id} [put]
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	productID, ok := h.productID(c)
	if !ok {
		return
	}
	var req dto.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := session.Store.UpdateQuantity(ctx, productID, *req.Quantity); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session.Store.Snapshot(ctx))
}

// RemoveItem godoc
// @Summary      Remove a line
// @Tags         cart
// @Produce      json
// @Param        product_id path string true "Product ID"
// @Success      200 {object} dto.Response{data=cartapp.Snapshot}
// @Router       /cart/items/{product_id} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := h.productID(c)
	if !ok {
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := session.Store.Remove(ctx, productID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session.Store.Snapshot(ctx))
}

// Clear godoc
// @Summary      Empty the cart
// @Description  Called by the order flow once the order is durably recorded
// @Tags         cart
// @Produce      json
// @Success      200 {object} dto.Response{data=cartapp.Snapshot}
// @Router       /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := session.Store.Clear(ctx); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session.Store.Snapshot(ctx))
}

func (h *CartHandler) productID(c *gin.Context) (uuid.UUID, bool) {
	var param dto.ProductIDParam
	if err := c.ShouldBindUri(&param); err != nil {
		middleware.HandleBindError(c, err)
		return uuid.Nil, false
	}
	return uuid.MustParse(param.ProductID), true
}
