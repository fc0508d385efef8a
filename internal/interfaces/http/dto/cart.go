package dto

import "time"

// AddItemRequest adds one unit of a product to the cart
type AddItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
}

// UpdateQuantityRequest sets a line's quantity. Zero removes the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,gte=0,lte=10000"`
}

// ProductIDParam is the :product_id path parameter
type ProductIDParam struct {
	ProductID string `uri:"product_id" binding:"required,uuid"`
}

// HealthResponse reports service liveness
type HealthResponse struct {
	Status   string    `json:"status"`
	Time     time.Time `json:"time"`
	Database string    `json:"database"`
	Sessions int       `json:"sessions"`
}
