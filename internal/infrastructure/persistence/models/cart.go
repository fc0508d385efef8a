package models

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
)

// CartModel is the cart header. Each user owns at most one.
type CartModel struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_user"`
}

// TableName returns the table name for GORM
func (CartModel) TableName() string {
	return "cart"
}

// CartItemModel is one product row of a cart.
type CartItemModel struct {
	BaseModel
	CartID    uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_cart_product,priority:1"`
	ProductID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_cart_product,priority:2"`
	Quantity  int           `gorm:"not null;check:quantity > 0"`
	Product   *ProductModel `gorm:"foreignKey:ProductID;references:ID"`
}

// TableName returns the table name for GORM
func (CartItemModel) TableName() string {
	return "cart_item"
}

// ToLine converts the row to a cart line, attaching the joined product when loaded
func (m *CartItemModel) ToLine() cart.Line {
	rowID := m.ID
	line := cart.Line{
		ProductID:   m.ProductID,
		Quantity:    m.Quantity,
		RemoteRowID: &rowID,
	}
	if m.Product != nil {
		line.Product = m.Product.ToDomain()
	}
	return line
}
