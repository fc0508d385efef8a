package models

import (
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
)

// ProductModel is the persistence model for the catalog Product.
type ProductModel struct {
	BaseModel
	Name        string          `gorm:"type:varchar(200);not null"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Image       string          `gorm:"type:varchar(500)"`
	Category    string          `gorm:"type:varchar(100);index"`
	Rating      decimal.Decimal `gorm:"type:decimal(3,2);not null;default:0"`
	Stock       int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:  m.BaseModel.ToDomain(),
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		Image:       m.Image,
		Category:    m.Category,
		Rating:      m.Rating,
		Stock:       m.Stock,
	}
}

// FromDomain populates the persistence model from a domain Product.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Name = p.Name
	m.Description = p.Description
	m.Price = p.Price
	m.Image = p.Image
	m.Category = p.Category
	m.Rating = p.Rating
	m.Stock = p.Stock
}

// ProductModelFromDomain creates a new persistence model from a domain Product.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
