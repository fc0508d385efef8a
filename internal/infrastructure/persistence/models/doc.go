// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
// - base.go: BaseModel shared by every table
// - catalog.go: products (read by the cart, written by catalog seeding)
// - cart.go: cart headers and cart_item rows of authenticated users
package models
