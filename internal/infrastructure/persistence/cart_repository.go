package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRemoteCartStore implements cart.RemoteCartStore over the cart and cart_item tables.
// Errors are returned as the driver reports them; the cart store classifies them.
type GormRemoteCartStore struct {
	db *gorm.DB
}

// NewGormRemoteCartStore creates a new GormRemoteCartStore
func NewGormRemoteCartStore(db *gorm.DB) *GormRemoteCartStore {
	return &GormRemoteCartStore{db: db}
}

var _ cart.RemoteCartStore = (*GormRemoteCartStore)(nil)

// EnsureCart returns the user's cart id, creating the header on first use.
// A concurrent creator wins through the unique user_id index and its row is returned.
func (r *GormRemoteCartStore) EnsureCart(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	if header, found, err := r.findCart(ctx, userID); err != nil || found {
		return header.ID, err
	}

	header := models.CartModel{UserID: userID}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&header)
	if result.Error != nil {
		return uuid.Nil, result.Error
	}
	if result.RowsAffected == 1 {
		return header.ID, nil
	}

	existing, found, err := r.findCart(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	if !found {
		return uuid.Nil, fmt.Errorf("cart header for user %s missing after conflicting insert", userID)
	}
	return existing.ID, nil
}

func (r *GormRemoteCartStore) findCart(ctx context.Context, userID uuid.UUID) (models.CartModel, bool, error) {
	var header models.CartModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&header).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.CartModel{}, false, nil
	}
	if err != nil {
		return models.CartModel{}, false, err
	}
	return header, true, nil
}

// ListItems returns the cart's rows joined with their products, oldest first.
// The inner join drops rows whose product has been deleted.
func (r *GormRemoteCartStore) ListItems(ctx context.Context, cartID uuid.UUID) ([]cart.Line, error) {
	var rows []models.CartItemModel
	err := r.db.WithContext(ctx).
		InnerJoins("Product").
		Where("cart_item.cart_id = ?", cartID).
		Order("cart_item.created_at ASC, cart_item.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	lines := make([]cart.Line, 0, len(rows))
	for i := range rows {
		lines = append(lines, rows[i].ToLine())
	}
	return lines, nil
}

// FindItem returns the row for productID without its product
func (r *GormRemoteCartStore) FindItem(ctx context.Context, cartID, productID uuid.UUID) (cart.Line, bool, error) {
	item, found, err := r.findItem(ctx, cartID, productID)
	if err != nil || !found {
		return cart.Line{}, false, err
	}
	return item.ToLine(), true, nil
}

func (r *GormRemoteCartStore) findItem(ctx context.Context, cartID, productID uuid.UUID) (models.CartItemModel, bool, error) {
	var item models.CartItemModel
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.CartItemModel{}, false, nil
	}
	if err != nil {
		return models.CartItemModel{}, false, err
	}
	return item, true, nil
}

// UpsertItem sets the quantity of the (cartID, productID) row, inserting it when absent.
// Returns the row id.
func (r *GormRemoteCartStore) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (uuid.UUID, error) {
	if quantity < 1 {
		return uuid.Nil, shared.ErrInvalidInput.WithMessage("Cart item quantity must be positive")
	}

	item, found, err := r.findItem(ctx, cartID, productID)
	if err != nil {
		return uuid.Nil, err
	}
	if found {
		err := r.db.WithContext(ctx).
			Model(&models.CartItemModel{}).
			Where("id = ?", item.ID).
			Updates(map[string]any{"quantity": quantity, "updated_at": time.Now()}).Error
		if err != nil {
			return uuid.Nil, err
		}
		return item.ID, nil
	}

	item = models.CartItemModel{CartID: cartID, ProductID: productID, Quantity: quantity}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(&item)
	if result.Error != nil {
		return uuid.Nil, result.Error
	}

	// A concurrent insert may have won the conflict; report the surviving row.
	stored, found, err := r.findItem(ctx, cartID, productID)
	if err != nil {
		return uuid.Nil, err
	}
	if !found {
		return item.ID, nil
	}
	return stored.ID, nil
}

// DeleteItem removes the row for productID; a missing row is not an error
func (r *GormRemoteCartStore) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItemModel{}).Error
}

// ClearItems removes every row of the cart
func (r *GormRemoteCartStore) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItemModel{}).Error
}
