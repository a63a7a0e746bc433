package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/novatra-store/novatra-backend/pkg/db/models"
)

// Repository wires cart and wishlist persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListItems loads the account's cart with products preloaded, oldest first.
func (r *Repository) ListItems(ctx context.Context, accountID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindItem loads one cart line by account and product.
func (r *Repository) FindItem(ctx context.Context, accountID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		First(&item, "account_id = ? AND product_id = ?", accountID, productID).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SaveItem inserts or updates a cart line.
func (r *Repository) SaveItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem deletes one cart line by account and product.
func (r *Repository) RemoveItem(ctx context.Context, accountID, productID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Delete(&models.CartItem{}, "account_id = ? AND product_id = ?", accountID, productID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Clear removes every cart line for the account.
func (r *Repository) Clear(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.CartItem{}, "account_id = ?", accountID).Error
}

// ListWishlist loads the account's wishlist with products preloaded.
func (r *Repository) ListWishlist(ctx context.Context, accountID uuid.UUID) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// WishlistContains reports whether the product is already saved.
func (r *Repository) WishlistContains(ctx context.Context, accountID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WishlistItem{}).
		Where("account_id = ? AND product_id = ?", accountID, productID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddWishlistItem inserts a wishlist row.
func (r *Repository) AddWishlistItem(ctx context.Context, item *models.WishlistItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// RemoveWishlistItem deletes a wishlist row by account and product.
func (r *Repository) RemoveWishlistItem(ctx context.Context, accountID, productID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Delete(&models.WishlistItem{}, "account_id = ? AND product_id = ?", accountID, productID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsNotFound reports whether the error is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
