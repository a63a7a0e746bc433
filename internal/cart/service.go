package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/novatra-store/novatra-backend/pkg/db/models"
	pkgerrors "github.com/novatra-store/novatra-backend/pkg/errors"
	"github.com/novatra-store/novatra-backend/pkg/logger"
)

// Service exposes cart and wishlist operations for a customer account.
type Service interface {
	GetCart(ctx context.Context, accountID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, accountID, productID uuid.UUID, quantity int) (*CartDTO, error)
	UpdateItemQuantity(ctx context.Context, accountID, productID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, accountID, productID uuid.UUID) (*CartDTO, error)
	ClearCart(ctx context.Context, accountID uuid.UUID) error
	GetWishlist(ctx context.Context, accountID uuid.UUID) ([]WishlistItemDTO, error)
	AddWishlistItem(ctx context.Context, accountID, productID uuid.UUID) error
	RemoveWishlistItem(ctx context.Context, accountID, productID uuid.UUID) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     *Repository
	products productLoader
	logg     *logger.Logger
}

// NewService constructs the cart service.
func NewService(repo *Repository, products productLoader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, products: products, logg: logg}, nil
}

func (s *service) GetCart(ctx context.Context, accountID uuid.UUID) (*CartDTO, error) {
	items, err := s.repo.ListItems(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	dto := toCartDTO(items)
	return &dto, nil
}

// AddItem puts the product in the cart or bumps the quantity when the line
// already exists.
func (s *service) AddItem(ctx context.Context, accountID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindItem(ctx, accountID, productID)
	switch {
	case err == nil:
		item.Quantity += quantity
	case IsNotFound(err):
		item = &models.CartItem{AccountID: accountID, ProductID: productID, Quantity: quantity}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart line")
	}

	if product.Stock > 0 && item.Quantity > product.Stock {
		item.Quantity = product.Stock
	}

	if _, err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart line")
	}
	return s.GetCart(ctx, accountID)
}

// UpdateItemQuantity sets the line to an absolute quantity. Zero removes it.
func (s *service) UpdateItemQuantity(ctx context.Context, accountID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, accountID, productID)
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindItem(ctx, accountID, productID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart line")
	}

	item.Quantity = quantity
	if product.Stock > 0 && item.Quantity > product.Stock {
		item.Quantity = product.Stock
	}

	if _, err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart line")
	}
	return s.GetCart(ctx, accountID)
}

func (s *service) RemoveItem(ctx context.Context, accountID, productID uuid.UUID) (*CartDTO, error) {
	if err := s.repo.RemoveItem(ctx, accountID, productID); err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart line")
	}
	return s.GetCart(ctx, accountID)
}

func (s *service) ClearCart(ctx context.Context, accountID uuid.UUID) error {
	if err := s.repo.Clear(ctx, accountID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
	}
	return nil
}

func (s *service) GetWishlist(ctx context.Context, accountID uuid.UUID) ([]WishlistItemDTO, error) {
	items, err := s.repo.ListWishlist(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading wishlist")
	}
	return toWishlistDTOs(items), nil
}

// AddWishlistItem saves the product. Adding an already-saved product is a no-op.
func (s *service) AddWishlistItem(ctx context.Context, accountID, productID uuid.UUID) error {
	if _, err := s.loadProduct(ctx, productID); err != nil {
		return err
	}

	exists, err := s.repo.WishlistContains(ctx, accountID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking wishlist")
	}
	if exists {
		return nil
	}

	item := &models.WishlistItem{AccountID: accountID, ProductID: productID}
	if err := s.repo.AddWishlistItem(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving wishlist item")
	}
	return nil
}

func (s *service) RemoveWishlistItem(ctx context.Context, accountID, productID uuid.UUID) error {
	if err := s.repo.RemoveWishlistItem(ctx, accountID, productID); err != nil {
		if IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing wishlist item")
	}
	return nil
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	return product, nil
}
