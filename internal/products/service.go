package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/novatra-store/novatra-backend/pkg/db/models"
	"github.com/novatra-store/novatra-backend/pkg/enums"
	pkgerrors "github.com/novatra-store/novatra-backend/pkg/errors"
	"github.com/novatra-store/novatra-backend/pkg/logger"
	"github.com/novatra-store/novatra-backend/pkg/pagination"
)

// Actor identifies who is performing a catalog mutation.
type Actor struct {
	AccountID uuid.UUID
	Role      enums.Role
}

// Service exposes catalog read and merchant management operations.
type Service interface {
	List(ctx context.Context, filter ListFilter, params pagination.Params) (*pagination.Page[ProductDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Create(ctx context.Context, actor Actor, input CreateInput) (*ProductDTO, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateInput) (*ProductDTO, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	AddReview(ctx context.Context, actor Actor, authorName string, productID uuid.UUID, input ReviewInput) (*ProductDTO, error)
}

// CreateInput holds the validated payload to create a product.
type CreateInput struct {
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Stock       int
	ImageURL    string
}

// UpdateInput holds optional mutation values for a product.
type UpdateInput struct {
	Name        *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
	Stock       *int
	ImageURL    *string
}

// ReviewInput holds a new customer review.
type ReviewInput struct {
	Rating  int
	Comment string
}

type merchantApprovalChecker interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type service struct {
	repo     *Repository
	accounts merchantApprovalChecker
	logg     *logger.Logger
}

// NewService constructs the products service.
func NewService(repo *Repository, accounts merchantApprovalChecker, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, accounts: accounts, logg: logg}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (*pagination.Page[ProductDTO], error) {
	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}

	items := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		items = append(items, toProductDTO(&rows[i]))
	}
	page := pagination.NewPage(items, params, total)
	return &page, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByIDWithReviews(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	dto := toProductDTO(product)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateInput) (*ProductDTO, error) {
	if err := s.authorizeMerchant(ctx, actor); err != nil {
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Category = strings.TrimSpace(input.Category)
	if input.Name == "" || input.Category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and category are required")
	}
	if input.Price.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	product := &models.Product{
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		Stock:       input.Stock,
		ImageURL:    input.ImageURL,
	}
	if !actor.Role.IsAdmin() {
		merchantID := actor.AccountID
		product.MerchantID = &merchantID
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}

	s.logg.Info(s.logg.WithField(ctx, "product_id", created.ID.String()), "product created")
	dto := toProductDTO(created)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateInput) (*ProductDTO, error) {
	product, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
		}
		product.Category = category
	}
	if input.Price != nil {
		if input.Price.LessThanOrEqual(decimal.Zero) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		product.Price = *input.Price
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		product.Stock = *input.Stock
	}
	if input.ImageURL != nil {
		product.ImageURL = *input.ImageURL
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving product")
	}
	dto := toProductDTO(updated)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.loadOwned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting product")
	}
	return nil
}

func (s *service) AddReview(ctx context.Context, actor Actor, authorName string, productID uuid.UUID, input ReviewInput) (*ProductDTO, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}

	already, err := s.repo.HasReviewBy(ctx, productID, actor.AccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking review")
	}
	if already {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed")
	}

	review := &models.ProductReview{
		ProductID: productID,
		AccountID: actor.AccountID,
		Author:    authorName,
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
	}
	if _, err := s.repo.CreateReview(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating review")
	}

	agg, err := s.repo.AggregateReviews(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregating reviews")
	}
	product.NumReviews = int(agg.Count)
	product.Rating = decimal.NewFromFloat(agg.Rating).Round(2)

	if _, err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving product rating")
	}

	return s.Get(ctx, productID)
}

// authorizeMerchant lets admins through and requires approval for merchants.
func (s *service) authorizeMerchant(ctx context.Context, actor Actor) error {
	if actor.Role.IsAdmin() {
		return nil
	}
	if !actor.Role.IsMerchant() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "merchant role required")
	}

	account, err := s.accounts.FindByID(ctx, actor.AccountID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading merchant account")
	}
	if !account.IsApproved {
		return pkgerrors.New(pkgerrors.CodeNotApproved, "merchant account pending approval")
	}
	return nil
}

// loadOwned loads the product and enforces ownership. Admins bypass the check.
func (s *service) loadOwned(ctx context.Context, actor Actor, id uuid.UUID) (*models.Product, error) {
	if err := s.authorizeMerchant(ctx, actor); err != nil {
		return nil, err
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}

	if actor.Role.IsAdmin() {
		return product, nil
	}
	if product.MerchantID == nil || *product.MerchantID != actor.AccountID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another merchant")
	}
	return product, nil
}
