package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/novatra-store/novatra-backend/internal/accounts"
	"github.com/novatra-store/novatra-backend/internal/notifications"
	"github.com/novatra-store/novatra-backend/internal/orders"
	"github.com/novatra-store/novatra-backend/internal/products"
	"github.com/novatra-store/novatra-backend/pkg/db"
	"github.com/novatra-store/novatra-backend/pkg/enums"
	pkgerrors "github.com/novatra-store/novatra-backend/pkg/errors"
	"github.com/novatra-store/novatra-backend/pkg/logger"
	"github.com/novatra-store/novatra-backend/pkg/pagination"
)

// Service exposes platform administration operations.
type Service interface {
	Analytics(ctx context.Context) (*AnalyticsDTO, error)
	ListCustomers(ctx context.Context, params pagination.Params) (*pagination.Page[AccountSummaryDTO], error)
	ListMerchants(ctx context.Context, params pagination.Params) (*pagination.Page[AccountSummaryDTO], error)
	SetMerchantApproval(ctx context.Context, merchantID uuid.UUID, approved bool) (*AccountSummaryDTO, error)
	DeleteCustomer(ctx context.Context, customerID uuid.UUID) error
	DeleteMerchant(ctx context.Context, merchantID uuid.UUID) error
}

type service struct {
	accountsRepo *accounts.Repository
	productsRepo *products.Repository
	ordersRepo   *orders.Repository
	dbClient     *db.Client
	mailer       notifications.Mailer
	logg         *logger.Logger
	now          func() time.Time
}

// NewService constructs the admin service.
func NewService(
	accountsRepo *accounts.Repository,
	productsRepo *products.Repository,
	ordersRepo *orders.Repository,
	dbClient *db.Client,
	mailer notifications.Mailer,
	logg *logger.Logger,
) (Service, error) {
	if accountsRepo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		accountsRepo: accountsRepo,
		productsRepo: productsRepo,
		ordersRepo:   ordersRepo,
		dbClient:     dbClient,
		mailer:       mailer,
		logg:         logg,
		now:          time.Now,
	}, nil
}

func (s *service) Analytics(ctx context.Context) (*AnalyticsDTO, error) {
	customers, err := s.accountsRepo.CountByRole(ctx, enums.RoleCustomer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting customers")
	}
	merchants, err := s.accountsRepo.CountByRole(ctx, enums.RoleMerchant)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting merchants")
	}
	productCount, err := s.productsRepo.CountAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting products")
	}
	orderCount, err := s.ordersRepo.CountAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting orders")
	}
	sales, err := s.ordersRepo.SumPaidSales(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing sales")
	}
	recent, err := s.ordersRepo.Recent(ctx, 5)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading recent orders")
	}

	dto := &AnalyticsDTO{
		TotalCustomers: customers,
		TotalMerchants: merchants,
		TotalProducts:  productCount,
		TotalOrders:    orderCount,
		TotalPaidSales: sales,
		RecentOrders:   []RecentOrderDTO{},
	}
	for i := range recent {
		order := &recent[i]
		dto.RecentOrders = append(dto.RecentOrders, RecentOrderDTO{
			ID:         order.ID,
			CustomerID: order.CustomerID,
			TotalPrice: order.TotalPrice,
			Status:     order.Status.String(),
			IsPaid:     order.IsPaid,
			CreatedAt:  order.CreatedAt,
		})
	}
	return dto, nil
}

func (s *service) ListCustomers(ctx context.Context, params pagination.Params) (*pagination.Page[AccountSummaryDTO], error) {
	return s.listByRole(ctx, enums.RoleCustomer, params)
}

func (s *service) ListMerchants(ctx context.Context, params pagination.Params) (*pagination.Page[AccountSummaryDTO], error) {
	return s.listByRole(ctx, enums.RoleMerchant, params)
}

func (s *service) listByRole(ctx context.Context, role enums.Role, params pagination.Params) (*pagination.Page[AccountSummaryDTO], error) {
	rows, total, err := s.accountsRepo.ListByRole(ctx, role, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing accounts")
	}
	items := make([]AccountSummaryDTO, 0, len(rows))
	for i := range rows {
		items = append(items, toAccountSummaryDTO(&rows[i]))
	}
	page := pagination.NewPage(items, params, total)
	return &page, nil
}

// SetMerchantApproval flips the approval gate. Approving stamps ApprovedAt and
// notifies the merchant; revoking clears the stamp.
func (s *service) SetMerchantApproval(ctx context.Context, merchantID uuid.UUID, approved bool) (*AccountSummaryDTO, error) {
	account, err := s.accountsRepo.FindByID(ctx, merchantID)
	if err != nil {
		if accounts.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading merchant")
	}
	if !account.Role.IsMerchant() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account is not a merchant")
	}

	wasApproved := account.IsApproved
	account.IsApproved = approved
	if approved {
		now := s.now()
		account.ApprovedAt = &now
	} else {
		account.ApprovedAt = nil
	}

	updated, err := s.accountsRepo.Update(ctx, account)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving merchant")
	}

	if approved && !wasApproved {
		subject, body := notifications.MerchantApprovedMessage(updated.Name)
		if err := s.mailer.Send(ctx, updated.Email, subject, body); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("approval mail failed: %v", err))
		}
	}

	s.logg.Info(s.logg.WithAccountID(ctx, merchantID.String()),
		fmt.Sprintf("merchant approval set to %t", approved))
	dto := toAccountSummaryDTO(updated)
	return &dto, nil
}

func (s *service) DeleteCustomer(ctx context.Context, customerID uuid.UUID) error {
	account, err := s.accountsRepo.FindByID(ctx, customerID)
	if err != nil {
		if accounts.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading customer")
	}
	if !account.Role.IsCustomer() {
		return pkgerrors.New(pkgerrors.CodeValidation, "account is not a customer")
	}

	if err := s.accountsRepo.Delete(ctx, customerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting customer")
	}
	return nil
}

// DeleteMerchant removes the merchant together with their catalog in one
// transaction.
func (s *service) DeleteMerchant(ctx context.Context, merchantID uuid.UUID) error {
	account, err := s.accountsRepo.FindByID(ctx, merchantID)
	if err != nil {
		if accounts.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading merchant")
	}
	if !account.Role.IsMerchant() {
		return pkgerrors.New(pkgerrors.CodeValidation, "account is not a merchant")
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.productsRepo.WithTx(tx).DeleteByMerchant(ctx, merchantID); err != nil {
			return err
		}
		return s.accountsRepo.WithTx(tx).Delete(ctx, merchantID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting merchant")
	}

	s.logg.Info(s.logg.WithAccountID(ctx, merchantID.String()), "merchant deleted")
	return nil
}
