package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/novatra-store/novatra-backend/internal/cart"
	"github.com/novatra-store/novatra-backend/pkg/db"
	"github.com/novatra-store/novatra-backend/pkg/db/models"
	"github.com/novatra-store/novatra-backend/pkg/enums"
	pkgerrors "github.com/novatra-store/novatra-backend/pkg/errors"
	"github.com/novatra-store/novatra-backend/pkg/gateway"
	"github.com/novatra-store/novatra-backend/pkg/logger"
	"github.com/novatra-store/novatra-backend/pkg/pagination"
	"github.com/novatra-store/novatra-backend/pkg/types"
)

const paymentStatusCaptured = "captured"

// Actor identifies who is performing an order operation.
type Actor struct {
	AccountID uuid.UUID
	Role      enums.Role
}

// LineInput is one requested product line in a placement request.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// PlaceOrderInput holds the validated payload to place an order. When Items is
// empty the customer's stored cart is consumed instead.
type PlaceOrderInput struct {
	Items         []LineInput
	PaymentMethod string
	Shipping      types.Address
	PaymentEmail  string
}

// ConfirmPaymentInput carries the gateway checkout callback values.
type ConfirmPaymentInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	PaymentEmail     string
}

// Service exposes order placement, payment, and fulfillment operations.
type Service interface {
	PlaceOrder(ctx context.Context, actor Actor, input PlaceOrderInput) (*OrderDTO, error)
	CreatePaymentIntent(ctx context.Context, actor Actor, orderID uuid.UUID) (*PaymentIntentDTO, error)
	ConfirmPayment(ctx context.Context, actor Actor, orderID uuid.UUID, input ConfirmPaymentInput) (*OrderDTO, error)
	MarkPaidByGatewayOrder(ctx context.Context, gatewayOrderID, gatewayPaymentID string) error
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
	ListMine(ctx context.Context, actor Actor, params pagination.Params) (*pagination.Page[OrderDTO], error)
	ListForMerchant(ctx context.Context, actor Actor, params pagination.Params) (*pagination.Page[OrderDTO], error)
	ListAll(ctx context.Context, params pagination.Params) (*pagination.Page[OrderDTO], error)
}

type productCatalog interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type paymentGateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*gateway.Order, error)
	VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool
}

type service struct {
	repo          *Repository
	products      productCatalog
	carts         *cart.Repository
	dbClient      *db.Client
	gateway       paymentGateway
	capturePolicy enums.CapturePolicy
	logg          *logger.Logger
	now           func() time.Time
}

// NewService constructs the orders service.
func NewService(
	repo *Repository,
	products productCatalog,
	carts *cart.Repository,
	dbClient *db.Client,
	gw paymentGateway,
	capturePolicy enums.CapturePolicy,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if !capturePolicy.IsValid() {
		return nil, fmt.Errorf("invalid capture policy %q", capturePolicy)
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:          repo,
		products:      products,
		carts:         carts,
		dbClient:      dbClient,
		gateway:       gw,
		capturePolicy: capturePolicy,
		logg:          logg,
		now:           time.Now,
	}, nil
}

// PlaceOrder freezes unit prices from the live catalog, derives the owning
// merchant, and writes the order. The stored cart is cleared only when it was
// the source of the lines, inside the same transaction as the order write.
func (s *service) PlaceOrder(ctx context.Context, actor Actor, input PlaceOrderInput) (*OrderDTO, error) {
	input.Shipping.Normalize()
	if err := validateShipping(input.Shipping); err != nil {
		return nil, err
	}

	lines := input.Items
	fromCart := len(lines) == 0
	if fromCart {
		stored, err := s.carts.ListItems(ctx, actor.AccountID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
		}
		for _, item := range stored {
			lines = append(lines, LineInput{ProductID: item.ProductID, Quantity: item.Quantity})
		}
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		ids = append(ids, line.ProductID)
	}

	catalog, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading products")
	}

	// Prices are always frozen from the live catalog row; client payloads never
	// carry pricing. Products that vanished since the cart was built are
	// silently dropped.
	var (
		items      []models.OrderItem
		total      = decimal.Zero
		merchantID *uuid.UUID
		mixed      bool
	)
	for _, line := range lines {
		product, ok := catalog[line.ProductID]
		if !ok {
			continue
		}
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			ImageURL:  product.ImageURL,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
		})
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))

		switch {
		case mixed:
		case merchantID == nil:
			merchantID = product.MerchantID
		case product.MerchantID == nil || *product.MerchantID != *merchantID:
			merchantID = nil
			mixed = true
		}
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "none of the requested products exist")
	}

	method := enums.NormalizePaymentMethod(input.PaymentMethod)
	order := &models.Order{
		CustomerID:         actor.AccountID,
		MerchantID:         merchantID,
		PaymentMethod:      method,
		TotalPrice:         total,
		Status:             enums.OrderStatusPending,
		ShippingLine1:      input.Shipping.Line1,
		ShippingLine2:      input.Shipping.Line2,
		ShippingCity:       input.Shipping.City,
		ShippingState:      input.Shipping.State,
		ShippingPostalCode: input.Shipping.PostalCode,
		ShippingCountry:    input.Shipping.Country,
		ShippingPhone:      input.Shipping.Phone,
		Items:              items,
	}
	if input.PaymentEmail != "" {
		email := input.PaymentEmail
		order.PaymentEmail = &email
	}

	if method == enums.PaymentMethodOnline && s.capturePolicy == enums.CapturePolicyImmediate {
		now := s.now()
		order.IsPaid = true
		order.PaidAt = &now
		status := paymentStatusCaptured
		order.PaymentStatus = &status
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		if fromCart {
			if err := s.carts.WithTx(tx).Clear(ctx, actor.AccountID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "placing order")
	}

	s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "order placed")
	dto := toOrderDTO(order)
	return &dto, nil
}

// CreatePaymentIntent registers the order with the gateway and stores the
// returned gateway order id. Calling it again reuses the stored id.
func (s *service) CreatePaymentIntent(ctx context.Context, actor Actor, orderID uuid.UUID) (*PaymentIntentDTO, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}

	order, err := s.loadOwned(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != enums.PaymentMethodOnline {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not payable online")
	}
	if order.IsPaid {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is already paid")
	}

	amountMinor := order.TotalPrice.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if order.GatewayOrderID != nil {
		return &PaymentIntentDTO{
			OrderID:        order.ID,
			GatewayOrderID: *order.GatewayOrderID,
			Amount:         amountMinor,
			Currency:       "INR",
			TotalPrice:     order.TotalPrice,
		}, nil
	}

	receipt := fmt.Sprintf("order_%s", order.ID)
	gwOrder, err := s.gateway.CreateOrder(ctx, order.TotalPrice, receipt)
	if err != nil {
		return nil, err
	}

	order.GatewayOrderID = &gwOrder.ID
	if _, err := s.repo.Update(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving gateway order id")
	}

	return &PaymentIntentDTO{
		OrderID:        order.ID,
		GatewayOrderID: gwOrder.ID,
		Amount:         gwOrder.Amount,
		Currency:       gwOrder.Currency,
		TotalPrice:     order.TotalPrice,
	}, nil
}

// ConfirmPayment verifies the gateway signature and marks the order paid.
// Confirming an already-paid order is a no-op success.
func (s *service) ConfirmPayment(ctx context.Context, actor Actor, orderID uuid.UUID, input ConfirmPaymentInput) (*OrderDTO, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}

	order, err := s.loadOwned(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	if order.IsPaid {
		dto := toOrderDTO(order)
		return &dto, nil
	}

	gatewayOrderID := input.GatewayOrderID
	if gatewayOrderID == "" && order.GatewayOrderID != nil {
		gatewayOrderID = *order.GatewayOrderID
	}
	if order.GatewayOrderID != nil && gatewayOrderID != *order.GatewayOrderID {
		return nil, pkgerrors.New(pkgerrors.CodeBadSignature, "gateway order mismatch")
	}
	if !s.gateway.VerifyPaymentSignature(gatewayOrderID, input.GatewayPaymentID, input.Signature) {
		return nil, pkgerrors.New(pkgerrors.CodeBadSignature, "signature verification failed")
	}

	s.markPaid(order, input.GatewayPaymentID, input.PaymentEmail)
	if _, err := s.repo.Update(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving payment")
	}

	s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "payment confirmed")
	dto := toOrderDTO(order)
	return &dto, nil
}

// MarkPaidByGatewayOrder settles an order from a verified webhook delivery.
// Unknown gateway order ids and already-paid orders are no-ops.
func (s *service) MarkPaidByGatewayOrder(ctx context.Context, gatewayOrderID, gatewayPaymentID string) error {
	order, err := s.repo.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order.IsPaid {
		return nil
	}

	s.markPaid(order, gatewayPaymentID, "")
	if _, err := s.repo.Update(ctx, order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving payment")
	}
	s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "payment settled via webhook")
	return nil
}

func (s *service) markPaid(order *models.Order, paymentID, email string) {
	now := s.now()
	order.IsPaid = true
	order.PaidAt = &now
	status := paymentStatusCaptured
	order.PaymentStatus = &status
	if paymentID != "" {
		pid := paymentID
		order.PaymentID = &pid
	}
	if email != "" {
		e := email
		order.PaymentEmail = &e
	}
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadVisible(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	dto := toOrderDTO(order)
	return &dto, nil
}

// UpdateStatus advances fulfillment one step at a time. Admins may update any
// order; merchants only their own.
func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.Role.IsAdmin():
	case actor.Role.IsMerchant():
		if order.MerchantID == nil || *order.MerchantID != actor.AccountID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another merchant")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "merchant or admin role required")
	}

	if !order.Status.CanTransitionTo(status) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, status))
	}

	order.Status = status
	if status == enums.OrderStatusDelivered {
		now := s.now()
		order.DeliveredAt = &now
	}

	if _, err := s.repo.Update(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving order status")
	}
	dto := toOrderDTO(order)
	return &dto, nil
}

func (s *service) ListMine(ctx context.Context, actor Actor, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	rows, total, err := s.repo.ListByCustomer(ctx, actor.AccountID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return toPage(rows, params, total), nil
}

func (s *service) ListForMerchant(ctx context.Context, actor Actor, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	rows, total, err := s.repo.ListByMerchant(ctx, actor.AccountID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing merchant orders")
	}
	return toPage(rows, params, total), nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	rows, total, err := s.repo.ListAll(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing all orders")
	}
	return toPage(rows, params, total), nil
}

func toPage(rows []models.Order, params pagination.Params, total int64) *pagination.Page[OrderDTO] {
	items := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		items = append(items, toOrderDTO(&rows[i]))
	}
	page := pagination.NewPage(items, params, total)
	return &page
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

// loadOwned restricts to the owning customer; admins bypass.
func (s *service) loadOwned(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role.IsAdmin() || order.CustomerID == actor.AccountID {
		return order, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
}

// loadVisible additionally allows the routed merchant to read the order.
func (s *service) loadVisible(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.Role.IsAdmin():
	case order.CustomerID == actor.AccountID:
	case actor.Role.IsMerchant() && order.MerchantID != nil && *order.MerchantID == actor.AccountID:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is not visible to this account")
	}
	return order, nil
}

func validateShipping(addr types.Address) error {
	if addr.Line1 == "" || addr.City == "" || addr.State == "" || addr.PostalCode == "" || addr.Country == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
	}
	return nil
}
