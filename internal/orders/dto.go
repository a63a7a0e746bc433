package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/novatra-store/novatra-backend/pkg/db/models"
	"github.com/novatra-store/novatra-backend/pkg/types"
)

// ItemDTO is one frozen order line.
type ItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderDTO is the full order payload returned to clients.
type OrderDTO struct {
	ID             uuid.UUID       `json:"id"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	MerchantID     *uuid.UUID      `json:"merchant_id,omitempty"`
	PaymentMethod  string          `json:"payment_method"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Status         string          `json:"status"`
	IsPaid         bool            `json:"is_paid"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	PaymentID      *string         `json:"payment_id,omitempty"`
	PaymentStatus  *string         `json:"payment_status,omitempty"`
	GatewayOrderID *string         `json:"gateway_order_id,omitempty"`
	DeliveredAt    *time.Time      `json:"delivered_at,omitempty"`
	Shipping       types.Address   `json:"shipping"`
	Items          []ItemDTO       `json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
}

func toOrderDTO(order *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:             order.ID,
		CustomerID:     order.CustomerID,
		MerchantID:     order.MerchantID,
		PaymentMethod:  order.PaymentMethod.String(),
		TotalPrice:     order.TotalPrice,
		Status:         order.Status.String(),
		IsPaid:         order.IsPaid,
		PaidAt:         order.PaidAt,
		PaymentID:      order.PaymentID,
		PaymentStatus:  order.PaymentStatus,
		GatewayOrderID: order.GatewayOrderID,
		DeliveredAt:    order.DeliveredAt,
		Shipping: types.Address{
			Line1:      order.ShippingLine1,
			Line2:      order.ShippingLine2,
			City:       order.ShippingCity,
			State:      order.ShippingState,
			PostalCode: order.ShippingPostalCode,
			Country:    order.ShippingCountry,
			Phone:      order.ShippingPhone,
		},
		Items:     []ItemDTO{},
		CreatedAt: order.CreatedAt,
	}
	for i := range order.Items {
		item := &order.Items[i]
		dto.Items = append(dto.Items, ItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			ImageURL:  item.ImageURL,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		})
	}
	return dto
}

// PaymentIntentDTO carries what the storefront needs to open the gateway
// checkout for an order.
type PaymentIntentDTO struct {
	OrderID        uuid.UUID       `json:"order_id"`
	GatewayOrderID string          `json:"gateway_order_id"`
	Amount         int64           `json:"amount"`
	Currency       string          `json:"currency"`
	TotalPrice     decimal.Decimal `json:"total_price"`
}
