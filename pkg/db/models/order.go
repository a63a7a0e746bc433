package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/novatra-store/novatra-backend/pkg/enums"
)

// Order is a placed order with its payment and fulfilment state. MerchantID is
// NULL when the order mixes platform-seeded products.
type Order struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID uuid.UUID  `gorm:"column:customer_id;type:uuid;not null;index"`
	MerchantID *uuid.UUID `gorm:"column:merchant_id;type:uuid;index"`

	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	TotalPrice    decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null"`

	IsPaid        bool       `gorm:"column:is_paid;not null;default:false"`
	PaidAt        *time.Time `gorm:"column:paid_at"`
	PaymentID     *string    `gorm:"column:payment_id"`
	PaymentStatus *string    `gorm:"column:payment_status"`
	PaymentEmail  *string    `gorm:"column:payment_email"`

	GatewayOrderID *string `gorm:"column:gateway_order_id;index"`

	DeliveredAt *time.Time `gorm:"column:delivered_at"`

	ShippingLine1      string `gorm:"column:shipping_line1;not null"`
	ShippingLine2      string `gorm:"column:shipping_line2;not null;default:''"`
	ShippingCity       string `gorm:"column:shipping_city;not null"`
	ShippingState      string `gorm:"column:shipping_state;not null"`
	ShippingPostalCode string `gorm:"column:shipping_postal_code;not null"`
	ShippingCountry    string `gorm:"column:shipping_country;not null"`
	ShippingPhone      string `gorm:"column:shipping_phone;not null;default:''"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
