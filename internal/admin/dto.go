package admin

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/novatra-store/novatra-backend/pkg/db/models"
)

// AnalyticsDTO is the dashboard snapshot.
type AnalyticsDTO struct {
	TotalCustomers int64            `json:"total_customers"`
	TotalMerchants int64            `json:"total_merchants"`
	TotalProducts  int64            `json:"total_products"`
	TotalOrders    int64            `json:"total_orders"`
	TotalPaidSales decimal.Decimal  `json:"total_paid_sales"`
	RecentOrders   []RecentOrderDTO `json:"recent_orders"`
}

// RecentOrderDTO is a compact order row for the dashboard.
type RecentOrderDTO struct {
	ID         uuid.UUID       `json:"id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     string          `json:"status"`
	IsPaid     bool            `json:"is_paid"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AccountSummaryDTO is an account row in the admin listings.
type AccountSummaryDTO struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	StoreName     *string    `json:"store_name,omitempty"`
	IsApproved    *bool      `json:"is_approved,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toAccountSummaryDTO(account *models.Account) AccountSummaryDTO {
	dto := AccountSummaryDTO{
		ID:            account.ID,
		Name:          account.Name,
		Email:         account.Email,
		Role:          account.Role.String(),
		EmailVerified: account.IsEmailVerified(),
		CreatedAt:     account.CreatedAt,
	}
	if account.Role.IsMerchant() {
		dto.StoreName = account.StoreName
		approved := account.IsApproved
		dto.IsApproved = &approved
		dto.ApprovedAt = account.ApprovedAt
	}
	return dto
}
