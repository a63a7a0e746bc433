package accounts

import (
	"time"

	"github.com/google/uuid"

	"github.com/novatra-store/novatra-backend/pkg/db/models"
)

// AccountDTO is the profile payload returned to clients. Merchant fields are
// omitted for the other roles.
type AccountDTO struct {
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

// AuthResultDTO carries the minted token with the profile after login/verify.
type AuthResultDTO struct {
	Token   string     `json:"token"`
	Account AccountDTO `json:"account"`
}

func toAccountDTO(account *models.Account) AccountDTO {
	dto := AccountDTO{
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
