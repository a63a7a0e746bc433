package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/novatra-store/novatra-backend/pkg/enums"
)

// Account is the single identity row for customers, merchants, and admins.
// Merchant-only columns stay NULL/zero for the other roles.
type Account struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name         string     `gorm:"column:name;not null"`
	Email        string     `gorm:"column:email;type:text;not null;uniqueIndex:idx_accounts_email"`
	PasswordHash *string    `gorm:"column:password_hash"`
	Role         enums.Role `gorm:"column:role;type:text;not null"`

	OTPCode         *string    `gorm:"column:otp_code"`
	OTPExpiresAt    *time.Time `gorm:"column:otp_expires_at"`
	EmailVerifiedAt *time.Time `gorm:"column:email_verified_at"`

	StoreName  *string    `gorm:"column:store_name"`
	IsApproved bool       `gorm:"column:is_approved;not null;default:false"`
	ApprovedAt *time.Time `gorm:"column:approved_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Account) TableName() string { return "accounts" }

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsEmailVerified reports whether the OTP verification completed.
func (a *Account) IsEmailVerified() bool {
	return a.EmailVerifiedAt != nil
}

// ClearOTP wipes the pending one-time password so it cannot be replayed.
func (a *Account) ClearOTP() {
	a.OTPCode = nil
	a.OTPExpiresAt = nil
}
