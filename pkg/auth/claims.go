package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/novatra-store/novatra-backend/pkg/enums"
)

// AccessTokenPayload is the identity material embedded into a minted token.
type AccessTokenPayload struct {
	AccountID uuid.UUID
	Role      enums.Role
	JTI       string
}

// AccessTokenClaims is the JWT claim set carried by every authenticated request.
type AccessTokenClaims struct {
	AccountID uuid.UUID  `json:"account_id"`
	Role      enums.Role `json:"role"`

	jwt.RegisteredClaims
}
