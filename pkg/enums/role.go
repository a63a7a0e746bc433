package enums

import "fmt"

// Role identifies the account variant an actor authenticates as.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleMerchant Role = "merchant"
	RoleAdmin    Role = "admin"
)

var validRoles = []Role{
	RoleCustomer,
	RoleMerchant,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsCustomer reports whether the role is the customer variant.
func (r Role) IsCustomer() bool { return r == RoleCustomer }

// IsMerchant reports whether the role is the merchant variant.
func (r Role) IsMerchant() bool { return r == RoleMerchant }

// IsAdmin reports whether the role is the admin variant.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
