package models

import "github.com/golang-jwt/jwt/v5"

// Application permissions
const (
	PermissionCardRead         = "card:read"
	PermissionCardWrite        = "card:write"
	PermissionTransactionRead  = "transaction:read"
	PermissionTransactionWrite = "transaction:write"

	PermissionReadAdmin  = "admin:read"
	PermissionWriteAdmin = "admin:write"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uint     `json:"user_id"`
	Email        string   `json:"email"`
	Role         Role     `json:"role"`
	Permissions  []string `json:"permissions"`
	TokenVersion int      `json:"token_version"`
}

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Principal converts the claims into the acting principal.
func (c *UserClaims) Principal() Principal {
	return Principal{UserID: c.UserID, Roles: []Role{c.Role}}
}

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role Role) []string {
	switch role {
	case RoleAdmin:
		return []string{
			PermissionCardRead,
			PermissionCardWrite,
			PermissionTransactionRead,
			PermissionTransactionWrite,
			PermissionReadAdmin,
			PermissionWriteAdmin,
		}
	case RoleUser:
		return []string{
			PermissionCardRead,
			PermissionTransactionRead,
			PermissionTransactionWrite,
		}
	default:
		return []string{}
	}
}
