package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AdminTokenPayload captures the data available when minting an admin JWT.
type AdminTokenPayload struct {
	AdminID  uuid.UUID
	TenantID uuid.UUID
	Email    string
	JTI      string
}

// AdminClaims is the typed JWT issued to storefront administrators.
type AdminClaims struct {
	AdminID  uuid.UUID `json:"admin_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Email    string    `json:"email"`
	jwt.RegisteredClaims
}
