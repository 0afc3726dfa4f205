package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/rapidsites/storefront/pkg/db/models"
)

// LoginRequest captures the credentials sent to the admin login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AdminDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// LoginResponse carries the bearer token issued on a successful login.
type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Admin       AdminDTO  `json:"admin"`
}

func toAdminDTO(u *models.AdminUser) AdminDTO {
	return AdminDTO{ID: u.ID, Email: u.Email, Name: u.Name, LastLoginAt: u.LastLoginAt}
}
