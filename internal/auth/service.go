package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/rapidsites/storefront/pkg/auth"
	"github.com/rapidsites/storefront/pkg/config"
	"github.com/rapidsites/storefront/pkg/db/models"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

type adminRepository interface {
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.AdminUser, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.AdminUser, error)
	Create(ctx context.Context, u *models.AdminUser) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Service authenticates tenant administrators.
type Service interface {
	Login(ctx context.Context, tenantID uuid.UUID, req LoginRequest) (*LoginResponse, error)
	Authorize(ctx context.Context, token string) (*pkgAuth.AdminClaims, error)
	CreateAdmin(ctx context.Context, tenantID uuid.UUID, email, name, password string) (*models.AdminUser, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Repo      adminRepository
	JWTConfig config.JWTConfig
	Password  config.PasswordConfig
}

type service struct {
	repo     adminRepository
	jwtCfg   config.JWTConfig
	password config.PasswordConfig
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("admin repository is required")
	}
	if params.JWTConfig.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &service{
		repo:     params.Repo,
		jwtCfg:   params.JWTConfig,
		password: params.Password,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Login(ctx context.Context, tenantID uuid.UUID, req LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	admin, err := s.repo.FindByEmail(ctx, tenantID, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup admin")
	}
	if admin == nil {
		security.BurnVerify(req.Password, s.password)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	valid, err := security.VerifyPassword(req.Password, admin.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !admin.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	now := s.now()
	if err := s.repo.UpdateLastLogin(ctx, admin.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	admin.LastLoginAt = &now

	token, expiresAt, err := pkgAuth.MintAdminToken(s.jwtCfg, now, pkgAuth.AdminTokenPayload{
		AdminID:  admin.ID,
		TenantID: admin.TenantID,
		Email:    admin.Email,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Admin:       toAdminDTO(admin),
	}, nil
}

// Authorize validates a bearer token and confirms the admin is still active.
func (s *service) Authorize(ctx context.Context, token string) (*pkgAuth.AdminClaims, error) {
	claims, err := pkgAuth.ParseAdminToken(s.jwtCfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	admin, err := s.repo.FindByID(ctx, claims.AdminID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup admin")
	}
	if admin == nil || !admin.IsActive || admin.TenantID != claims.TenantID {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}

// CreateAdmin provisions an administrator for a tenant.
func (s *service) CreateAdmin(ctx context.Context, tenantID uuid.UUID, email, name, password string) (*models.AdminUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid email is required")
	}
	if len(password) < 12 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 12 characters")
	}
	hash, err := security.HashPassword(password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	admin := &models.AdminUser{
		TenantID:     tenantID,
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "admin already exists")
	}
	return admin, nil
}
