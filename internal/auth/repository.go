package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidsites/storefront/pkg/db/models"
)

// Repository stores admin accounts. Lookups return nil, nil when nothing
// matches.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*models.AdminUser, error) {
	return r.first(ctx, "tenant_id = ? AND email = ?", tenantID, email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AdminUser, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) Create(ctx context.Context, admin *models.AdminUser) error {
	return r.db.WithContext(ctx).Create(admin).Error
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AdminUser{ID: id}).Update("last_login_at", at).Error
}

func (r *Repository) first(ctx context.Context, query string, args ...any) (*models.AdminUser, error) {
	var admin models.AdminUser
	switch err := r.db.WithContext(ctx).Where(query, args...).Take(&admin).Error; {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &admin, nil
}
