package tenants

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidsites/storefront/pkg/db/models"
)

// Repository looks tenants up by their public identifiers.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	return r.first(ctx, "subdomain = ?", subdomain)
}

func (r *Repository) FindByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	return r.first(ctx, "domain = ?", domain)
}

func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return r.first(ctx, "slug = ?", slug)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, where string, arg any) (*models.Tenant, error) {
	var t models.Tenant
	err := r.db.WithContext(ctx).Where(where, arg).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
