package tenants

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/enums"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/logger"
)

type repository interface {
	FindBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	FindByDomain(ctx context.Context, domain string) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// TenantDTO is the storefront-facing tenant configuration.
type TenantDTO struct {
	ID           uuid.UUID             `json:"id"`
	Slug         string                `json:"slug"`
	Name         string                `json:"name"`
	BusinessName string                `json:"businessName,omitempty"`
	ContactEmail string                `json:"contactEmail"`
	ContactPhone string                `json:"contactPhone,omitempty"`
	URL          string                `json:"url"`
	Theme        models.TenantTheme    `json:"theme"`
	Features     models.TenantFeatures `json:"features"`
}

type ServiceParams struct {
	Repo          repository
	BaseDomain    string
	DefaultTenant string
	Logger        *logger.Logger
}

type Service struct {
	repo          repository
	baseDomain    string
	defaultTenant string
	logg          *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("tenant repository required")
	}
	if strings.TrimSpace(params.DefaultTenant) == "" {
		return nil, fmt.Errorf("default tenant slug required")
	}
	return &Service{
		repo:          params.Repo,
		baseDomain:    strings.ToLower(strings.TrimSpace(params.BaseDomain)),
		defaultTenant: params.DefaultTenant,
		logg:          params.Logger,
	}, nil
}

// Resolve maps a request host to an active tenant. Hosts that name no tenant,
// or name an inactive one, fall back to the default tenant.
func (s *Service) Resolve(ctx context.Context, host string) (*models.Tenant, error) {
	var (
		found *models.Tenant
		err   error
	)
	if sub := ExtractSubdomain(host); sub != "" {
		found, err = s.repo.FindBySubdomain(ctx, sub)
	} else if IsCustomDomain(host, s.baseDomain) {
		found, err = s.repo.FindByDomain(ctx, StripPort(host))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve tenant")
	}
	if found != nil && found.Status == enums.TenantStatusActive {
		return found, nil
	}
	if found != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"host":   host,
			"tenant": found.Slug,
			"status": string(found.Status),
		}), "tenant not active, using default")
	}

	fallback, err := s.repo.FindBySlug(ctx, s.defaultTenant)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load default tenant")
	}
	if fallback == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	return fallback, nil
}

// BySlug loads the tenant named by slug, or the default tenant when slug is empty.
func (s *Service) BySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		slug = s.defaultTenant
	}
	t, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}
	if t == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}
	if t == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	return t, nil
}

// URL returns the public storefront address of t.
func (s *Service) URL(t *models.Tenant, path string) string {
	return BuildURL(t.Subdomain, t.Domain, s.baseDomain, path)
}

func (s *Service) ToDTO(t *models.Tenant) TenantDTO {
	dto := TenantDTO{
		ID:           t.ID,
		Slug:         t.Slug,
		Name:         t.Name,
		BusinessName: t.BusinessName,
		ContactEmail: t.ContactEmail,
		URL:          s.URL(t, "/"),
		Theme:        t.Theme,
		Features:     t.Features,
	}
	if t.ContactPhone != nil {
		dto.ContactPhone = *t.ContactPhone
	}
	return dto
}
