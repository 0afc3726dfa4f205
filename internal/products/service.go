package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rapidsites/storefront/internal/cart"
	"github.com/rapidsites/storefront/pkg/db/models"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/pagination"
)

type repository interface {
	ListActive(ctx context.Context, tenantID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Product, error)
	FindBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*models.Product, error)
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error)
	DecrementStock(ctx context.Context, tenantID, id uuid.UUID, qty int) (bool, error)
}

// ProductDTO is the public catalog representation.
type ProductDTO struct {
	ID      uuid.UUID       `json:"id"`
	Slug    string          `json:"slug"`
	Name    string          `json:"name"`
	Summary string          `json:"summary,omitempty"`
	Price   decimal.Decimal `json:"price"`
	Image   string          `json:"image,omitempty"`
	InStock bool            `json:"inStock"`
}

type Service struct {
	repo repository
}

func NewService(repo repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &Service{repo: repo}, nil
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (pagination.Page[ProductDTO], error) {
	cursor, err := pagination.Decode(params.Cursor)
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListActive(ctx, tenantID, params.Limit, cursor)
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return pagination.Build(rows, params.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}, toDTO), nil
}

func (s *Service) GetBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*ProductDTO, error) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	row, err := s.repo.FindBySlug(ctx, tenantID, slug)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if row == nil || !row.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	dto := toDTO(*row)
	return &dto, nil
}

// GetForCart implements the cart catalog lookup.
func (s *Service) GetForCart(ctx context.Context, tenantID, productID uuid.UUID) (*cart.ProductSnapshot, error) {
	row, err := s.repo.FindByID(ctx, tenantID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &cart.ProductSnapshot{
		ID:       row.ID,
		Slug:     row.Slug,
		Name:     row.Name,
		Price:    row.Price,
		Image:    deref(row.Image),
		Stock:    row.Stock,
		IsActive: row.IsActive,
	}, nil
}

// DecrementStock applies a floor-at-zero stock reduction for a purchased item.
func (s *Service) DecrementStock(ctx context.Context, tenantID uuid.UUID, productID string, qty int) error {
	id, err := uuid.Parse(productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}
	if qty <= 0 {
		return nil
	}
	if _, err := s.repo.DecrementStock(ctx, tenantID, id, qty); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "decrement stock")
	}
	return nil
}

func toDTO(p models.Product) ProductDTO {
	return ProductDTO{
		ID:      p.ID,
		Slug:    p.Slug,
		Name:    p.Name,
		Summary: deref(p.Summary),
		Price:   p.Price,
		Image:   deref(p.Image),
		InStock: p.Stock == nil || *p.Stock > 0,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
