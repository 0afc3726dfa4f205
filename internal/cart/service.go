package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/types"
)

const DefaultTTL = 7 * 24 * time.Hour

// AddInput is an item without quantity; adding increments or appends with quantity 1.
type AddInput struct {
	ProductID string
	Slug      string
	Name      string
	Price     decimal.Decimal
	Image     string
}

// Service exposes the session cart operations.
type Service interface {
	Get(ctx context.Context, session Session) Cart
	Count(ctx context.Context, session Session) int
	Add(ctx context.Context, session Session, input AddInput) (Cart, error)
	AddProduct(ctx context.Context, session Session, productID uuid.UUID) (Cart, error)
	Remove(ctx context.Context, session Session, productID string) (Cart, error)
	SetQuantity(ctx context.Context, session Session, productID string, quantity int) (Cart, error)
	Clear(ctx context.Context, session Session) (Cart, error)
}

type ServiceParams struct {
	Repo     Repository
	Products productLookup
	TTL      time.Duration
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	products productLookup
	ttl      time.Duration
	logg     *logger.Logger
}

// NewService builds a cart service backed by the provided repository.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		ttl:      ttl,
		logg:     params.Logger,
	}, nil
}

// Get never fails: a backend error is logged and reported as an empty cart.
func (s *service) Get(ctx context.Context, session Session) Cart {
	items, err := s.repo.Load(ctx, session)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithCartSession(ctx, session.ID), "cart.load_failed", err)
		}
		return NewCart(nil)
	}
	return NewCart(items)
}

func (s *service) Count(ctx context.Context, session Session) int {
	return s.Get(ctx, session).ItemCount
}

func (s *service) Add(ctx context.Context, session Session, input AddInput) (Cart, error) {
	if err := validateAddInput(input); err != nil {
		return NewCart(nil), err
	}
	return s.mutate(ctx, session, func(items []types.CartItem) []types.CartItem {
		return addItem(items, input)
	})
}

// AddProduct resolves price and presentation from the catalog before adding.
func (s *service) AddProduct(ctx context.Context, session Session, productID uuid.UUID) (Cart, error) {
	product, err := s.products.GetForCart(ctx, session.TenantID, productID)
	if err != nil {
		return NewCart(nil), err
	}
	if product == nil || !product.IsActive {
		return NewCart(nil), pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if product.Stock != nil && *product.Stock <= 0 {
		return NewCart(nil), pkgerrors.New(pkgerrors.CodeConflict, "product is out of stock")
	}
	return s.Add(ctx, session, AddInput{
		ProductID: product.ID.String(),
		Slug:      product.Slug,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.Image,
	})
}

func (s *service) Remove(ctx context.Context, session Session, productID string) (Cart, error) {
	return s.mutate(ctx, session, func(items []types.CartItem) []types.CartItem {
		return removeItem(items, productID)
	})
}

// SetQuantity removes the item when quantity <= 0; unknown ids are a no-op.
func (s *service) SetQuantity(ctx context.Context, session Session, productID string, quantity int) (Cart, error) {
	return s.mutate(ctx, session, func(items []types.CartItem) []types.CartItem {
		if quantity <= 0 {
			return removeItem(items, productID)
		}
		return setQuantity(items, productID, quantity)
	})
}

func (s *service) Clear(ctx context.Context, session Session) (Cart, error) {
	if err := s.repo.Delete(ctx, session); err != nil {
		return NewCart(nil), pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return NewCart(nil), nil
}

func (s *service) mutate(ctx context.Context, session Session, fn func([]types.CartItem) []types.CartItem) (Cart, error) {
	if strings.TrimSpace(session.ID) == "" {
		return NewCart(nil), pkgerrors.New(pkgerrors.CodeValidation, "cart session required")
	}
	items, err := s.repo.Load(ctx, session)
	if err != nil {
		return NewCart(nil), pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	next := fn(items)
	if err := s.repo.Save(ctx, session, next, s.ttl); err != nil {
		return NewCart(items), pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return NewCart(next), nil
}

func validateAddInput(input AddInput) error {
	var missing []string
	if strings.TrimSpace(input.ProductID) == "" {
		missing = append(missing, "productId")
	}
	if strings.TrimSpace(input.Slug) == "" {
		missing = append(missing, "slug")
	}
	if strings.TrimSpace(input.Name) == "" {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart item is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	if input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	return nil
}

func addItem(items []types.CartItem, input AddInput) []types.CartItem {
	out := make([]types.CartItem, 0, len(items)+1)
	found := false
	for _, item := range items {
		if item.ProductID == input.ProductID {
			item.Quantity++
			found = true
		}
		out = append(out, item)
	}
	if !found {
		out = append(out, types.CartItem{
			ProductID: input.ProductID,
			Slug:      input.Slug,
			Name:      input.Name,
			Price:     input.Price,
			Quantity:  1,
			Image:     input.Image,
		})
	}
	return out
}

func removeItem(items []types.CartItem, productID string) []types.CartItem {
	out := make([]types.CartItem, 0, len(items))
	for _, item := range items {
		if item.ProductID != productID {
			out = append(out, item)
		}
	}
	return out
}

func setQuantity(items []types.CartItem, productID string, quantity int) []types.CartItem {
	out := make([]types.CartItem, 0, len(items))
	for _, item := range items {
		if item.ProductID == productID {
			item.Quantity = quantity
		}
		out = append(out, item)
	}
	return out
}
