package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rapidsites/storefront/pkg/types"
)

// Session identifies one visitor's cart within a tenant.
type Session struct {
	TenantID uuid.UUID
	ID       string
}

// Cart is the materialized view of a session's items. Total and ItemCount are
// always derived from Items.
type Cart struct {
	Items     []types.CartItem `json:"items"`
	Total     decimal.Decimal  `json:"total"`
	ItemCount int              `json:"itemCount"`
}

// NewCart derives totals from items.
func NewCart(items []types.CartItem) Cart {
	if items == nil {
		items = []types.CartItem{}
	}
	total, count := types.SumItems(items)
	return Cart{Items: items, Total: total, ItemCount: count}
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Repository persists the item list for a session.
type Repository interface {
	Load(ctx context.Context, session Session) ([]types.CartItem, error)
	Save(ctx context.Context, session Session, items []types.CartItem, ttl time.Duration) error
	Delete(ctx context.Context, session Session) error
}

// ProductSnapshot is the catalog view needed to add a product to a cart.
type ProductSnapshot struct {
	ID       uuid.UUID
	Slug     string
	Name     string
	Price    decimal.Decimal
	Image    string
	Stock    *int
	IsActive bool
}

type productLookup interface {
	GetForCart(ctx context.Context, tenantID, productID uuid.UUID) (*ProductSnapshot, error)
}
