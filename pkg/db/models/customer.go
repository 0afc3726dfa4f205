package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rapidsites/storefront/pkg/enums"
	"github.com/rapidsites/storefront/pkg/types"
)

// Customer aggregates purchases and subscriptions per lower-cased email within a tenant.
type Customer struct {
	ID                     uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	TenantID               uuid.UUID            `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_customers_tenant_email"`
	Email                  string               `gorm:"column:email;not null;uniqueIndex:idx_customers_tenant_email"`
	Name                   *string              `gorm:"column:name"`
	Phone                  *string              `gorm:"column:phone"`
	Source                 enums.CustomerSource `gorm:"column:source;not null"`
	SubscribedToNewsletter bool                 `gorm:"column:subscribed_to_newsletter;not null;default:false"`
	SubscribedAt           *time.Time           `gorm:"column:subscribed_at"`
	TotalOrders            int                  `gorm:"column:total_orders;not null;default:0"`
	TotalSpent             decimal.Decimal      `gorm:"column:total_spent;type:numeric(12,2);not null;default:0"`
	LastOrderDate          *time.Time           `gorm:"column:last_order_date"`
	DefaultAddress         *types.Address       `gorm:"column:default_address;type:jsonb;serializer:json"`
	CreatedAt              time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
