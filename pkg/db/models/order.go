package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rapidsites/storefront/pkg/enums"
	"github.com/rapidsites/storefront/pkg/types"
)

// Order is a paid checkout recorded from a payment gateway webhook.
type Order struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	TenantID          uuid.UUID              `gorm:"column:tenant_id;type:uuid;not null;index"`
	OrderNumber       string                 `gorm:"column:order_number;not null;uniqueIndex"`
	Status            enums.OrderStatus      `gorm:"column:status;not null"`
	CustomerEmail     string                 `gorm:"column:customer_email;not null"`
	CustomerName      string                 `gorm:"column:customer_name;not null"`
	CustomerPhone     *string                `gorm:"column:customer_phone"`
	ShippingAddress   types.Address          `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	Items             []types.CartItem       `gorm:"column:items;type:jsonb;serializer:json;not null"`
	Subtotal          decimal.Decimal        `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Shipping          decimal.Decimal        `gorm:"column:shipping;type:numeric(12,2);not null"`
	Tax               decimal.Decimal        `gorm:"column:tax;type:numeric(12,2);not null"`
	Total             decimal.Decimal        `gorm:"column:total;type:numeric(12,2);not null"`
	Currency          string                 `gorm:"column:currency;not null"`
	ExternalSessionID string                 `gorm:"column:external_session_id;not null;uniqueIndex"`
	ExternalPaymentID *string                `gorm:"column:external_payment_id"`
	TrackingNumber    *string                `gorm:"column:tracking_number"`
	ShippingCarrier   *enums.ShippingCarrier `gorm:"column:shipping_carrier"`
	Notes             *string                `gorm:"column:notes"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
