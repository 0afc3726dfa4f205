package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rapidsites/storefront/pkg/enums"
)

// OrderCreatedEvent announces a paid order recorded from the payment gateway.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	CustomerEmail string          `json:"customer_email"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	ItemCount     int             `json:"item_count"`
}

// OrderStatusChangedEvent is emitted when an admin moves an order along.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	TenantID       uuid.UUID         `json:"tenant_id"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Status         enums.OrderStatus `json:"status"`
	TrackingNumber string            `json:"tracking_number,omitempty"`
}
