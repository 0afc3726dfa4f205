package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/enums"
	"github.com/rapidsites/storefront/pkg/types"
)

// ListFilters narrow the admin order list.
type ListFilters struct {
	Status *enums.OrderStatus
	Email  string
}

type CustomerInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// OrderDTO is the admin representation of an order.
type OrderDTO struct {
	ID                uuid.UUID              `json:"id"`
	OrderNumber       string                 `json:"orderNumber"`
	Status            enums.OrderStatus      `json:"status"`
	Customer          CustomerInfo           `json:"customer"`
	ShippingAddress   types.Address          `json:"shippingAddress"`
	Items             []types.CartItem       `json:"items"`
	Subtotal          decimal.Decimal        `json:"subtotal"`
	Shipping          decimal.Decimal        `json:"shipping"`
	Tax               decimal.Decimal        `json:"tax"`
	Total             decimal.Decimal        `json:"total"`
	Currency          string                 `json:"currency"`
	ExternalSessionID string                 `json:"stripeSessionId"`
	ExternalPaymentID string                 `json:"stripePaymentIntentId,omitempty"`
	TrackingNumber    string                 `json:"trackingNumber,omitempty"`
	ShippingCarrier   *enums.ShippingCarrier `json:"shippingCarrier,omitempty"`
	Notes             string                 `json:"notes,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

func ToDTO(o models.Order) OrderDTO {
	items := o.Items
	if items == nil {
		items = []types.CartItem{}
	}
	return OrderDTO{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		Customer: CustomerInfo{
			Email: o.CustomerEmail,
			Name:  o.CustomerName,
			Phone: deref(o.CustomerPhone),
		},
		ShippingAddress:   o.ShippingAddress,
		Items:             items,
		Subtotal:          o.Subtotal,
		Shipping:          o.Shipping,
		Tax:               o.Tax,
		Total:             o.Total,
		Currency:          o.Currency,
		ExternalSessionID: o.ExternalSessionID,
		ExternalPaymentID: deref(o.ExternalPaymentID),
		TrackingNumber:    deref(o.TrackingNumber),
		ShippingCarrier:   o.ShippingCarrier,
		Notes:             deref(o.Notes),
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
