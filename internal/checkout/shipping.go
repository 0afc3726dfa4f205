package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/rapidsites/storefront/pkg/stripe"
	"github.com/rapidsites/storefront/pkg/types"
)

const (
	ShippingFreeName     = "Free Express Shipping"
	ShippingStandardName = "Express Shipping"
	shippingMinDays      = 3
	shippingMaxDays      = 7
)

// ShippingRule charges a flat fee that is waived once the subtotal reaches the threshold.
type ShippingRule struct {
	Fee       decimal.Decimal
	Threshold decimal.Decimal
}

func (r ShippingRule) Cost(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(r.Threshold) {
		return decimal.Zero
	}
	return r.Fee
}

// Option renders the rule as the single gateway shipping rate for subtotal.
func (r ShippingRule) Option(subtotal decimal.Decimal) stripe.ShippingOption {
	cost := r.Cost(subtotal)
	name := ShippingStandardName
	if cost.IsZero() {
		name = ShippingFreeName
	}
	return stripe.ShippingOption{
		DisplayName: name,
		Amount:      types.MinorUnits(cost),
		MinDays:     shippingMinDays,
		MaxDays:     shippingMaxDays,
	}
}
