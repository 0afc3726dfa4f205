package stripe

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
)

// LineItem is a single priced product line sent to hosted checkout.
type LineItem struct {
	Name       string
	Image      string
	UnitAmount int64
	Quantity   int64
	Metadata   map[string]string
}

// ShippingOption is a fixed-amount shipping rate offered at checkout.
type ShippingOption struct {
	DisplayName string
	Amount      int64
	MinDays     int64
	MaxDays     int64
}

// SessionRequest describes a hosted checkout session in payment mode.
type SessionRequest struct {
	CustomerEmail    string
	Currency         string
	LineItems        []LineItem
	Shipping         ShippingOption
	AllowedCountries []string
	Metadata         map[string]string
	SuccessURL       string
	CancelURL        string
}

// Session is the subset of a checkout session the storefront relies on.
type Session struct {
	ID            string
	URL           string
	PaymentStatus string
	CustomerEmail string
	AmountTotal   int64
	Currency      string
	Metadata      map[string]string
}

// CheckoutGateway creates and retrieves hosted checkout sessions.
type CheckoutGateway struct {
	sessions *session.Client
}

func NewCheckoutGateway(client *Client) (*CheckoutGateway, error) {
	if client == nil {
		return nil, errors.New("stripe client required")
	}
	return &CheckoutGateway{sessions: client.sessions()}, nil
}

func (g *CheckoutGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := BuildSessionParams(req)
	params.Context = ctx
	sess, err := g.sessions.New(params)
	if err != nil {
		return nil, err
	}
	return fromStripeSession(sess), nil
}

func (g *CheckoutGateway) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := g.sessions.Get(id, params)
	if err != nil {
		return nil, err
	}
	return fromStripeSession(sess), nil
}

// BuildSessionParams maps a SessionRequest onto Stripe's checkout session parameters.
func BuildSessionParams(req SessionRequest) *stripe.CheckoutSessionParams {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name:     stripe.String(item.Name),
			Metadata: item.Metadata,
		}
		if item.Image != "" {
			product.Images = stripe.StringSlice([]string{item.Image})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				UnitAmount:  stripe.Int64(item.UnitAmount),
				ProductData: product,
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(req.CustomerEmail),
		LineItems:     lineItems,
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.AllowedCountries),
		},
		ShippingOptions: []*stripe.CheckoutSessionShippingOptionParams{
			{
				ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
					Type:        stripe.String("fixed_amount"),
					DisplayName: stripe.String(req.Shipping.DisplayName),
					FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
						Amount:   stripe.Int64(req.Shipping.Amount),
						Currency: stripe.String(req.Currency),
					},
					DeliveryEstimate: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateParams{
						Minimum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMinimumParams{
							Unit:  stripe.String("business_day"),
							Value: stripe.Int64(req.Shipping.MinDays),
						},
						Maximum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMaximumParams{
							Unit:  stripe.String("business_day"),
							Value: stripe.Int64(req.Shipping.MaxDays),
						},
					},
				},
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

func fromStripeSession(sess *stripe.CheckoutSession) *Session {
	if sess == nil {
		return nil
	}
	return &Session{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
		CustomerEmail: sess.CustomerEmail,
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		Metadata:      sess.Metadata,
	}
}

// MsgUnexpected is shown for gateway failures that carry no provider message.
const MsgUnexpected = "An unexpected error occurred. Please try again."

// ErrorMessage extracts the provider's user-facing message from a Stripe
// error. Transport and other errors yield MsgUnexpected.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrUnavailable) {
		return "Payment provider is temporarily unavailable"
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return MsgUnexpected
}
