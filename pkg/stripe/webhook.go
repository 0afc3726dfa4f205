package stripe

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/rapidsites/storefront/pkg/types"
)

// ErrSigningSecretMissing is returned when webhook verification is attempted without a secret.
var ErrSigningSecretMissing = errors.New("stripe webhook secret is not configured")

// VerifyEvent checks the Stripe-Signature header against the raw payload.
// Event objects are decoded from raw JSON, so the account API version is not
// required to match the library's.
func VerifyEvent(payload []byte, signature, secret string) (stripe.Event, error) {
	if strings.TrimSpace(secret) == "" {
		return stripe.Event{}, ErrSigningSecretMissing
	}
	return webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// CompletedSession is the decoded object of a checkout.session.completed event.
type CompletedSession struct {
	ID              string
	CustomerEmail   string
	CustomerName    string
	CustomerPhone   string
	ShippingName    string
	ShippingAddress types.Address
	Metadata        map[string]string
	PaymentIntentID string
	PaymentStatus   string
	AmountTotal     int64
	ShippingTotal   int64
	TaxTotal        int64
	Currency        string
}

type rawAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type rawShippingDetails struct {
	Name    string      `json:"name"`
	Address *rawAddress `json:"address"`
}

type rawCheckoutSession struct {
	ID              string            `json:"id"`
	CustomerEmail   string            `json:"customer_email"`
	Metadata        map[string]string `json:"metadata"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	PaymentStatus   string            `json:"payment_status"`
	PaymentIntent   json.RawMessage   `json:"payment_intent"`
	CustomerDetails *struct {
		Email   string      `json:"email"`
		Name    string      `json:"name"`
		Phone   string      `json:"phone"`
		Address *rawAddress `json:"address"`
	} `json:"customer_details"`
	ShippingDetails      *rawShippingDetails `json:"shipping_details"`
	CollectedInformation *struct {
		ShippingDetails *rawShippingDetails `json:"shipping_details"`
	} `json:"collected_information"`
	ShippingCost *struct {
		AmountTotal int64 `json:"amount_total"`
	} `json:"shipping_cost"`
	TotalDetails *struct {
		AmountTax int64 `json:"amount_tax"`
	} `json:"total_details"`
}

// DecodeCompletedSession reads the session object carried by a checkout event.
// Shipping details are taken from collected_information when present and from
// the legacy shipping_details field otherwise.
func DecodeCompletedSession(raw json.RawMessage) (*CompletedSession, error) {
	var rs rawCheckoutSession
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, err
	}
	if rs.ID == "" {
		return nil, errors.New("checkout session id missing")
	}

	out := &CompletedSession{
		ID:            rs.ID,
		CustomerEmail: rs.CustomerEmail,
		Metadata:      rs.Metadata,
		PaymentStatus: rs.PaymentStatus,
		AmountTotal:   rs.AmountTotal,
		Currency:      rs.Currency,
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	if cd := rs.CustomerDetails; cd != nil {
		if out.CustomerEmail == "" {
			out.CustomerEmail = cd.Email
		}
		out.CustomerName = cd.Name
		out.CustomerPhone = cd.Phone
	}

	shipping := rs.ShippingDetails
	if rs.CollectedInformation != nil && rs.CollectedInformation.ShippingDetails != nil {
		shipping = rs.CollectedInformation.ShippingDetails
	}
	if shipping != nil {
		out.ShippingName = shipping.Name
		if shipping.Address != nil {
			out.ShippingAddress = shipping.Address.toAddress()
		}
	}
	out.ShippingAddress = out.ShippingAddress.Normalized()

	if rs.ShippingCost != nil {
		out.ShippingTotal = rs.ShippingCost.AmountTotal
	}
	if rs.TotalDetails != nil {
		out.TaxTotal = rs.TotalDetails.AmountTax
	}
	out.PaymentIntentID = expandableID(rs.PaymentIntent)

	return out, nil
}

func (a rawAddress) toAddress() types.Address {
	return types.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// expandableID returns the id of a field that is either a string or an expanded object.
func expandableID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}
