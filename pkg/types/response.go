package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// CheckoutEnvelope is the flat contract the storefront checkout form expects.
type CheckoutEnvelope struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WebhookAck is returned to the payment gateway for every accepted delivery.
type WebhookAck struct {
	Received    bool   `json:"received"`
	Duplicate   bool   `json:"duplicate,omitempty"`
	OrderID     string `json:"orderId,omitempty"`
	OrderNumber string `json:"orderNumber,omitempty"`
}
