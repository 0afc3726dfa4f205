package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rapidsites/storefront/internal/cart"
	"github.com/rapidsites/storefront/pkg/config"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/metrics"
	"github.com/rapidsites/storefront/pkg/stripe"
	"github.com/rapidsites/storefront/pkg/types"
)

// Messages returned to shoppers.
const (
	MsgInvalidEmail     = "Please enter a valid email address"
	MsgNameTooShort     = "Name must be at least 2 characters"
	MsgSessionNoURL     = "Failed to create checkout session. Please try again."
	MsgNotConfigured    = "Payment processing is not configured. Please contact support."
	MsgSessionIDMissing = "session_id is required"
	MsgCartTooLarge     = "Your cart has too many items for a single checkout. Please remove some and try again."
)

// Metadata keys written on the gateway session and read back by the webhook.
// The cart snapshot is split across MetaCartItems_0, MetaCartItems_1, ...
const (
	MetaCartItems    = "cartItems"
	MetaCustomerName = "customerName"
	MetaTenant       = "tenant"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type gateway interface {
	CreateSession(ctx context.Context, req stripe.SessionRequest) (*stripe.Session, error)
	GetSession(ctx context.Context, id string) (*stripe.Session, error)
}

type cartReader interface {
	Get(ctx context.Context, session cart.Session) cart.Cart
	Clear(ctx context.Context, session cart.Session) (cart.Cart, error)
}

// Input is the shopper's checkout form.
type Input struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Result struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// Confirmation summarizes a gateway session on the success page.
type Confirmation struct {
	SessionID     string `json:"sessionId"`
	PaymentStatus string `json:"paymentStatus"`
	CustomerEmail string `json:"customerEmail,omitempty"`
	AmountTotal   int64  `json:"amountTotal"`
	Currency      string `json:"currency"`
	CartCleared   bool   `json:"cartCleared"`
}

type ServiceParams struct {
	Cart    cartReader
	Gateway gateway
	Config  config.CheckoutConfig
	AppURL  string
	Logger  *logger.Logger
	Metrics *metrics.StorefrontMetrics
}

type Service struct {
	cart      cartReader
	gateway   gateway
	shipping  ShippingRule
	currency  string
	countries []string
	appURL    string
	logg      *logger.Logger
	metrics   *metrics.StorefrontMetrics
}

// NewService builds the checkout initiator. A nil Gateway is allowed and
// makes every checkout fail with a not-configured message.
func NewService(params ServiceParams) (*Service, error) {
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if strings.TrimSpace(params.AppURL) == "" {
		return nil, fmt.Errorf("app url required")
	}
	fee, err := decimalOr(params.Config.ShippingFee, "15")
	if err != nil {
		return nil, fmt.Errorf("shipping fee: %w", err)
	}
	threshold, err := decimalOr(params.Config.FreeShippingThreshold, "500")
	if err != nil {
		return nil, fmt.Errorf("free shipping threshold: %w", err)
	}
	currency := strings.ToLower(strings.TrimSpace(params.Config.Currency))
	if currency == "" {
		currency = "aud"
	}
	countries := params.Config.AllowedCountries
	if len(countries) == 0 {
		countries = []string{"AU", "NZ", "US", "GB", "CA", "SG", "HK", "JP"}
	}
	return &Service{
		cart:      params.Cart,
		gateway:   params.Gateway,
		shipping:  ShippingRule{Fee: fee, Threshold: threshold},
		currency:  currency,
		countries: countries,
		appURL:    strings.TrimRight(strings.TrimSpace(params.AppURL), "/"),
		logg:      params.Logger,
		metrics:   params.Metrics,
	}, nil
}

// ValidateInput checks the email before the name and reports the first failure.
func ValidateInput(in Input) error {
	if !emailPattern.MatchString(strings.TrimSpace(in.Email)) {
		return pkgerrors.New(pkgerrors.CodeValidation, MsgInvalidEmail).WithDetails(map[string]string{"field": "email"})
	}
	if len([]rune(strings.TrimSpace(in.Name))) < 2 {
		return pkgerrors.New(pkgerrors.CodeValidation, MsgNameTooShort).WithDetails(map[string]string{"field": "name"})
	}
	return nil
}

// CreateSession turns the visitor's cart into a hosted checkout session. It
// never writes orders; those come from the payment webhook.
func (s *Service) CreateSession(ctx context.Context, session cart.Session, tenantSlug string, in Input) (*Result, error) {
	current := s.cart.Get(ctx, session)
	if current.IsEmpty() {
		s.metrics.IncCheckout("empty_cart")
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, pkgerrors.MetadataFor(pkgerrors.CodeEmptyCart).PublicMessage)
	}
	if err := ValidateInput(in); err != nil {
		s.metrics.IncCheckout("invalid")
		return nil, err
	}
	if s.gateway == nil {
		s.metrics.IncCheckout("not_configured")
		return nil, pkgerrors.New(pkgerrors.CodeGateway, MsgNotConfigured)
	}

	req, err := s.buildRequest(current, tenantSlug, in)
	if errors.Is(err, stripe.ErrMetadataTooLarge) {
		s.metrics.IncCheckout("invalid")
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, MsgCartTooLarge)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart snapshot")
	}

	created, err := s.gateway.CreateSession(ctx, req)
	if err != nil {
		s.metrics.IncCheckout("gateway_error")
		if s.logg != nil {
			s.logg.Error(s.logg.WithCartSession(ctx, session.ID), "checkout.session_create_failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, stripe.ErrorMessage(err))
	}
	if created == nil || created.URL == "" {
		s.metrics.IncCheckout("no_url")
		return nil, pkgerrors.New(pkgerrors.CodeGateway, MsgSessionNoURL)
	}

	s.metrics.IncCheckout("created")
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"checkout_session_id": created.ID,
			"item_count":          current.ItemCount,
			"cart_total":          current.Total.StringFixed(2),
		})
		s.logg.Info(logCtx, "checkout.session_created")
	}
	return &Result{SessionID: created.ID, URL: created.URL}, nil
}

func (s *Service) buildRequest(current cart.Cart, tenantSlug string, in Input) (stripe.SessionRequest, error) {
	snapshot, err := json.Marshal(current.Items)
	if err != nil {
		return stripe.SessionRequest{}, err
	}
	metadata, err := stripe.SplitMetadata(MetaCartItems, string(snapshot))
	if err != nil {
		return stripe.SessionRequest{}, err
	}
	metadata[MetaCustomerName] = truncateRunes(strings.TrimSpace(in.Name), stripe.MetadataValueLimit)
	metadata[MetaTenant] = tenantSlug
	lines := make([]stripe.LineItem, 0, len(current.Items))
	for _, item := range current.Items {
		lines = append(lines, stripe.LineItem{
			Name:       item.Name,
			Image:      s.absoluteImage(item.Image),
			UnitAmount: types.MinorUnits(item.Price),
			Quantity:   int64(item.Quantity),
			Metadata: map[string]string{
				"productId": item.ProductID,
				"slug":      item.Slug,
			},
		})
	}
	return stripe.SessionRequest{
		CustomerEmail:    strings.TrimSpace(in.Email),
		Currency:         s.currency,
		LineItems:        lines,
		Shipping:         s.shipping.Option(current.Total),
		AllowedCountries: s.countries,
		Metadata:         metadata,
		SuccessURL:       s.appURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:        s.appURL + "/cart",
	}, nil
}

// absoluteImage makes site-relative image paths reachable by the gateway.
func (s *Service) absoluteImage(image string) string {
	if image == "" || strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return image
	}
	if !strings.HasPrefix(image, "/") {
		image = "/" + image
	}
	return s.appURL + image
}

// ConfirmSession looks up a finished gateway session and clears the visitor's
// cart once payment has gone through.
func (s *Service) ConfirmSession(ctx context.Context, session cart.Session, checkoutSessionID string) (*Confirmation, error) {
	checkoutSessionID = strings.TrimSpace(checkoutSessionID)
	if checkoutSessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, MsgSessionIDMissing)
	}
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, MsgNotConfigured)
	}
	found, err := s.gateway.GetSession(ctx, checkoutSessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, stripe.ErrorMessage(err))
	}
	if found == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}

	out := &Confirmation{
		SessionID:     found.ID,
		PaymentStatus: found.PaymentStatus,
		CustomerEmail: found.CustomerEmail,
		AmountTotal:   found.AmountTotal,
		Currency:      found.Currency,
	}
	if found.PaymentStatus == "paid" || found.PaymentStatus == "no_payment_required" {
		if _, err := s.cart.Clear(ctx, session); err != nil {
			if s.logg != nil {
				logCtx := s.logg.WithField(s.logg.WithCartSession(ctx, session.ID), "error", err.Error())
				s.logg.Warn(logCtx, "checkout.cart_clear_failed")
			}
		} else {
			out.CartCleared = true
		}
	}
	return out, nil
}
