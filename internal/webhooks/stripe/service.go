package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/rapidsites/storefront/internal/checkout"
	"github.com/rapidsites/storefront/internal/customers"
	"github.com/rapidsites/storefront/internal/orders"
	"github.com/rapidsites/storefront/internal/tenants"
	"github.com/rapidsites/storefront/pkg/db/models"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/metrics"
	stripeclient "github.com/rapidsites/storefront/pkg/stripe"
	"github.com/rapidsites/storefront/pkg/types"
)

const MsgMissingCartItems = "Missing cart items"

type orderCreator interface {
	CreateFromCheckout(ctx context.Context, input orders.CreateInput) (*models.Order, error)
}

type purchaseRecorder interface {
	RecordPurchase(ctx context.Context, p customers.Purchase) error
}

type stockDecrementer interface {
	DecrementStock(ctx context.Context, tenantID uuid.UUID, productID string, qty int) error
}

type tenantLookup interface {
	BySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

type ServiceParams struct {
	Orders    orderCreator
	Customers purchaseRecorder
	Stock     stockDecrementer
	Tenants   tenantLookup
	Logger    *logger.Logger
	Metrics   *metrics.StorefrontMetrics
}

// Result describes how an event was handled.
type Result struct {
	Duplicate   bool
	OrderID     uuid.UUID
	OrderNumber string
}

// Service reconciles verified payment gateway events into orders.
type Service struct {
	orders    orderCreator
	customers purchaseRecorder
	stock     stockDecrementer
	tenants   tenantLookup
	logg      *logger.Logger
	metrics   *metrics.StorefrontMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	if params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customer service required")
	}
	if params.Stock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stock service required")
	}
	if params.Tenants == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tenant lookup required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orders:    params.Orders,
		customers: params.Customers,
		stock:     params.Stock,
		tenants:   params.Tenants,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}, nil
}

// HandleEvent dispatches a verified event. Event types without a handler are
// acknowledged with an empty result.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (Result, error) {
	if event == nil || event.Data == nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	eventType := string(event.Type)
	ctx = s.logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": eventType})
	started := time.Now()
	defer func() { s.metrics.ObserveWebhook(eventType, time.Since(started)) }()

	var (
		res Result
		err error
	)
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		res, err = s.handleCheckoutCompleted(ctx, event.Data.Raw)
	case stripe.EventTypePaymentIntentPaymentFailed:
		s.logPaymentFailed(ctx, event.Data.Raw)
	default:
		s.logg.Debug(ctx, "stripe event ignored")
		s.metrics.IncWebhook(eventType, "ignored")
		return Result{}, nil
	}

	switch {
	case err != nil:
		s.metrics.IncWebhook(eventType, "error")
	case res.Duplicate:
		s.metrics.IncWebhook(eventType, "duplicate")
	default:
		s.metrics.IncWebhook(eventType, "processed")
	}
	return res, err
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, raw json.RawMessage) (Result, error) {
	session, err := stripeclient.DecodeCompletedSession(raw)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}
	ctx = s.logg.WithField(ctx, "stripe_session_id", session.ID)

	items, err := parseCartItems(stripeclient.JoinMetadata(session.Metadata, checkout.MetaCartItems))
	if err != nil {
		return Result{}, err
	}

	tenant, err := s.tenantFor(ctx, session.Metadata[checkout.MetaTenant])
	if err != nil {
		return Result{}, err
	}
	ctx = s.logg.WithTenant(ctx, tenant.Slug)

	input := orders.CreateInput{
		TenantID:          tenant.ID,
		CustomerEmail:     session.CustomerEmail,
		CustomerName:      customerName(session),
		CustomerPhone:     session.CustomerPhone,
		ShippingAddress:   session.ShippingAddress,
		Items:             items,
		Shipping:          types.FromMinorUnits(session.ShippingTotal),
		Tax:               types.FromMinorUnits(session.TaxTotal),
		Currency:          session.Currency,
		ExternalSessionID: session.ID,
		ExternalPaymentID: session.PaymentIntentID,
	}
	if session.AmountTotal > 0 {
		total := types.FromMinorUnits(session.AmountTotal)
		input.Total = &total
	}

	order, err := s.orders.CreateFromCheckout(ctx, input)
	if pkgerrors.IsCode(err, pkgerrors.CodeDuplicateEvent) {
		s.logg.Info(ctx, "order already recorded for checkout session")
		return Result{Duplicate: true}, nil
	}
	if err != nil {
		s.logg.Error(ctx, "failed to create order", err)
		return Result{}, err
	}

	ctx = s.logg.WithField(ctx, "order_number", order.OrderNumber)
	s.metrics.IncOrderCreated(tenant.Slug)
	s.logg.Info(ctx, "order created")

	if err := s.customers.RecordPurchase(ctx, customers.Purchase{
		TenantID: tenant.ID,
		Email:    order.CustomerEmail,
		Name:     order.CustomerName,
		Phone:    session.CustomerPhone,
		Total:    order.Total,
		Address:  order.ShippingAddress,
		At:       order.CreatedAt,
	}); err != nil {
		s.logg.Error(ctx, "failed to record customer purchase", err)
	}

	for _, item := range items {
		if err := s.stock.DecrementStock(ctx, tenant.ID, item.ProductID, item.Quantity); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "product_id", item.ProductID), "failed to decrement stock", err)
		}
	}

	return Result{OrderID: order.ID, OrderNumber: order.OrderNumber}, nil
}

func (s *Service) tenantFor(ctx context.Context, slug string) (*models.Tenant, error) {
	if strings.TrimSpace(slug) == "" {
		if t := tenants.FromContext(ctx); t != nil {
			return t, nil
		}
	}
	t, err := s.tenants.BySlug(ctx, slug)
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("unknown tenant %q", slug))
	}
	return t, err
}

func (s *Service) logPaymentFailed(ctx context.Context, raw json.RawMessage) {
	var intent struct {
		ID               string `json:"id"`
		LastPaymentError *struct {
			Message string `json:"message"`
		} `json:"last_payment_error"`
	}
	if err := json.Unmarshal(raw, &intent); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment failed event not decodable")
		return
	}
	fields := map[string]any{"payment_intent_id": intent.ID}
	if intent.LastPaymentError != nil {
		fields["reason"] = intent.LastPaymentError.Message
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), "payment failed")
}

func parseCartItems(raw string) ([]types.CartItem, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, MsgMissingCartItems)
	}
	var items []types.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid cart items")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, MsgMissingCartItems)
	}
	for _, item := range items {
		if item.ProductID == "" || item.Quantity < 1 || item.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid cart items")
		}
	}
	return items, nil
}

func customerName(session *stripeclient.CompletedSession) string {
	if name := strings.TrimSpace(session.Metadata[checkout.MetaCustomerName]); name != "" {
		return name
	}
	if name := strings.TrimSpace(session.ShippingName); name != "" {
		return name
	}
	return strings.TrimSpace(session.CustomerName)
}
