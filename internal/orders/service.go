package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/enums"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/outbox"
	"github.com/rapidsites/storefront/pkg/outbox/payloads"
	"github.com/rapidsites/storefront/pkg/pagination"
	"github.com/rapidsites/storefront/pkg/types"
)

const maxNumberAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type numberSource interface {
	Next() string
}

// Service records paid orders and exposes admin order management.
type Service interface {
	CreateFromCheckout(ctx context.Context, input CreateInput) (*models.Order, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filters ListFilters) (pagination.Page[OrderDTO], error)
	Get(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*OrderDTO, error)
	Update(ctx context.Context, input UpdateInput) (*OrderDTO, error)
}

// CreateInput is a completed checkout ready to be persisted.
type CreateInput struct {
	TenantID          uuid.UUID
	CustomerEmail     string
	CustomerName      string
	CustomerPhone     string
	ShippingAddress   types.Address
	Items             []types.CartItem
	Shipping          decimal.Decimal
	Tax               decimal.Decimal
	Total             *decimal.Decimal
	Currency          string
	ExternalSessionID string
	ExternalPaymentID string
}

// UpdateInput carries an admin edit. Nil fields are left unchanged.
type UpdateInput struct {
	TenantID        uuid.UUID
	OrderNumber     string
	Status          *enums.OrderStatus
	TrackingNumber  *string
	ShippingCarrier *enums.ShippingCarrier
	Notes           *string
	ActorID         uuid.UUID
}

type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Numbers numberSource
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	numbers numberSource
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	numbers := params.Numbers
	if numbers == nil {
		numbers = NewNumberGenerator("")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		numbers: numbers,
	}, nil
}

// allowedTransitions lists the statuses an order may move to from each status.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled, enums.OrderStatusRefunded},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered, enums.OrderStatusRefunded},
	enums.OrderStatusDelivered:  {enums.OrderStatusRefunded},
}

func canTransition(from, to enums.OrderStatus) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CreateFromCheckout persists the order and queues order_created in one
// transaction. A second call for the same gateway session yields DUPLICATE_EVENT.
func (s *service) CreateFromCheckout(ctx context.Context, input CreateInput) (*models.Order, error) {
	if strings.TrimSpace(input.ExternalSessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}

	subtotal, count := types.SumItems(input.Items)
	total := subtotal
	if input.Total != nil {
		total = *input.Total
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "AUD"
	}

	order := &models.Order{
		TenantID:          input.TenantID,
		Status:            enums.OrderStatusProcessing,
		CustomerEmail:     strings.TrimSpace(input.CustomerEmail),
		CustomerName:      strings.TrimSpace(input.CustomerName),
		CustomerPhone:     optional(input.CustomerPhone),
		ShippingAddress:   input.ShippingAddress.Normalized(),
		Items:             input.Items,
		Subtotal:          subtotal,
		Shipping:          input.Shipping,
		Tax:               input.Tax,
		Total:             total,
		Currency:          currency,
		ExternalSessionID: input.ExternalSessionID,
		ExternalPaymentID: optional(input.ExternalPaymentID),
	}

	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		order.ID = uuid.Nil
		order.OrderNumber = s.numbers.Next()
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				TenantID:      order.TenantID,
				Data: payloads.OrderCreatedEvent{
					OrderID:       order.ID,
					OrderNumber:   order.OrderNumber,
					TenantID:      order.TenantID,
					CustomerEmail: order.CustomerEmail,
					Total:         order.Total,
					Currency:      order.Currency,
					ItemCount:     count,
				},
			})
		})
		if !errors.Is(err, ErrDuplicateNumber) {
			break
		}
	}

	switch {
	case err == nil:
		return order, nil
	case errors.Is(err, ErrDuplicateSession):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDuplicateEvent, err, "order already exists for session")
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create order")
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filters ListFilters) (pagination.Page[OrderDTO], error) {
	cursor, err := pagination.Decode(params.Cursor)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filters.Email = strings.ToLower(strings.TrimSpace(filters.Email))
	rows, err := s.repo.List(ctx, tenantID, params.Limit, cursor, filters)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return pagination.Build(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}, ToDTO), nil
}

func (s *service) Get(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*OrderDTO, error) {
	order, err := s.load(ctx, s.repo, tenantID, orderNumber)
	if err != nil {
		return nil, err
	}
	dto := ToDTO(*order)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*OrderDTO, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if input.ShippingCarrier != nil && !input.ShippingCarrier.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping carrier")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.TenantID, input.OrderNumber)
		if err != nil {
			return err
		}
		previous := order.Status

		updates := map[string]any{}
		if input.Status != nil && *input.Status != order.Status {
			if !canTransition(order.Status, *input.Status) {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("cannot move order from %s to %s", order.Status, *input.Status))
			}
			updates["status"] = *input.Status
			order.Status = *input.Status
		}
		if input.TrackingNumber != nil {
			updates["tracking_number"] = optional(*input.TrackingNumber)
			order.TrackingNumber = optional(*input.TrackingNumber)
		}
		if input.ShippingCarrier != nil {
			updates["shipping_carrier"] = *input.ShippingCarrier
			order.ShippingCarrier = input.ShippingCarrier
		}
		if input.Notes != nil {
			updates["notes"] = optional(*input.Notes)
			order.Notes = optional(*input.Notes)
		}
		if len(updates) == 0 {
			updated = order
			return nil
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update order")
		}
		updated = order

		if previous == order.Status {
			return nil
		}
		var actor *outbox.Actor
		if input.ActorID != uuid.Nil {
			actor = outbox.AdminActor(input.ActorID)
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			TenantID:      order.TenantID,
			Actor:         actor,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				TenantID:       order.TenantID,
				PreviousStatus: previous,
				Status:         order.Status,
				TrackingNumber: deref(order.TrackingNumber),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "queue status event")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update order")
	}
	dto := ToDTO(*updated)
	return &dto, nil
}

func (s *service) load(ctx context.Context, repo Repository, tenantID uuid.UUID, orderNumber string) (*models.Order, error) {
	orderNumber = strings.ToUpper(strings.TrimSpace(orderNumber))
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	order, err := repo.FindByNumber(ctx, tenantID, orderNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
