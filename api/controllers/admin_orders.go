package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rapidsites/storefront/api/middleware"
	"github.com/rapidsites/storefront/api/responses"
	"github.com/rapidsites/storefront/api/validators"
	"github.com/rapidsites/storefront/internal/orders"
	"github.com/rapidsites/storefront/pkg/enums"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/pagination"
)

type adminOrderService interface {
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filters orders.ListFilters) (pagination.Page[orders.OrderDTO], error)
	Get(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*orders.OrderDTO, error)
	Update(ctx context.Context, input orders.UpdateInput) (*orders.OrderDTO, error)
}

type updateOrderRequest struct {
	Status          *string `json:"status,omitempty"`
	TrackingNumber  *string `json:"trackingNumber,omitempty" validate:"omitempty,max=100"`
	ShippingCarrier *string `json:"shippingCarrier,omitempty"`
	Notes           *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

func (r updateOrderRequest) toInput(tenantID, actorID uuid.UUID, orderNumber string) (orders.UpdateInput, error) {
	input := orders.UpdateInput{
		TenantID:       tenantID,
		OrderNumber:    orderNumber,
		TrackingNumber: r.TrackingNumber,
		Notes:          r.Notes,
		ActorID:        actorID,
	}
	if r.Status != nil {
		status, err := enums.ParseOrderStatus(strings.TrimSpace(*r.Status))
		if err != nil {
			return orders.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status").
				WithDetails(map[string]string{"field": "status"})
		}
		input.Status = &status
	}
	if r.ShippingCarrier != nil {
		carrier, err := enums.ParseShippingCarrier(strings.TrimSpace(*r.ShippingCarrier))
		if err != nil {
			return orders.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping carrier").
				WithDetails(map[string]string{"field": "shippingCarrier"})
		}
		input.ShippingCarrier = &carrier
	}
	if input.Status == nil && input.ShippingCarrier == nil && input.TrackingNumber == nil && input.Notes == nil {
		return orders.UpdateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "no changes requested")
	}
	return input, nil
}

// AdminOrderList pages through the tenant's orders, newest first.
func AdminOrderList(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		claims := middleware.AdminFromContext(ctx)
		if claims == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin context missing"))
			return
		}

		params, err := validators.PageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		query := r.URL.Query()
		filters := orders.ListFilters{Email: strings.TrimSpace(query.Get("email"))}
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}

		page, err := svc.List(ctx, claims.TenantID, params, filters)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminOrderDetail(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		claims := middleware.AdminFromContext(ctx)
		if claims == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin context missing"))
			return
		}
		number, err := orderNumberParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Get(ctx, claims.TenantID, number)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminOrderUpdate applies status, tracking and note edits.
func AdminOrderUpdate(svc adminOrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		claims := middleware.AdminFromContext(ctx)
		if claims == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin context missing"))
			return
		}
		number, err := orderNumberParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateOrderRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input, err := payload.toInput(claims.TenantID, claims.AdminID, number)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Update(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func orderNumberParam(r *http.Request) (string, error) {
	number := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
	if number == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	return number, nil
}
