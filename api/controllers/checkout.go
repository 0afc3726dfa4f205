package controllers

import (
	"context"
	"net/http"

	"github.com/rapidsites/storefront/api/responses"
	"github.com/rapidsites/storefront/api/validators"
	"github.com/rapidsites/storefront/internal/cart"
	"github.com/rapidsites/storefront/internal/checkout"
	"github.com/rapidsites/storefront/pkg/logger"
)

type checkoutService interface {
	CreateSession(ctx context.Context, session cart.Session, tenantSlug string, in checkout.Input) (*checkout.Result, error)
	ConfirmSession(ctx context.Context, session cart.Session, checkoutSessionID string) (*checkout.Confirmation, error)
}

// CheckoutCreate starts a hosted checkout for the visitor's cart and answers
// with the flat {success, url|error} body the checkout form reads.
func CheckoutCreate(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session, err := cartSessionFrom(ctx)
		if err != nil {
			responses.WriteCheckout(ctx, logg, w, "", err)
			return
		}
		tenant, err := tenantFrom(ctx)
		if err != nil {
			responses.WriteCheckout(ctx, logg, w, "", err)
			return
		}

		var payload checkout.Input
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteCheckout(ctx, logg, w, "", err)
			return
		}

		result, err := svc.CreateSession(ctx, session, tenant.Slug, payload)
		if err != nil {
			responses.WriteCheckout(ctx, logg, w, "", err)
			return
		}
		responses.WriteCheckout(ctx, logg, w, result.URL, nil)
	}
}

// CheckoutConfirm reports a finished checkout session for the success page.
func CheckoutConfirm(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session, err := cartSessionFrom(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		confirmation, err := svc.ConfirmSession(ctx, session, r.URL.Query().Get("session_id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, confirmation)
	}
}
