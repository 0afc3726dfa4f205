package controllers

import (
	"context"
	"net/http"

	"github.com/rapidsites/storefront/api/responses"
	"github.com/rapidsites/storefront/api/validators"
	"github.com/rapidsites/storefront/internal/customers"
	"github.com/rapidsites/storefront/pkg/db/models"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/logger"
)

type newsletterService interface {
	Subscribe(ctx context.Context, tenant *models.Tenant, email, name string) (customers.SubscribeResult, error)
}

type newsletterRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name" validate:"omitempty,max=100"`
}

func NewsletterSubscribe(svc newsletterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tenant, err := tenantFrom(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !tenant.Features.Newsletter {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "newsletter is not enabled"))
			return
		}

		var payload newsletterRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Subscribe(ctx, tenant, payload.Email, payload.Name)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
