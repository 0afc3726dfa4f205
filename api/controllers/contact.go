package controllers

import (
	"context"
	"net/http"

	"github.com/rapidsites/storefront/api/responses"
	"github.com/rapidsites/storefront/api/validators"
	"github.com/rapidsites/storefront/internal/contact"
	"github.com/rapidsites/storefront/pkg/db/models"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/logger"
)

type contactService interface {
	Submit(ctx context.Context, tenant *models.Tenant, in contact.Input) error
}

type contactResponse struct {
	Message string `json:"message"`
}

func ContactSubmit(svc contactService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tenant, err := tenantFrom(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !tenant.Features.Contact {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "contact form is not enabled"))
			return
		}

		var payload contact.Input
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Submit(ctx, tenant, payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, contactResponse{Message: contact.MsgSent})
	}
}
