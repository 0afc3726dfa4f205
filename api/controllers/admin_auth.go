package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/rapidsites/storefront/api/responses"
	"github.com/rapidsites/storefront/api/validators"
	"github.com/rapidsites/storefront/internal/auth"
	"github.com/rapidsites/storefront/pkg/logger"
)

type adminLoginService interface {
	Login(ctx context.Context, tenantID uuid.UUID, req auth.LoginRequest) (*auth.LoginResponse, error)
}

// AdminLogin exchanges tenant admin credentials for a bearer token.
func AdminLogin(svc adminLoginService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tenant, err := tenantFrom(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload auth.LoginRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Login(ctx, tenant.ID, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
