package controllers

import (
	"net/http"

	"github.com/rapidsites/storefront/api/responses"
	"github.com/rapidsites/storefront/internal/tenants"
	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/logger"
)

type tenantPresenter interface {
	ToDTO(t *models.Tenant) tenants.TenantDTO
}

// TenantConfig returns the theme and feature flags of the resolved tenant.
func TenantConfig(svc tenantPresenter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := tenantFrom(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.ToDTO(tenant))
	}
}
