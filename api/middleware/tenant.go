package middleware

import (
	"context"
	"net/http"

	"github.com/rapidsites/storefront/api/responses"
	"github.com/rapidsites/storefront/internal/tenants"
	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/logger"
)

type tenantResolver interface {
	Resolve(ctx context.Context, host string) (*models.Tenant, error)
}

// Tenant resolves the storefront for the request host and stores it in the
// request context.
func Tenant(resolver tenantResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := r.Header.Get("X-Forwarded-Host")
			if host == "" {
				host = r.Host
			}
			tenant, err := resolver.Resolve(r.Context(), host)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ctx := tenants.WithContext(r.Context(), tenant)
			if logg != nil {
				ctx = logg.WithTenant(ctx, tenant.Slug)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
