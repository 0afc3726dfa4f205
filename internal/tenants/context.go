package tenants

import (
	"context"

	"github.com/rapidsites/storefront/pkg/db/models"
)

type contextKey struct{}

// WithContext stores the resolved tenant for downstream handlers.
func WithContext(ctx context.Context, t *models.Tenant) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the tenant resolved for the request, or nil.
func FromContext(ctx context.Context) *models.Tenant {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(contextKey{}).(*models.Tenant)
	return t
}
