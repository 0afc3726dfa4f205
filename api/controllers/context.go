package controllers

import (
	"context"

	"github.com/rapidsites/storefront/api/middleware"
	"github.com/rapidsites/storefront/internal/cart"
	"github.com/rapidsites/storefront/internal/tenants"
	"github.com/rapidsites/storefront/pkg/db/models"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
)

func tenantFrom(ctx context.Context) (*models.Tenant, error) {
	tenant := tenants.FromContext(ctx)
	if tenant == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	return tenant, nil
}

// cartSessionFrom combines the resolved tenant and the visitor cookie.
func cartSessionFrom(ctx context.Context) (cart.Session, error) {
	tenant, err := tenantFrom(ctx)
	if err != nil {
		return cart.Session{}, err
	}
	id := middleware.CartSessionFromContext(ctx)
	if id == "" {
		return cart.Session{}, pkgerrors.New(pkgerrors.CodeInternal, "cart session missing")
	}
	return cart.Session{TenantID: tenant.ID, ID: id}, nil
}
