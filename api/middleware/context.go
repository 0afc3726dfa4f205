package middleware

import (
	"context"

	pkgAuth "github.com/rapidsites/storefront/pkg/auth"
)

type contextKey string

const (
	ctxAdmin       contextKey = "admin_claims"
	ctxCartSession contextKey = "cart_session"
)

// AdminFromContext returns the authenticated admin claims, or nil.
func AdminFromContext(ctx context.Context) *pkgAuth.AdminClaims {
	if ctx == nil {
		return nil
	}
	claims, _ := ctx.Value(ctxAdmin).(*pkgAuth.AdminClaims)
	return claims
}

// WithAdmin injects admin claims into the context.
func WithAdmin(ctx context.Context, claims *pkgAuth.AdminClaims) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAdmin, claims)
}

// CartSessionFromContext returns the visitor's cart session id.
func CartSessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCartSession).(string); ok {
		return v
	}
	return ""
}

func WithCartSession(ctx context.Context, session string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCartSession, session)
}
