package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rapidsites/storefront/api/responses"
	"github.com/rapidsites/storefront/internal/tenants"
	pkgAuth "github.com/rapidsites/storefront/pkg/auth"
	pkgerrors "github.com/rapidsites/storefront/pkg/errors"
	"github.com/rapidsites/storefront/pkg/logger"
)

type adminAuthorizer interface {
	Authorize(ctx context.Context, token string) (*pkgAuth.AdminClaims, error)
}

// AdminAuth validates the bearer token and requires it to belong to the
// tenant resolved for the request.
func AdminAuth(authorizer adminAuthorizer, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := authorizer.Authorize(ctx, token)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if tenant := tenants.FromContext(ctx); tenant == nil || tenant.ID != claims.TenantID {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "access denied"))
				return
			}

			ctx = WithAdmin(ctx, claims)
			if logg != nil {
				ctx = logg.WithAdminID(ctx, claims.AdminID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) string {
	token := strings.TrimSpace(header)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return ""
}
