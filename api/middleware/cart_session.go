package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rapidsites/storefront/pkg/config"
	"github.com/rapidsites/storefront/pkg/logger"
)

// CartSession reads the opaque cart cookie, issuing a new one when absent or
// malformed. The cookie is refreshed on every request so it expires together
// with the stored cart.
func CartSession(cfg config.CartConfig, secure bool, logg *logger.Logger) func(http.Handler) http.Handler {
	name := cfg.CookieName
	if name == "" {
		name = "cart_session"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := ""
			if c, err := r.Cookie(name); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					session = id.String()
				}
			}
			if session == "" {
				session = uuid.NewString()
			}

			http.SetCookie(w, &http.Cookie{
				Name:     name,
				Value:    session,
				Path:     "/",
				Domain:   cfg.CookieDomain,
				MaxAge:   int(ttl.Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := WithCartSession(r.Context(), session)
			if logg != nil {
				ctx = logg.WithCartSession(ctx, session)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
