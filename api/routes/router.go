package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rapidsites/storefront/api/controllers"
	webhookcontrollers "github.com/rapidsites/storefront/api/controllers/webhooks"
	"github.com/rapidsites/storefront/api/middleware"
	"github.com/rapidsites/storefront/internal/auth"
	"github.com/rapidsites/storefront/internal/cart"
	"github.com/rapidsites/storefront/internal/checkout"
	"github.com/rapidsites/storefront/internal/contact"
	"github.com/rapidsites/storefront/internal/customers"
	"github.com/rapidsites/storefront/internal/orders"
	"github.com/rapidsites/storefront/internal/products"
	"github.com/rapidsites/storefront/internal/tenants"
	stripewebhook "github.com/rapidsites/storefront/internal/webhooks/stripe"
	"github.com/rapidsites/storefront/pkg/config"
	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/pagination"
)

type tenantService interface {
	Resolve(ctx context.Context, host string) (*models.Tenant, error)
	ToDTO(t *models.Tenant) tenants.TenantDTO
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type productCatalog interface {
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params) (pagination.Page[products.ProductDTO], error)
	GetBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*products.ProductDTO, error)
}

type checkoutService interface {
	CreateSession(ctx context.Context, session cart.Session, tenantSlug string, in checkout.Input) (*checkout.Result, error)
	ConfirmSession(ctx context.Context, session cart.Session, checkoutSessionID string) (*checkout.Confirmation, error)
}

type webhookGuard interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Remember(ctx context.Context, eventID string) error
}

type signingSecretSource interface {
	SigningSecret() string
}

type newsletterService interface {
	Subscribe(ctx context.Context, tenant *models.Tenant, email, name string) (customers.SubscribeResult, error)
}

type contactService interface {
	Submit(ctx context.Context, tenant *models.Tenant, in contact.Input) error
}

// Deps carries everything the HTTP surface is wired to.
type Deps struct {
	Readiness     map[string]controllers.Pinger
	Metrics       prometheus.Gatherer
	RateLimiter   rateLimiter
	Tenants       tenantService
	Products      productCatalog
	Cart          cart.Service
	Checkout      checkoutService
	Webhooks      webhookcontrollers.StripeWebhookService
	WebhookGuard  webhookGuard
	StripeSecrets signingSecretSource
	Newsletter    newsletterService
	Contact       contactService
	Auth          auth.Service
	Orders        orders.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	contactPolicy := middleware.NewRateLimitPolicy("contact", cfg.RateLimit.ContactWindow, cfg.RateLimit.ContactLimit, 0)
	newsletterPolicy := middleware.NewRateLimitPolicy("newsletter", cfg.RateLimit.ContactWindow, cfg.RateLimit.NewsletterLimit, 0)
	loginPolicy := middleware.NewRateLimitPolicy("login", cfg.RateLimit.LoginWindow, cfg.RateLimit.LoginIPLimit, cfg.RateLimit.LoginEmailLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Readiness, logg))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Raw body is verified against the signature; the tenant comes from
		// the session metadata, not the host.
		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(deps.Webhooks, deps.StripeSecrets, deps.WebhookGuard, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Tenant(deps.Tenants, logg))

			r.Get("/tenant", controllers.TenantConfig(deps.Tenants, logg))
			r.Get("/products", controllers.ProductList(deps.Products, logg))
			r.Get("/products/{slug}", controllers.ProductDetail(deps.Products, logg))

			r.With(middleware.RateLimit(newsletterPolicy, deps.RateLimiter, logg)).
				Post("/newsletter", controllers.NewsletterSubscribe(deps.Newsletter, logg))
			r.With(middleware.RateLimit(contactPolicy, deps.RateLimiter, logg)).
				Post("/contact", controllers.ContactSubmit(deps.Contact, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.CartSession(cfg.Cart, !cfg.App.IsDev(), logg))

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", controllers.CartFetch(deps.Cart, logg))
					r.Delete("/", controllers.CartClear(deps.Cart, logg))
					r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
					r.Patch("/items/{productId}", controllers.CartUpdateItem(deps.Cart, logg))
					r.Delete("/items/{productId}", controllers.CartRemoveItem(deps.Cart, logg))
				})
				r.Post("/checkout", controllers.CheckoutCreate(deps.Checkout, logg))
				r.Get("/checkout/confirm", controllers.CheckoutConfirm(deps.Checkout, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Tenant(deps.Tenants, logg))
		r.With(middleware.RateLimit(loginPolicy, deps.RateLimiter, logg)).
			Post("/auth/login", controllers.AdminLogin(deps.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAuth(deps.Auth, logg))
			r.Get("/orders", controllers.AdminOrderList(deps.Orders, logg))
			r.Get("/orders/{orderNumber}", controllers.AdminOrderDetail(deps.Orders, logg))
			r.Patch("/orders/{orderNumber}", controllers.AdminOrderUpdate(deps.Orders, logg))
		})
	})

	return r
}

var _ webhookcontrollers.StripeWebhookService = (*stripewebhook.Service)(nil)
