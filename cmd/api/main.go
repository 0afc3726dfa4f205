package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/rapidsites/storefront/api/controllers"
	"github.com/rapidsites/storefront/api/routes"
	"github.com/rapidsites/storefront/internal/auth"
	"github.com/rapidsites/storefront/internal/cart"
	"github.com/rapidsites/storefront/internal/checkout"
	"github.com/rapidsites/storefront/internal/contact"
	"github.com/rapidsites/storefront/internal/customers"
	"github.com/rapidsites/storefront/internal/newsletter"
	"github.com/rapidsites/storefront/internal/orders"
	"github.com/rapidsites/storefront/internal/products"
	"github.com/rapidsites/storefront/internal/tenants"
	stripewebhook "github.com/rapidsites/storefront/internal/webhooks/stripe"
	"github.com/rapidsites/storefront/pkg/config"
	"github.com/rapidsites/storefront/pkg/db"
	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/mailer"
	"github.com/rapidsites/storefront/pkg/metrics"
	"github.com/rapidsites/storefront/pkg/migrate"
	"github.com/rapidsites/storefront/pkg/outbox"
	"github.com/rapidsites/storefront/pkg/redis"
	stripeclient "github.com/rapidsites/storefront/pkg/stripe"
)

const (
	shutdownTimeout   = 15 * time.Second
	webhookEventScope = "stripe_event"
)

func main() {
	// Amounts in API responses and event payloads are JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return multierr.Append(err, dbClient.Close())
	}
	defer func() {
		err = multierr.Combine(err, redisClient.Close(), dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	deps, err := wire(ctx, cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr}), "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(context.Background(), "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// wire builds every service the router depends on.
func wire(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Deps, error) {
	conn := dbClient.DB()
	storefrontMetrics := metrics.NewStorefrontMetrics(prometheus.DefaultRegisterer)

	tenantSvc, err := tenants.NewService(tenants.ServiceParams{
		Repo:          tenants.NewRepository(conn),
		BaseDomain:    cfg.Tenancy.BaseDomain,
		DefaultTenant: cfg.Tenancy.DefaultTenant,
		Logger:        logg,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	productSvc, err := products.NewService(products.NewRepository(conn))
	if err != nil {
		return routes.Deps{}, err
	}

	cartRepo, err := cart.NewRedisRepository(redisClient, logg)
	if err != nil {
		return routes.Deps{}, err
	}
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:     cartRepo,
		Products: productSvc,
		TTL:      cfg.Cart.TTL,
		Logger:   logg,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	checkoutParams := checkout.ServiceParams{
		Cart:    cartSvc,
		Config:  cfg.Checkout,
		AppURL:  cfg.App.PublicURL,
		Logger:  logg,
		Metrics: storefrontMetrics,
	}
	if cfg.Stripe.Configured() {
		stripeClient, err := stripeclient.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return routes.Deps{}, err
		}
		gateway, err := stripeclient.NewCheckoutGateway(stripeClient)
		if err != nil {
			return routes.Deps{}, err
		}
		guarded, err := stripeclient.NewGuardedGateway(gateway, stripeclient.BreakerSettings{
			Failures: cfg.Stripe.BreakerTrips,
			Cooldown: cfg.Stripe.BreakerCool,
		}, logg)
		if err != nil {
			return routes.Deps{}, err
		}
		checkoutParams.Gateway = guarded
	} else {
		logg.Warn(ctx, "stripe api key not set, checkout disabled")
	}
	checkoutSvc, err := checkout.NewService(checkoutParams)
	if err != nil {
		return routes.Deps{}, err
	}

	tx := db.NewFromConn(conn)
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:    orders.NewRepository(conn),
		Tx:      tx,
		Outbox:  outbox.NewEmitter(outbox.NewRepository(conn), logg),
		Numbers: orders.NewNumberGenerator(cfg.Checkout.OrderNumberPrefix),
	})
	if err != nil {
		return routes.Deps{}, err
	}
	customerSvc, err := customers.NewService(customers.NewRepository(conn), tx)
	if err != nil {
		return routes.Deps{}, err
	}

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:    orderSvc,
		Customers: customerSvc,
		Stock:     productSvc,
		Tenants:   tenantSvc,
		Logger:    logg,
		Metrics:   storefrontMetrics,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	guard, err := stripewebhook.NewEventGuard(redisClient, cfg.Stripe.EventRetention, webhookEventScope)
	if err != nil {
		return routes.Deps{}, err
	}

	mail := mailer.NewSendGrid(cfg.Sendgrid, logg)
	if !mail.Configured() {
		logg.Warn(ctx, "sendgrid api key not set, outbound email disabled")
	}
	newsletterSvc, err := newsletter.NewService(customerSvc, mail, logg)
	if err != nil {
		return routes.Deps{}, err
	}
	contactSvc, err := contact.NewService(mail, logg)
	if err != nil {
		return routes.Deps{}, err
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		Repo:      auth.NewRepository(conn),
		JWTConfig: cfg.JWT,
		Password:  cfg.Password,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	return routes.Deps{
		Readiness:     map[string]controllers.Pinger{"database": dbClient, "redis": redisClient},
		Metrics:       prometheus.DefaultGatherer,
		RateLimiter:   redisClient,
		Tenants:       tenantSvc,
		Products:      productSvc,
		Cart:          cartSvc,
		Checkout:      checkoutSvc,
		Webhooks:      webhookSvc,
		WebhookGuard:  guard,
		StripeSecrets: cfg.Stripe,
		Newsletter:    newsletterSvc,
		Contact:       contactSvc,
		Auth:          authSvc,
		Orders:        orderSvc,
	}, nil
}
