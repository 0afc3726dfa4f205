package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/rapidsites/storefront/internal/relay"
	"github.com/rapidsites/storefront/pkg/config"
	"github.com/rapidsites/storefront/pkg/db"
	"github.com/rapidsites/storefront/pkg/instance"
	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/metrics"
	"github.com/rapidsites/storefront/pkg/migrate"
	"github.com/rapidsites/storefront/pkg/outbox"
	"github.com/rapidsites/storefront/pkg/outbox/registry"
	"github.com/rapidsites/storefront/pkg/pubsub"
)

func main() {
	// Amounts in API responses and event payloads are JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "instance": instance.ID()})

	catalog, err := registry.NewCatalog(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("event catalog: %w", err)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, catalog.Topics(), logg)
	if err != nil {
		return multierr.Combine(fmt.Errorf("bootstrap pubsub: %w", err), dbClient.Close())
	}
	defer func() {
		err = multierr.Combine(err, pubsubClient.Close(), dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	r, err := relay.New(relay.Params{
		DB:           dbClient,
		Store:        outbox.NewRepository(dbClient.DB()),
		Catalog:      catalog,
		Sender:       pubsubClient,
		Logger:       logg,
		Metrics:      metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		PollInterval: time.Duration(cfg.Outbox.PollIntervalMS) * time.Millisecond,
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "starting outbox publisher")
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "outbox publisher shutting down")
	return nil
}
