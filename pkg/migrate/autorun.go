package migrate

import (
	"context"
	"fmt"

	"github.com/rapidsites/storefront/pkg/config"
	"github.com/rapidsites/storefront/pkg/db"
	"github.com/rapidsites/storefront/pkg/db/models"
	"github.com/rapidsites/storefront/pkg/logger"
)

// MaybeRunDev brings the schema up to date on boot for local development.
// SQLite builds are migrated from the models since the SQL files are
// postgres specific.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	if cfg.FeatureFlags.UseSQLite {
		logg.Info(ctx, "auto-migrating sqlite schema")
		return client.DB().WithContext(ctx).AutoMigrate(Models()...)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	runner, err := NewRunner(sqlDB, "")
	if err != nil {
		return err
	}
	done, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(done)), "schema up to date")
	return nil
}

// Models lists every persisted model, parents first.
func Models() []any {
	return []any{
		&models.Tenant{},
		&models.Product{},
		&models.Order{},
		&models.Customer{},
		&models.AdminUser{},
		&models.OutboxEvent{},
	}
}
