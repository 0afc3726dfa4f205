package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/rapidsites/storefront/internal/auth"
	"github.com/rapidsites/storefront/internal/tenants"
	"github.com/rapidsites/storefront/pkg/config"
	"github.com/rapidsites/storefront/pkg/db"
	"github.com/rapidsites/storefront/pkg/env"
	"github.com/rapidsites/storefront/pkg/logger"
	"github.com/rapidsites/storefront/pkg/migrate"
)

const adminPasswordEnv = "STOREFRONT_ADMIN_PASSWORD"

const usage = `usage: migrate <command> [flags]

commands:
  up             apply all pending migrations
  down           roll back the latest migration
  status         list migrations and whether they are applied
  to             migrate up or down to -version
  create         write a new migration named -name
  validate       check migration files without a database
  create-admin   provision an admin for -tenant with -email and -name
`

type options struct {
	dir     string
	name    string
	version string
	tenant  string
	email   string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd := os.Args[1]

	var opts options
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.StringVar(&opts.dir, "dir", "", "migrations directory (embedded migrations when empty)")
	fs.StringVar(&opts.name, "name", "", "migration name, or admin display name for create-admin")
	fs.StringVar(&opts.version, "version", "", "target version for to")
	fs.StringVar(&opts.tenant, "tenant", "", "tenant slug for create-admin")
	fs.StringVar(&opts.email, "email", "", "admin email for create-admin")
	_ = fs.Parse(os.Args[2:])

	_ = godotenv.Load()
	if err := run(cmd, opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func run(cmd string, opts options) (err error) {
	// Offline commands need neither config nor a database.
	switch cmd {
	case "create":
		dir := opts.dir
		if dir == "" {
			dir = migrate.SourceDir
		}
		path, err := migrate.Create(dir, opts.name, time.Now())
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		fsys := migrate.Embedded()
		if opts.dir != "" {
			fsys = os.DirFS(opts.dir)
		}
		versions, err := migrate.Validate(fsys)
		if err != nil {
			return err
		}
		fmt.Printf("%d migrations ok\n", len(versions))
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if cmd == "create-admin" {
		return createAdmin(ctx, cfg, logg, dbClient, opts)
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, opts.dir)
	if err != nil {
		return err
	}

	switch cmd {
	case "up":
		done, err := runner.Up(ctx)
		printApplied(os.Stdout, "up", done)
		return err
	case "down":
		done, err := runner.Down(ctx)
		if err == nil && done.Version != 0 {
			printApplied(os.Stdout, "down", []migrate.Applied{done})
		}
		return err
	case "to":
		target, err := migrate.ParseVersion(opts.version)
		if err != nil {
			return err
		}
		done, err := runner.To(ctx, target)
		printApplied(os.Stdout, "to", done)
		return err
	case "status":
		rows, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		printStatus(os.Stdout, rows)
		return nil
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

func printApplied(w io.Writer, direction string, done []migrate.Applied) {
	if len(done) == 0 {
		fmt.Fprintln(w, "nothing to do")
		return
	}
	for _, m := range done {
		fmt.Fprintf(w, "%s %d %s (%s)\n", direction, m.Version, m.Path, m.Duration.Round(time.Millisecond))
	}
}

func printStatus(w io.Writer, rows []migrate.Status) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tAPPLIED AT\tFILE")
	for _, row := range rows {
		at := "pending"
		if row.Applied {
			at = row.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", row.Version, at, row.Path)
	}
	_ = tw.Flush()
}

// createAdmin reads the password from the environment so it stays out of
// shell history.
func createAdmin(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, opts options) error {
	password := env.Secret(adminPasswordEnv)
	if password == "" {
		return fmt.Errorf("%s must be set", adminPasswordEnv)
	}
	if opts.email == "" {
		return errors.New("-email is required")
	}

	tenantSvc, err := tenants.NewService(tenants.ServiceParams{
		Repo:          tenants.NewRepository(dbClient.DB()),
		BaseDomain:    cfg.Tenancy.BaseDomain,
		DefaultTenant: cfg.Tenancy.DefaultTenant,
		Logger:        logg,
	})
	if err != nil {
		return err
	}
	tenant, err := tenantSvc.BySlug(ctx, opts.tenant)
	if err != nil {
		return err
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		Repo:      auth.NewRepository(dbClient.DB()),
		JWTConfig: cfg.JWT,
		Password:  cfg.Password,
	})
	if err != nil {
		return err
	}
	admin, err := authSvc.CreateAdmin(ctx, tenant.ID, opts.email, opts.name, password)
	if err != nil {
		return err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"tenant": tenant.Slug, "admin_id": admin.ID.String()}), "admin created")
	fmt.Println("created admin", admin.Email)
	return nil
}
