package main

import (
	"fmt"

	"user-management-api/cmd/api/infrastructure"
	"user-management-api/internal/adapter/db/gormrepo"
	"user-management-api/internal/config"
	"user-management-api/pkg/logger"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// migrateCommand creates or updates the users table
func migrateCommand(c *cli.Context) error {
	repo, closeFn, err := openRepo(c)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := repo.AutoMigrate(c.Context); err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, "migration complete")
	return nil
}

// seedCommand inserts the demo users
func seedCommand(c *cli.Context) error {
	repo, closeFn, err := openRepo(c)
	if err != nil {
		return err
	}
	defer closeFn()

	if c.Bool("migrate") {
		if err := repo.AutoMigrate(c.Context); err != nil {
			return err
		}
	}

	inserted, err := repo.SeedDemoUsers(c.Context)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "seeded %d of %d demo users\n", inserted, len(gormrepo.DemoUsers))
	return nil
}

// openRepo loads configuration and connects to the database
func openRepo(c *cli.Context) (*gormrepo.UserRepoGorm, func(), error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Only warnings and errors: the command prints its own summary
	l, err := logger.NewWithConfig(logger.Config{
		Level:          "warn",
		Format:         "console",
		OutputPath:     "stderr",
		ServiceName:    cfg.Logger.ServiceName,
		ServiceVersion: cfg.Logger.ServiceVersion,
		Environment:    cfg.App.Env,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := infrastructure.NewDatabase(c.Context, cfg, l)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		if err := infrastructure.CloseDatabase(db); err != nil {
			l.Warn("failed to close database", zap.Error(err))
		}
		_ = l.Sync()
	}
	return gormrepo.NewUserRepoGorm(db, l), closeFn, nil
}
