package admin

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/ragdoc/internal/config"
	"github.com/cloo-solutions/ragdoc/internal/database"
	"github.com/cloo-solutions/ragdoc/internal/logging"
)

const defaultMigrationsDir = "migrations"

func MigrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", defaultMigrationsDir, "Migrations directory")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadForMigrate()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return migrateUp(cfg.DatabaseURL, dir, logger)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadForMigrate()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return migrateDown(cfg.DatabaseURL, dir, logger)
		},
	})

	return cmd
}

func loadForMigrate() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasPostgres() {
		return nil, nil, fmt.Errorf("RAGDOC_DATABASE_URL is required for migrations")
	}
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func migrateUp(databaseURL, dir string, logger *zap.Logger) error {
	status, err := database.MigrateUp(databaseURL, dir)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", zap.Uint("version", status.Version), zap.Bool("up_to_date", status.UpToDate))
	return nil
}

func migrateDown(databaseURL, dir string, logger *zap.Logger) error {
	rolledBack, err := database.MigrateDown(databaseURL, dir)
	if err != nil {
		return err
	}
	if !rolledBack {
		logger.Info("no migrations to roll back")
		return nil
	}
	logger.Info("rolled back one migration")
	return nil
}
