package main

import (
	"context"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hongminglow/ip-registry-be/internal/config"
	postgres "github.com/hongminglow/ip-registry-be/internal/storage/postgres"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			store, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return oops.Code("MIGRATION_FAILED").Wrap(err)
			}
			logger.Info("migrations applied")
			return nil
		},
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*postgres.Store, error) {
	store, err := postgres.NewAccountStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect database", zap.Error(err))
		return nil, oops.Code("DATABASE_UNAVAILABLE").Wrap(err)
	}
	logger.Info("database connected")
	return store, nil
}
