package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hongminglow/ip-registry-be/internal/config"
	"github.com/hongminglow/ip-registry-be/internal/logging"
)

// NewRootCmd creates the root command. Invoked bare it behaves like serve.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "server",
		Short:        "IP registry backend",
		Long:         "IP registry backend. Runs the HTTP API when no subcommand is given.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), false)
		},
	}
	root.AddCommand(NewServeCmd(), NewMigrateCmd())
	return root
}

// setup loads configuration and installs the process logger.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, err
	}
	zap.ReplaceGlobals(logger)
	if dotenvErr != nil {
		logger.Info("no .env file found; relying on existing environment")
	}
	return cfg, logger, nil
}
