// Package main implements the entry point for the activity logger API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/phrazzld/activity-logger/internal/config"
	"github.com/phrazzld/activity-logger/internal/platform/database"
	"github.com/phrazzld/activity-logger/internal/platform/logger"
	"github.com/phrazzld/activity-logger/internal/redact"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand builds the server command. Configuration flags override
// environment variables and the .env file.
func newRootCommand() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:          "activity-logger",
		Short:        "Backend API for Personal Activity Logger",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := initializeApp(ctx, envFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return app.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "path to a .env file, empty to skip")
	config.RegisterFlags(cmd.Flags())

	return cmd
}

// initializeApp loads configuration, configures logging exactly once and
// connects to the database. Nothing is logged before the logger is set up.
func initializeApp(ctx context.Context, envFile string, flags *pflag.FlagSet) (*application, error) {
	cfg, err := config.Load(config.WithEnvFile(envFile), config.WithFlags(flags))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	sink, err := logger.Setup(logger.LoggerConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	log := sink.Logger()

	log.Info("Server configuration loaded",
		"addr", cfg.API.Addr(),
		"log_level", logger.LevelName(sink.Level()),
		"log_format", string(sink.Format()),
		"cors_origins", cfg.API.CORSOrigins)
	log.Debug("Database configuration", "url", redact.String(cfg.Database.URL))

	db, err := database.Open(ctx, cfg.Database.URL, log.With("component", "database"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newApplication(cfg, log, db), nil
}
