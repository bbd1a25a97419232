package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/phrazzld/activity-logger/internal/config"
	"github.com/phrazzld/activity-logger/internal/metrics"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	registry    *prometheus.Registry
	httpMetrics *metrics.HTTPMetrics
}

// newApplication wires the metrics registry around already established
// core dependencies. db may be nil; readiness then reports unavailable.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) *application {
	registry := metrics.NewRegistry(db)
	return &application{
		config:      cfg,
		logger:      logger,
		db:          db,
		registry:    registry,
		httpMetrics: metrics.NewHTTPMetrics(registry),
	}
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
