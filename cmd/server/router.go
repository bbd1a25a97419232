package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/activity-logger/internal/api"
	apiMiddleware "github.com/phrazzld/activity-logger/internal/api/middleware"
	"github.com/phrazzld/activity-logger/internal/api/shared"
	"github.com/phrazzld/activity-logger/internal/metrics"
)

const metricsPath = "/metrics"

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewCORSMiddleware(app.config.API.CORSOrigins))
	r.Use(apiMiddleware.NewMetricsMiddleware(app.httpMetrics, metricsPath))

	// A nil *sql.DB must stay a nil interface.
	var pinger api.Pinger
	if app.db != nil {
		pinger = app.db
	}
	healthHandler := api.NewHealthHandler(pinger)

	r.Get("/", healthHandler.Root)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)
		r.Get("/health/ready", healthHandler.Ready)
	})
	r.Method(http.MethodGet, metricsPath, metrics.Handler(app.registry))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
