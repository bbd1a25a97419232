package api

import (
	"context"
	"net/http"
	"time"

	"github.com/phrazzld/activity-logger/internal/api/shared"
	"github.com/phrazzld/activity-logger/internal/platform/logger"
)

// readyTimeout bounds the database ping performed by Ready.
const readyTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves the root, liveness and readiness endpoints.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a HealthHandler. db may be nil, in which case
// readiness reports the database as unavailable.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Root handles GET /.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, RootResponse{
		Message: ServiceTitle,
		Version: ServiceVersion,
	})
}

// Health handles GET /api/health. It reports the process as alive without
// touching any dependency.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: ServiceName,
	})
}

// Ready handles GET /api/health/ready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "database unavailable", err)
		return
	}

	logger.FromContext(r.Context()).Debug("readiness check passed")
	shared.RespondWithJSON(w, r, http.StatusOK, ReadyResponse{
		Status:   "ready",
		Database: "ok",
	})
}
