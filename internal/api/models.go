package api

// Service identity reported by the root and health endpoints.
const (
	ServiceTitle   = "Personal Activity Logger API"
	ServiceVersion = "0.1.0"
	ServiceName    = "backend"
)

// RootResponse is returned by GET /.
type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ReadyResponse is returned by GET /api/health/ready when dependencies are up.
type ReadyResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
