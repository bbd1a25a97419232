package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/phrazzld/activity-logger/internal/api/shared"
)

// NewCORSMiddleware allows cross-origin requests from the given origins,
// with credentials and any request header.
func NewCORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{shared.TraceIDHeader, "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           600,
	})
}
