package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// defaultCORSOrigins covers the agent dashboard; webhook endpoints are
// server-to-server and never preflight.
var defaultCORSOrigins = []string{
	"http://localhost:3000",
}

// CORS returns middleware applying the agent dashboard origin policy.
func CORS(extraOrigins ...string) func(http.Handler) http.Handler {
	origins := append([]string{}, defaultCORSOrigins...)
	origins = append(origins, extraOrigins...)
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
