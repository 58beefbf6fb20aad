package mw

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS lets redirect pages on the allowed origins call the deferred-links
// API. An empty list rejects every cross-origin request; "*" allows any.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Project-ID"},
		ExposedHeaders: []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:         600,
	})
}
