package http

import (
	"net/http"

	"github.com/go-chi/cors"
)

// HandleWithCORS wraps the given handler with CORS headers that allow any
// origin to call it.
func HandleWithCORS(h http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			HeaderAPIKey,
		},
		MaxAge: 300,
	})(h)
}
