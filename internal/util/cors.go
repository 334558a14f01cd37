package util

import (
	"net/http"

	"github.com/rs/cors"
)

// WithCORS allows the listed browser origins to call the API with cookies.
// An empty list allows no cross-origin callers.
func WithCORS(origins []string, next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           600,
	}).Handler(next)
}
