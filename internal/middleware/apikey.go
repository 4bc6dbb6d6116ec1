// Package middleware provides HTTP middleware for the smoothscroll server.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/Rorqualx/smoothscroll-go/internal/config"
)

// APIKey returns middleware that requires the X-API-Key header when API key
// authentication is enabled. /health and /metrics are always open.
func APIKey(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.APIKeyEnabled {
				next.ServeHTTP(w, r)
				return
			}

			if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			// Query parameters end up in access logs, so only the header is accepted.
			apiKey := r.Header.Get("X-API-Key")

			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(cfg.APIKey)) != 1 {
				writeErrorResponse(w, http.StatusUnauthorized, "Invalid or missing API key", time.Now())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
