package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"github.com/novatra-store/novatra-backend/pkg/config"
)

// CORS returns middleware applying the storefront origin policy.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := []string{"http://localhost:5173"}
	if frontend := strings.TrimSpace(cfg.FrontendURL); frontend != "" {
		origins = []string{frontend}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
