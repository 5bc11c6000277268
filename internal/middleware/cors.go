package middleware

import (
	"net/http"

	"parcel-backend/internal/config"

	"github.com/rs/cors"
)

// NewCORS exposes the request id and the download filename of PDF and
// workbook responses to browser clients.
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CorsAllowedOrigins,
		AllowedMethods:   cfg.Server.CorsAllowedMethods,
		AllowedHeaders:   cfg.Server.CorsAllowedHeaders,
		ExposedHeaders:   []string{RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return c.Handler
}
