// Package api provides the REST API router.
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/cloudprice/cloudprice/internal/metrics"
)

// RouterConfig holds configuration for the API router.
type RouterConfig struct {
	// AllowedOrigins is the list of allowed CORS origins. Empty means all origins allowed.
	AllowedOrigins []string
	// Metrics enables request instrumentation when non-nil.
	Metrics *metrics.Metrics
	// MetricsPath is where the Prometheus handler is mounted. Empty disables it.
	MetricsPath string
}

// NewRouter creates a new API router.
func NewRouter(handler *Handler, logger zerolog.Logger) *chi.Mux {
	return NewRouterWithConfig(handler, logger, RouterConfig{})
}

// NewRouterWithConfig creates a new API router with configuration.
func NewRouterWithConfig(handler *Handler, logger zerolog.Logger, config RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	if config.Metrics != nil {
		r.Use(NewMetricsMiddleware(config.Metrics))
	}
	r.Use(middleware.Recoverer)
	// Outer bound; handlers apply tighter per-provider deadlines.
	r.Use(middleware.Timeout(90 * time.Second))

	// CORS
	r.Use(NewCORSMiddleware(config.AllowedOrigins))

	// Health check
	r.Get("/health", handler.HealthCheck)

	// Prometheus metrics
	if config.MetricsPath != "" {
		r.Handle(config.MetricsPath, promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// Prices
		r.Get("/aws-price", handler.GetAWSPrice)
		r.Get("/azure-price", handler.GetAzurePrice)
		r.Get("/gcp-price", handler.GetGCPPrice)
		r.Get("/compare", handler.ComparePrices)

		// Catalog listings
		r.Get("/aws-regions", handler.ListAWSRegions)
		r.Get("/aws-instances", handler.ListAWSInstances)
		r.Get("/azure-regions", handler.ListAzureRegions)
		r.Get("/azure-skus", handler.ListAzureSKUs)
		r.Get("/gcp-regions", handler.ListGCPRegions)
		r.Get("/gcp-instances", handler.ListGCPInstances)
	})

	return r
}
