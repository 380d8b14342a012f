package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront-search/internal/service"
	"github.com/utafrali/storefront-search/pkg/health"
	"github.com/utafrali/storefront-search/pkg/middleware"
)

const suggestMaxAge = 60 * time.Second

// RouterConfig holds the dependencies of the HTTP router.
type RouterConfig struct {
	ServiceName string
	Service     *service.SearchService
	Health      *health.Handler
	Logger      *slog.Logger
	// Registry backs the /metrics endpoint and the HTTP metrics middleware.
	Registry       *prometheus.Registry
	AllowedOrigins []string
}

// NewRouter creates a chi router with all search service routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	httpMetrics := middleware.NewHTTPMetrics(cfg.Registry, cfg.ServiceName)

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.AllowedOrigins}))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(httpMetrics.Middleware)

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{Registry: cfg.Registry}))

	// Search API endpoints
	searchHandler := NewSearchHandler(cfg.Service, cfg.Logger)

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/", searchHandler.Search)
		r.With(middleware.CacheControl(suggestMaxAge)).Get("/suggest", searchHandler.Suggest)
		r.Get("/highlight", searchHandler.Highlight)
		r.Get("/related/{id}", searchHandler.Related)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(ContentTypeJSON)
			r.Post("/index", searchHandler.IndexProduct)
			r.Delete("/{id}", searchHandler.DeleteProduct)
			r.Post("/bulk", searchHandler.BulkIndex)
			r.Post("/reindex", searchHandler.Reindex)
		})
	})

	return r
}
