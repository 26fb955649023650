// Package api provides the HTTP API for EcoRoute.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ecoroute/ecoroute/internal/api/handler"
	"github.com/ecoroute/ecoroute/internal/api/middleware"
	"github.com/ecoroute/ecoroute/internal/api/response"
	"github.com/ecoroute/ecoroute/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	// Planner is nil when the eco-classifier could not be trained.
	Planner   handler.TripPlanner
	Geocoder  handler.PlaceSearcher
	Weather   handler.ConditionsProvider
	Assistant handler.Completer

	Registry  *resilience.Registry
	Reference handler.ReferenceStats

	// RateLimits are per client IP; unset budgets use the defaults.
	RateLimits middleware.RateLimits
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "ecoroute-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no such endpoint")
	})

	// Initialize handlers
	opsCfg := handler.OpsConfig{
		Version:      cfg.Version,
		BuildTime:    cfg.BuildTime,
		Registry:     cfg.Registry,
		Reference:    cfg.Reference,
		PlannerReady: cfg.Planner != nil,
	}
	if reporter, ok := cfg.Weather.(handler.CacheReporter); ok {
		opsCfg.WeatherCache = reporter
	}
	opsHandler := handler.NewOpsHandler(opsCfg)
	tripHandler := handler.NewTripHandler(cfg.Planner, cfg.Logger)
	geocodeHandler := handler.NewGeocodeHandler(cfg.Geocoder)
	weatherHandler := handler.NewWeatherHandler(cfg.Weather)
	assistantHandler := handler.NewAssistantHandler(cfg.Assistant, cfg.Logger)

	limits := cfg.RateLimits.WithDefaults()
	planRateLimit := middleware.RateLimitByIP(limits.Plan)
	proxyRateLimit := middleware.RateLimitByIP(limits.Proxy)
	assistantRateLimit := middleware.RateLimitByIP(limits.Assistant)

	// Legacy planning path kept for existing clients
	r.With(planRateLimit, middleware.RequireJSON).Post("/plan_trip", tripHandler.PlanTrip)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Trip planning may geocode both endpoints
		r.With(planRateLimit, middleware.RequireJSON).Post("/trips:plan", tripHandler.PlanTrip)

		// Provider proxies
		r.With(proxyRateLimit).Get("/geocode", geocodeHandler.Geocode)
		r.With(proxyRateLimit).Get("/weather", weatherHandler.Weather)

		r.With(assistantRateLimit).Post("/assistant:complete", assistantHandler.Complete)
	})

	return r
}
