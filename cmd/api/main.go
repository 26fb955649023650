// Package main provides the entrypoint for the EcoRoute API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecoroute/ecoroute/internal/api"
	"github.com/ecoroute/ecoroute/internal/api/handler"
	"github.com/ecoroute/ecoroute/internal/api/middleware"
	"github.com/ecoroute/ecoroute/internal/assistant"
	"github.com/ecoroute/ecoroute/internal/assistant/gemini"
	"github.com/ecoroute/ecoroute/internal/classifier"
	"github.com/ecoroute/ecoroute/internal/database"
	"github.com/ecoroute/ecoroute/internal/emissions"
	"github.com/ecoroute/ecoroute/internal/geocoding"
	geoowm "github.com/ecoroute/ecoroute/internal/geocoding/openweathermap"
	"github.com/ecoroute/ecoroute/internal/planner"
	"github.com/ecoroute/ecoroute/internal/provider/resilience"
	"github.com/ecoroute/ecoroute/internal/reference"
	"github.com/ecoroute/ecoroute/internal/telemetry"
	"github.com/ecoroute/ecoroute/internal/weather"
	wxowm "github.com/ecoroute/ecoroute/internal/weather/openweathermap"
	"github.com/ecoroute/ecoroute/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "ecoroute-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting EcoRoute API")

	port := getEnvOrDefault("APP_PORT", "8080")

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)

	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryCfg.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).
			Float64("sample_ratio", telemetryCfg.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Reference data is required; the service cannot plan without it.
	tables, sourceName, err := loadReference(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load reference data")
	}
	log.Info().
		Str("source", sourceName).
		Int("modes", tables.Modes.Len()).
		Int("routes", tables.Routes.Len()).
		Msg("reference data loaded")

	estimator := emissions.NewEstimator(tables.Modes)

	// Provider clients share one registry for /v1/ops/status
	registry := resilience.NewRegistry()
	apiKey := os.Getenv("OPENWEATHER_API_KEY")

	geoMetrics, err := middleware.NewProviderMetrics(geoowm.ProviderName)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize provider metrics")
	}

	geoCfg := geocoding.ServiceConfig{
		Logger:   log,
		Timeout:  getDurationOrDefault("GEOCODER_TIMEOUT", 5*time.Second),
		CacheTTL: getDurationOrDefault("GEOCODE_CACHE_TTL", 24*time.Hour),
	}
	if geoMetrics != nil {
		geoCfg.Metrics = geoMetrics
	}
	if apiKey != "" {
		geoCfg.Provider = geoowm.NewClient(geoowm.ClientConfig{
			APIKey:     apiKey,
			BaseURL:    os.Getenv("OPENWEATHER_BASE_URL"),
			HTTPClient: newProviderClient(geoowm.ProviderName, registry, log),
			Logger:     log,
		})
	} else {
		log.Warn().Msg("OPENWEATHER_API_KEY not set - generated routes will report distance unavailable")
	}
	geoService := geocoding.NewService(geoCfg)

	var weatherService *weather.Service
	if apiKey != "" {
		weatherService = weather.NewService(weather.ServiceConfig{
			Provider: wxowm.NewClient(wxowm.ClientConfig{
				APIKey:     apiKey,
				BaseURL:    os.Getenv("OPENWEATHER_BASE_URL"),
				HTTPClient: newProviderClient(wxowm.ProviderName, registry, log),
				Logger:     log,
			}),
			Logger:   log,
			CacheTTL: getDurationOrDefault("WEATHER_CACHE_TTL", 10*time.Minute),
		})
		log.Info().Msg("weather service initialized")
	}

	var completer assistant.Completer
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		completer = gemini.NewClient(gemini.ClientConfig{
			APIKey:     key,
			Model:      os.Getenv("GEMINI_MODEL"),
			HTTPClient: newProviderClient(gemini.ProviderName, registry, log),
			Logger:     log,
		})
		log.Info().Msg("assistant configured")
	}
	assistantService := assistant.NewService(assistant.ServiceConfig{
		Completer: completer,
		Logger:    log,
	})

	// A planner that cannot be trained leaves the service up but not ready.
	var tripPlanner handler.TripPlanner
	if p, err := newPlanner(tables, estimator, geoService, log); err != nil {
		log.Error().Err(err).Msg("planner unavailable")
	} else {
		tripPlanner = p
	}

	routerCfg := api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		RequireTLS:  os.Getenv("REQUIRE_TLS") == "true",
		Planner:     tripPlanner,
		Geocoder:    geoService,
		Assistant:   assistantService,
		Registry:    registry,
		Reference: handler.ReferenceStats{
			Source: sourceName,
			Modes:  tables.Modes.Len(),
			Routes: tables.Routes.Len(),
		},
		RateLimits: middleware.RateLimits{
			Plan:      getRateLimit("RATE_LIMIT_PLAN", log),
			Proxy:     getRateLimit("RATE_LIMIT_PROXY", log),
			Assistant: getRateLimit("RATE_LIMIT_ASSISTANT", log),
		},
	}
	if weatherService != nil {
		routerCfg.Weather = weatherService
	}
	router := api.NewRouter(routerCfg)

	warmCtx, stopWarm := context.WithCancel(ctx)
	defer stopWarm()
	if os.Getenv("WARM_ON_START") == "true" {
		go warmCaches(warmCtx, tables, geoService, weatherService, log)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stopWarm()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// loadReference reads the mode and route tables from REFERENCE_SOURCE
// (embedded, file or postgres).
func loadReference(ctx context.Context, log zerolog.Logger) (*reference.Tables, string, error) {
	required := planner.CandidateModes()

	switch source := getEnvOrDefault("REFERENCE_SOURCE", "embedded"); source {
	case "embedded":
		src := reference.EmbeddedSource()
		tables, err := reference.Load(ctx, src, required...)
		return tables, src.Name(), err

	case "file":
		path := os.Getenv("REFERENCE_PATH")
		if path == "" {
			return nil, "", errors.New("REFERENCE_PATH is required for the file source")
		}
		src := reference.NewFileSource(path)
		tables, err := reference.Load(ctx, src, required...)
		return tables, src.Name(), err

	case "postgres":
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			return nil, "", fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()
		log.Info().
			Str("host", dbConfig.Host).
			Str("database", dbConfig.Database).
			Msg("database connected")

		src := reference.NewPostgresSource(pool, getEnvOrDefault("REFERENCE_TABLE", reference.DefaultPostgresTable))
		tables, err := reference.Load(ctx, src, required...)
		return tables, src.Name(), err

	default:
		return nil, "", fmt.Errorf("unknown REFERENCE_SOURCE %q", source)
	}
}

func newPlanner(tables *reference.Tables, est *emissions.Estimator, geo *geocoding.Service, log zerolog.Logger) (*planner.Planner, error) {
	started := time.Now()
	model, err := classifier.Train(tables.Routes.All(), est, classifier.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("training eco-classifier: %w", err)
	}

	stats := model.Stats()
	log.Info().
		Int("samples", stats.Samples).
		Int("positives", stats.Positives).
		Int("depth", stats.Depth).
		Int("leaves", stats.Leaves).
		Dur("duration", time.Since(started)).
		Msg("eco-classifier trained")

	return planner.New(planner.Config{
		Routes:     tables.Routes,
		Estimator:  est,
		Classifier: model,
		Geocoder:   geo,
		Logger:     log,
	})
}

func warmCaches(ctx context.Context, tables *reference.Tables, geo *geocoding.Service, wx *weather.Service, log zerolog.Logger) {
	cfg := worker.DefaultWarmConfig()
	cfg.Places = worker.MergePlaces(
		worker.ParsePlaces(os.Getenv("WARM_PLACES")),
		worker.PlacesFromRoutes(tables.Routes.All()),
	)

	jobCfg := worker.WarmJobConfig{
		Config:   cfg,
		Logger:   log.With().Str("job", worker.JobTypeGeocodeWarm).Logger(),
		Geocoder: geo,
	}
	if wx != nil {
		jobCfg.Weather = wx
	}

	worker.NewWarmJob(jobCfg).Run(ctx)
}

func newProviderClient(name string, registry *resilience.Registry, log zerolog.Logger) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.Registry = registry
	cfg.Logger = log
	return resilience.NewClient(cfg)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	// Bare integers are read as seconds.
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}

// getRateLimit reads a "<requests>/<window>" budget. A missing or invalid
// value yields the zero config, which the router replaces with the default.
func getRateLimit(key string, log zerolog.Logger) middleware.RateLimitConfig {
	value := os.Getenv(key)
	if value == "" {
		return middleware.RateLimitConfig{}
	}
	cfg, err := middleware.ParseRateLimit(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("ignoring rate limit override")
		return middleware.RateLimitConfig{}
	}
	return cfg
}
