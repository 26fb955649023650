// Package main provides the entrypoint for the EcoRoute cache-warming worker.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ecoroute/ecoroute/internal/api/models"
	"github.com/ecoroute/ecoroute/internal/api/response"
	"github.com/ecoroute/ecoroute/internal/geocoding"
	geoowm "github.com/ecoroute/ecoroute/internal/geocoding/openweathermap"
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
	const serviceName = "ecoroute-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting EcoRoute worker")

	// Worker also exposes health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.ConfigFromEnv(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	apiKey := os.Getenv("OPENWEATHER_API_KEY")
	if apiKey == "" {
		log.Fatal().Msg("OPENWEATHER_API_KEY is required")
	}

	registry := resilience.NewRegistry()

	geoService := geocoding.NewService(geocoding.ServiceConfig{
		Provider: geoowm.NewClient(geoowm.ClientConfig{
			APIKey:     apiKey,
			BaseURL:    os.Getenv("OPENWEATHER_BASE_URL"),
			HTTPClient: newProviderClient(geoowm.ProviderName, registry, log),
			Logger:     log,
		}),
		Logger:  log,
		Timeout: parseDuration(os.Getenv("GEOCODER_TIMEOUT"), 5*time.Second),
	})

	warmCfg := worker.DefaultWarmConfig()
	warmCfg.Places = worker.MergePlaces(worker.ParsePlaces(os.Getenv("WARM_PLACES")), embeddedPlaces(ctx, log))
	if len(warmCfg.Places) == 0 {
		warmCfg.Places = worker.DefaultWarmPlaces()
	}
	warmCfg.WarmWeather = os.Getenv("WARM_WEATHER") != "false"

	jobCfg := worker.WarmJobConfig{
		Config:   warmCfg,
		Logger:   log,
		Geocoder: geoService,
	}
	if warmCfg.WarmWeather {
		jobCfg.Weather = weather.NewService(weather.ServiceConfig{
			Provider: wxowm.NewClient(wxowm.ClientConfig{
				APIKey:     apiKey,
				BaseURL:    os.Getenv("OPENWEATHER_BASE_URL"),
				HTTPClient: newProviderClient(wxowm.ProviderName, registry, log),
				Logger:     log,
			}),
			Logger: log,
		})
	}

	warmJob := worker.NewWarmJob(jobCfg)
	runner := worker.NewJobRunner(warmJob, log)

	log.Info().
		Int("places", len(warmJob.Places())).
		Bool("warm_weather", warmCfg.WarmWeather).
		Msg("warm job configured")

	// Pub/Sub is optional so the worker can run locally with a single pass.
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	var pubsubHandler *worker.PubSubHandler
	if projectID != "" && subscription != "" {
		pubsubHandler, err = worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			Runner:           runner,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer func() {
			if closeErr := pubsubHandler.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close pubsub client")
			}
		}()
	} else {
		log.Warn().Msg("PUBSUB_PROJECT_ID or PUBSUB_SUBSCRIPTION not set - running one warm pass")
	}

	router := chi.NewRouter()
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, models.Health{
			Status: models.HealthStatusOK,
			Time:   models.Timestamp(time.Now()),
			Details: map[string]interface{}{
				"version":   Version,
				"buildTime": BuildTime,
				"warm":      warmJob.MetricsSnapshot(),
			},
		})
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	go func() {
		if pubsubHandler == nil {
			warmJob.Run(ctx)
			return
		}
		if err := pubsubHandler.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("pubsub receive stopped")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

// embeddedPlaces returns the places named in the embedded reference routes.
func embeddedPlaces(ctx context.Context, log zerolog.Logger) []string {
	tables, err := reference.Load(ctx, reference.EmbeddedSource())
	if err != nil {
		log.Warn().Err(err).Msg("failed to load embedded reference routes")
		return nil
	}
	return worker.PlacesFromRoutes(tables.Routes.All())
}

func newProviderClient(name string, registry *resilience.Registry, log zerolog.Logger) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.Registry = registry
	cfg.Logger = log
	return resilience.NewClient(cfg)
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
