package weather

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bluele/gcache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Provider defines the interface for weather data providers.
type Provider interface {
	// GetCurrentWeather fetches current weather for a location.
	GetCurrentWeather(ctx context.Context, lat, lon float64) (*Observation, error)

	// GetAirPollution fetches the current air quality for a location.
	GetAirPollution(ctx context.Context, lat, lon float64) (*AirPollution, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long conditions are served without refetching
	// (default: 10 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.1).
	// Points within the same grid cell share cached data.
	CacheGridSize float64

	// StaleIfErrorTTL is how long after a fetch the conditions may still be
	// served, marked stale, while the provider fails (default: 1 hour).
	StaleIfErrorTTL time.Duration

	// CacheSize caps the number of cached grid cells (default: 2048).
	CacheSize int
}

// Service provides weather and air quality per grid cell. Concurrent
// requests for the same cell share one provider fetch.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration

	// Entries live for staleIfErrorTTL; freshness is judged by fetchedAt.
	cache  gcache.Cache
	flight singleflight.Group
}

type cachedConditions struct {
	conditions *Conditions
	fetchedAt  time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.1 // ~11km at equator
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 1 * time.Hour
	}
	if staleIfErrorTTL < cacheTTL {
		staleIfErrorTTL = cacheTTL
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = 2048
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cache:           gcache.New(size).LRU().Expiration(staleIfErrorTTL).Build(),
	}
}

// GetConditions returns weather and air quality for a location, from cache
// when the cell was fetched within CacheTTL.
func (s *Service) GetConditions(ctx context.Context, lat, lon float64) (*Conditions, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}

	key := s.cacheKey(lat, lon)
	if c, ok := s.fresh(key); ok {
		return c, nil
	}

	// One caller's disconnect must not fail the others sharing the fetch.
	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		if c, ok := s.fresh(key); ok {
			return c, nil
		}
		return s.fetch(context.WithoutCancel(ctx), lat, lon, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Conditions), nil
}

func (s *Service) lookup(key string) (*cachedConditions, bool) {
	v, err := s.cache.Get(key)
	if err != nil {
		return nil, false
	}
	return v.(*cachedConditions), true
}

func (s *Service) fresh(key string) (*Conditions, bool) {
	cached, ok := s.lookup(key)
	if !ok || time.Since(cached.fetchedAt) >= s.cacheTTL {
		return nil, false
	}
	return cached.conditions, true
}

// fetch queries weather and air pollution in parallel. Weather is required;
// a failed air pollution lookup only leaves Air nil.
func (s *Service) fetch(ctx context.Context, lat, lon float64, key string) (*Conditions, error) {
	s.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Str("provider", s.provider.Name()).
		Msg("fetching conditions from provider")

	var (
		obs *Observation
		air *AirPollution
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		obs, err = s.provider.GetCurrentWeather(gctx, lat, lon)
		return err
	})
	g.Go(func() error {
		var err error
		if air, err = s.provider.GetAirPollution(gctx, lat, lon); err != nil {
			s.logger.Warn().Err(err).
				Float64("lat", lat).
				Float64("lon", lon).
				Msg("failed to fetch air pollution")
			air = nil
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("failed to fetch weather")
		return s.staleOr(key, ErrProviderUnavailable)
	}

	now := time.Now()
	c := &Conditions{Weather: obs, Air: air, FetchedAt: now}
	if err := s.cache.Set(key, &cachedConditions{conditions: c, fetchedAt: now}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache conditions")
	}
	return c, nil
}

// staleOr returns a stale copy of the cached conditions for key, or err
// when nothing usable is cached.
func (s *Service) staleOr(key string, err error) (*Conditions, error) {
	cached, ok := s.lookup(key)
	if !ok {
		return nil, err
	}
	s.logger.Warn().
		Time("fetched_at", cached.fetchedAt).
		Msg("serving stale conditions due to provider error")
	stale := *cached.conditions
	stale.Stale = true
	return &stale, nil
}

// cacheKey groups nearby points into grid cells to reduce API calls.
func (s *Service) cacheKey(lat, lon float64) string {
	gridLat := math.Floor(lat/s.cacheGridSize) * s.cacheGridSize
	gridLon := math.Floor(lon/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%.2f:%.2f", gridLat, gridLon)
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.cache.Purge()
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Entries      int
	FreshEntries int
	Provider     string
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	stats := CacheStats{}
	if s.provider != nil {
		stats.Provider = s.provider.Name()
	}
	for _, v := range s.cache.GetALL(true) {
		stats.Entries++
		if time.Since(v.(*cachedConditions).fetchedAt) < s.cacheTTL {
			stats.FreshEntries++
		}
	}
	return stats
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
