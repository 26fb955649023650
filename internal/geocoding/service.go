package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	// Provider is the upstream geocoder.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Timeout bounds a single lookup (default: 5 seconds).
	Timeout time.Duration

	// CacheSize is the maximum number of cached places (default: 1000).
	CacheSize int

	// CacheTTL is how long a resolved place stays cached (default: 24 hours).
	CacheTTL time.Duration

	// Metrics receives provider call and cache statistics (optional).
	Metrics MetricsRecorder
}

// MetricsRecorder records provider calls and cache outcomes.
// *middleware.ProviderMetrics satisfies this interface.
type MetricsRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

// Service resolves place names with an LRU cache in front of the provider.
// Only successful lookups are cached.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	timeout  time.Duration
	cache    gcache.Cache
	metrics  MetricsRecorder
}

// NewService creates a new geocoding service.
func NewService(cfg ServiceConfig) *Service {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = 1000
	}

	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		timeout:  timeout,
		cache:    gcache.New(size).LRU().Expiration(ttl).Build(),
		metrics:  cfg.Metrics,
	}
}

// Geocode resolves place to a coordinate. Any failure, including timeouts,
// provider errors and empty results, is reported as ok == false.
func (s *Service) Geocode(ctx context.Context, place string) (Coordinate, bool) {
	key := cacheKey(place)
	if key == "" {
		return Coordinate{}, false
	}

	if v, err := s.cache.Get(key); err == nil {
		if c, ok := v.(Coordinate); ok {
			if s.metrics != nil {
				s.metrics.RecordCacheHit(s.providerName(), "geocode")
			}
			return c, true
		}
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(s.providerName(), "geocode")
	}

	places, err := s.lookup(ctx, place, 1)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("place", place).
			Str("provider", s.providerName()).
			Msg("geocoding failed")
		return Coordinate{}, false
	}
	if len(places) == 0 {
		s.logger.Debug().Str("place", place).Msg("no geocoding match")
		return Coordinate{}, false
	}

	c := places[0].Coordinate()
	if err := s.cache.Set(key, c); err != nil {
		s.logger.Debug().Err(err).Str("place", place).Msg("failed to cache place")
	}

	return c, true
}

// Search returns up to limit matches for query. Unlike Geocode it surfaces
// provider errors so callers can map them to a response status.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 5
	}

	places, err := s.lookup(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if len(places) > 0 {
		_ = s.cache.Set(cacheKey(query), places[0].Coordinate())
	}
	return places, nil
}

// Warm resolves each place so later lookups hit the cache.
// It returns the number of places that resolved.
func (s *Service) Warm(ctx context.Context, places []string) int {
	resolved := 0
	for _, p := range places {
		if ctx.Err() != nil {
			break
		}
		if _, ok := s.Geocode(ctx, p); ok {
			resolved++
		}
	}
	return resolved
}

// CacheLen returns the number of cached places.
func (s *Service) CacheLen() int {
	return s.cache.Len(true)
}

func (s *Service) lookup(ctx context.Context, query string, limit int) ([]Place, error) {
	if s.provider == nil {
		return nil, ErrProviderUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	places, err := s.provider.Search(ctx, strings.TrimSpace(query), limit)
	if s.metrics != nil {
		s.metrics.RecordRequest(s.provider.Name(), "search", time.Since(start), err)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("geocoding %q timed out after %s: %w", query, s.timeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	return places, nil
}

func (s *Service) providerName() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.Name()
}

func cacheKey(place string) string {
	return strings.ToLower(strings.TrimSpace(place))
}
