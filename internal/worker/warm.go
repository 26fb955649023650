package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ecoroute/ecoroute/internal/geocoding"
	"github.com/ecoroute/ecoroute/internal/weather"
)

// Geocoder resolves a place name. Implemented by *geocoding.Service.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (geocoding.Coordinate, bool)
}

// ConditionsFetcher fetches conditions at a point. Implemented by
// *weather.Service.
type ConditionsFetcher interface {
	GetConditions(ctx context.Context, lat, lon float64) (*weather.Conditions, error)
}

// WarmJob resolves a list of places so later trip plans hit the cache.
type WarmJob struct {
	config   WarmConfig
	logger   zerolog.Logger
	geocoder Geocoder
	weather  ConditionsFetcher

	metrics *WarmMetrics
}

// WarmMetrics tracks warm job statistics.
type WarmMetrics struct {
	mu sync.RWMutex

	TotalRuns        int64
	Resolved         int64
	NotFound         int64
	WeatherRefreshed int64
	WeatherFailed    int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// WarmJobConfig holds configuration for creating a WarmJob.
type WarmJobConfig struct {
	Config   WarmConfig
	Logger   zerolog.Logger
	Geocoder Geocoder

	// Weather is optional; conditions are only fetched when set and
	// Config.WarmWeather is true.
	Weather ConditionsFetcher
}

// NewWarmJob creates a new warm job.
func NewWarmJob(cfg WarmJobConfig) *WarmJob {
	config := cfg.Config
	if len(config.Places) == 0 {
		config.Places = DefaultWarmPlaces()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &WarmJob{
		config:   config,
		logger:   cfg.Logger,
		geocoder: cfg.Geocoder,
		weather:  cfg.Weather,
		metrics:  &WarmMetrics{},
	}
}

// Places returns the configured places.
func (j *WarmJob) Places() []string {
	return append([]string(nil), j.config.Places...)
}

// WarmResult contains the result of a warm run.
type WarmResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalPlaces int
	Resolved    int
	NotFound    int

	// Skipped counts places not attempted because the context ended.
	Skipped int

	WeatherRefreshed int
	WeatherFailed    int

	// Unresolved lists the places that did not geocode.
	Unresolved []string
}

type placeOutcome int

const (
	outcomeSkipped placeOutcome = iota
	outcomeResolved
	outcomeNotFound
)

type placeResult struct {
	outcome       placeOutcome
	weatherOK     bool
	weatherFailed bool
}

// Run resolves every configured place with at most Concurrency lookups in
// flight.
func (j *WarmJob) Run(ctx context.Context) *WarmResult {
	return j.run(ctx, j.config.Places)
}

// RunPlaces resolves the given places instead of the configured list.
func (j *WarmJob) RunPlaces(ctx context.Context, places []string) *WarmResult {
	return j.run(ctx, dedupePlaces(places))
}

func (j *WarmJob) run(ctx context.Context, places []string) *WarmResult {
	startTime := time.Now()
	result := &WarmResult{
		StartTime:   startTime,
		TotalPlaces: len(places),
	}

	j.logger.Info().
		Int("total_places", result.TotalPlaces).
		Int("concurrency", j.config.Concurrency).
		Msg("starting geocode warm job")

	outcomes := make([]placeResult, len(places))

	var g errgroup.Group
	g.SetLimit(j.config.Concurrency)
	for i, place := range places {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcomes[i] = j.warmPlace(ctx, place)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	for i, o := range outcomes {
		switch o.outcome {
		case outcomeResolved:
			result.Resolved++
		case outcomeNotFound:
			result.NotFound++
			result.Unresolved = append(result.Unresolved, places[i])
		default:
			result.Skipped++
		}
		if o.weatherOK {
			result.WeatherRefreshed++
		}
		if o.weatherFailed {
			result.WeatherFailed++
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("resolved", result.Resolved).
		Int("not_found", result.NotFound).
		Int("skipped", result.Skipped).
		Int("weather_refreshed", result.WeatherRefreshed).
		Msg("geocode warm job completed")

	return result
}

func (j *WarmJob) warmPlace(ctx context.Context, place string) placeResult {
	if ctx.Err() != nil || j.geocoder == nil {
		return placeResult{}
	}

	placeCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	coord, ok := j.geocoder.Geocode(placeCtx, place)
	if !ok {
		j.logger.Debug().Str("place", place).Msg("place not resolved")
		return placeResult{outcome: outcomeNotFound}
	}

	res := placeResult{outcome: outcomeResolved}
	if j.config.WarmWeather && j.weather != nil {
		if _, err := j.weather.GetConditions(placeCtx, coord.Lat, coord.Lon); err != nil {
			j.logger.Warn().Err(err).Str("place", place).Msg("weather warm failed")
			res.weatherFailed = true
		} else {
			res.weatherOK = true
		}
	}
	return res
}

func (j *WarmJob) updateMetrics(result *WarmResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.Resolved += int64(result.Resolved)
	j.metrics.NotFound += int64(result.NotFound)
	j.metrics.WeatherRefreshed += int64(result.WeatherRefreshed)
	j.metrics.WeatherFailed += int64(result.WeatherFailed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *WarmJob) GetMetrics() WarmMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return WarmMetrics{
		TotalRuns:        j.metrics.TotalRuns,
		Resolved:         j.metrics.Resolved,
		NotFound:         j.metrics.NotFound,
		WeatherRefreshed: j.metrics.WeatherRefreshed,
		WeatherFailed:    j.metrics.WeatherFailed,
		LastRunAt:        j.metrics.LastRunAt,
		LastRunDuration:  j.metrics.LastRunDuration,
		TotalDuration:    j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *WarmJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"resolved":          m.Resolved,
		"not_found":         m.NotFound,
		"weather_refreshed": m.WeatherRefreshed,
		"weather_failed":    m.WeatherFailed,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
