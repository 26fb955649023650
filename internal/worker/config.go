// Package worker runs background jobs that keep the geocode and weather
// caches warm for frequently planned places.
package worker

import (
	"strings"
	"time"

	"github.com/ecoroute/ecoroute/internal/reference"
)

// WarmConfig holds configuration for the geocode warm job.
type WarmConfig struct {
	// Places are the place names to resolve.
	// If empty, uses DefaultWarmPlaces.
	Places []string

	// Concurrency is the number of places resolved at once.
	// Default: 3
	Concurrency int

	// Timeout bounds the work for a single place.
	// Default: 10 seconds
	Timeout time.Duration

	// WarmWeather also fetches current conditions for each resolved place.
	WarmWeather bool
}

// DefaultWarmConfig returns the default warm configuration.
func DefaultWarmConfig() WarmConfig {
	return WarmConfig{
		Places:      DefaultWarmPlaces(),
		Concurrency: 3,
		Timeout:     10 * time.Second,
		WarmWeather: true,
	}
}

// DefaultWarmPlaces returns commonly planned origins and destinations.
func DefaultWarmPlaces() []string {
	return []string{
		"Amsterdam",
		"Rotterdam",
		"Utrecht",
		"Den Haag",
		"Eindhoven",
		"Brussels",
		"Antwerp",
		"Paris",
		"London",
		"Berlin",
		"Cologne",
		"Frankfurt",
	}
}

// ParsePlaces splits a comma separated list, trimming blanks and dropping
// duplicates (case-insensitively) while keeping first-seen order.
func ParsePlaces(s string) []string {
	return dedupePlaces(strings.Split(s, ","))
}

// PlacesFromRoutes returns every start and destination named in routes, in
// table order without duplicates.
func PlacesFromRoutes(routes []reference.RouteRecord) []string {
	names := make([]string, 0, 2*len(routes))
	for _, r := range routes {
		names = append(names, r.StartLocation, r.Destination)
	}
	return dedupePlaces(names)
}

// MergePlaces concatenates lists without duplicates.
func MergePlaces(lists ...[]string) []string {
	var all []string
	for _, l := range lists {
		all = append(all, l...)
	}
	return dedupePlaces(all)
}

func dedupePlaces(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}
