// Package geocoding resolves place names to coordinates.
package geocoding

import (
	"context"
	"errors"
)

// Geocoding errors.
var (
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")
	ErrEmptyQuery          = errors.New("empty geocoding query")
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Place is a single geocoding match.
type Place struct {
	Name    string
	Lat     float64
	Lon     float64
	Country string
	State   string
}

// Coordinate returns the place location.
func (p Place) Coordinate() Coordinate {
	return Coordinate{Lat: p.Lat, Lon: p.Lon}
}

// Provider searches an external geocoding service.
type Provider interface {
	// Search returns up to limit matches for query, best first.
	Search(ctx context.Context, query string, limit int) ([]Place, error)

	// Name returns the provider name for logging.
	Name() string
}
