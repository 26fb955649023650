// Package planner ranks eco-friendly travel options between two places.
package planner

import (
	"context"
	"errors"

	"github.com/ecoroute/ecoroute/internal/classifier"
	"github.com/ecoroute/ecoroute/internal/emissions"
	"github.com/ecoroute/ecoroute/internal/geocoding"
	"github.com/ecoroute/ecoroute/internal/reference"
)

// ErrDistanceUnavailable is returned when an endpoint of a trip with no
// reference route cannot be geocoded.
var ErrDistanceUnavailable = errors.New("unable to estimate distance for the route")

// Source tells where a plan's options came from.
type Source string

const (
	SourceReference Source = "reference"
	SourceGenerated Source = "generated"
)

// Request is a trip planning request.
type Request struct {
	StartLocation string
	Destination   string

	// Preferences and TimeFlexibility are accepted but do not affect
	// filtering or ranking.
	Preferences     []string
	TimeFlexibility string
}

// Option is a single ranked travel option.
type Option struct {
	TransportMode        string
	EstimatedTime        string
	EstimatedEmissionsKg float64
	Hours                float64
	Notes                string
	EcoLabel             int
	Generated            bool
}

// Plan is the result of planning a trip.
type Plan struct {
	Options []Option
	Source  Source

	// DistanceKm is the great-circle distance for generated plans, 0 otherwise.
	DistanceKm float64
}

// Routes finds reference routes for an exact (start, destination) pair.
// *reference.RouteTable satisfies this interface.
type Routes interface {
	Match(start, destination string) []reference.RouteRecord
}

// Estimator computes metrics for a route's legs.
type Estimator interface {
	Estimate(legs []string, distanceKm, extraDistanceKm float64) (emissions.Metrics, error)
}

// Classifier predicts the eco label for a route.
// *classifier.Model satisfies this interface.
type Classifier interface {
	Predict(f classifier.Features) int
}

// Geocoder resolves a place to a coordinate; ok is false when it cannot.
// *geocoding.Service satisfies this interface.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (geocoding.Coordinate, bool)
}

// RandomSource yields uniform values in [0, 1).
// *rand.Rand from math/rand/v2 satisfies this interface.
type RandomSource interface {
	Float64() float64
}
