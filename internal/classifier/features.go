// Package classifier predicts whether a route is eco-friendly from its metrics.
package classifier

import (
	"strings"

	"github.com/ecoroute/ecoroute/internal/emissions"
)

// Label values produced by the model.
const (
	LabelNotEco = 0
	LabelEco    = 1
)

// NumFeatures is the length of a feature vector.
const NumFeatures = 6

// Features is the model input for a single route.
type Features struct {
	EmissionsKg     float64
	DistanceKm      float64
	ExtraDistanceKm float64
	ModeCount       int
	HasActiveMode   bool // a cycling or walking leg
	HasFlight       bool
}

// NewFeatures builds the feature set for a route's legs and metrics.
func NewFeatures(legs []string, distanceKm, extraDistanceKm float64, m emissions.Metrics) Features {
	f := Features{
		EmissionsKg:     m.EmissionsKg,
		DistanceKm:      distanceKm,
		ExtraDistanceKm: extraDistanceKm,
		ModeCount:       len(legs),
	}
	for _, leg := range legs {
		switch strings.ToLower(leg) {
		case "cycling", "walking":
			f.HasActiveMode = true
		case "flight":
			f.HasFlight = true
		}
	}
	return f
}

// Vector returns the features in training order:
// [emissions, distance, extra distance, mode count, has cycling/walking, has flight].
func (f Features) Vector() [NumFeatures]float64 {
	return [NumFeatures]float64{
		f.EmissionsKg,
		f.DistanceKm,
		f.ExtraDistanceKm,
		float64(f.ModeCount),
		boolToFloat(f.HasActiveMode),
		boolToFloat(f.HasFlight),
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
