// Package emissions estimates CO2 emissions and travel time for a route.
package emissions

import (
	"fmt"
	"math"

	"github.com/ecoroute/ecoroute/internal/reference"
)

// ModeLookup resolves a transport mode by name.
// *reference.ModeTable satisfies this interface.
type ModeLookup interface {
	Lookup(name string) (reference.TransportMode, error)
}

// Metrics is the estimated cost of a route.
type Metrics struct {
	// EmissionsKg is the total CO2 in kilograms.
	EmissionsKg float64
	// Hours is the total travel time.
	Hours float64
}

// TimeLabel renders Hours with FormatDuration.
func (m Metrics) TimeLabel() string {
	return FormatDuration(m.Hours)
}

// Estimator computes route metrics from a mode table.
type Estimator struct {
	modes ModeLookup
}

// NewEstimator creates an estimator backed by modes.
func NewEstimator(modes ModeLookup) *Estimator {
	return &Estimator{modes: modes}
}

// Estimate returns the metrics for legs travelled over distanceKm plus
// extraDistanceKm.
//
// Every leg is charged the full distance: a "Train+Cycling" route costs the
// train emissions and time plus the cycling emissions and time over the same
// distance. The distance is not split between legs.
func (e *Estimator) Estimate(legs []string, distanceKm, extraDistanceKm float64) (Metrics, error) {
	total := distanceKm + extraDistanceKm

	var m Metrics
	for _, leg := range legs {
		mode, err := e.modes.Lookup(leg)
		if err != nil {
			return Metrics{}, err
		}
		m.EmissionsKg += total * mode.CO2PerKm / 1000
		m.Hours += total / mode.SpeedKmH
	}

	return m, nil
}

// FormatDuration renders hours as "H hours" or "H hours M minutes".
// Fractions are truncated to whole minutes; the minutes part is omitted
// when zero.
func FormatDuration(hours float64) string {
	if hours < 0 {
		hours = 0
	}
	// The epsilon keeps values like 2.8 from flooring to 167 minutes.
	total := int(math.Floor(hours*60 + 1e-9))
	h, m := total/60, total%60
	if m == 0 {
		return fmt.Sprintf("%d hours", h)
	}
	return fmt.Sprintf("%d hours %d minutes", h, m)
}
