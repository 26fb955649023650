// Package weather provides current conditions at trip endpoints.
package weather

import (
	"errors"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Observation is the current weather at a point.
type Observation struct {
	Lat float64
	Lon float64

	// Temperature in Celsius
	Temperature float64

	// Humidity percentage (0-100)
	Humidity float64

	WindSpeed     float64 // m/s
	WindDirection float64 // degrees, 0=N
	WindGust      float64 // m/s, 0 if not reported

	Condition   Condition
	Description string

	// Rain volume over the last hour in mm
	RainMM float64

	ObservedAt time.Time
	FetchedAt  time.Time
}

// Condition represents the general weather condition.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionRain         Condition = "RAIN"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionSnow         Condition = "SNOW"
	ConditionMist         Condition = "MIST"
	ConditionFog          Condition = "FOG"
	ConditionHaze         Condition = "HAZE"
	ConditionUnknown      Condition = "UNKNOWN"
)

// WindCategory buckets wind speed by its effect on cycling and walking.
type WindCategory string

const (
	WindCalm     WindCategory = "CALM"     // < 1 m/s
	WindLight    WindCategory = "LIGHT"    // 1-5 m/s
	WindModerate WindCategory = "MODERATE" // 5-10 m/s
	WindStrong   WindCategory = "STRONG"   // >= 10 m/s
)

// GetWindCategory returns the wind category for the observation.
func (o *Observation) GetWindCategory() WindCategory {
	switch {
	case o.WindSpeed < 1:
		return WindCalm
	case o.WindSpeed < 5:
		return WindLight
	case o.WindSpeed < 10:
		return WindModerate
	default:
		return WindStrong
	}
}

// AirPollution is the OpenWeatherMap air quality reading at a point.
type AirPollution struct {
	Lat float64
	Lon float64

	// AQI is the 1 (good) to 5 (very poor) index.
	AQI int

	// Components holds pollutant concentrations in μg/m³, keyed by
	// lower-case formula (pm2_5, pm10, no2, o3, ...).
	Components map[string]float64

	MeasuredAt time.Time
}

// Category returns the label for the AQI bucket.
func (a *AirPollution) Category() string {
	switch a.AQI {
	case 1:
		return "good"
	case 2:
		return "fair"
	case 3:
		return "moderate"
	case 4:
		return "poor"
	case 5:
		return "very poor"
	default:
		return "unknown"
	}
}

// Conditions combines weather and air quality at a point.
// Air is nil when the air pollution lookup failed.
type Conditions struct {
	Weather *Observation
	Air     *AirPollution

	// Stale is set when cached data was served because the provider failed.
	Stale     bool
	FetchedAt time.Time
}

// ActiveTravelAdvisory reports whether walking and cycling are reasonable,
// with the reasons when they are not.
func (c *Conditions) ActiveTravelAdvisory() (ok bool, reasons []string) {
	if c.Weather != nil {
		switch c.Weather.Condition {
		case ConditionThunderstorm:
			reasons = append(reasons, "thunderstorm")
		case ConditionSnow:
			reasons = append(reasons, "snow")
		case ConditionRain:
			if c.Weather.RainMM >= 2.5 {
				reasons = append(reasons, "heavy rain")
			}
		}
		if c.Weather.GetWindCategory() == WindStrong {
			reasons = append(reasons, "strong wind")
		}
		if c.Weather.Temperature <= -5 || c.Weather.Temperature >= 35 {
			reasons = append(reasons, "extreme temperature")
		}
	}
	if c.Air != nil && c.Air.AQI >= 4 {
		reasons = append(reasons, "poor air quality")
	}
	return len(reasons) == 0, reasons
}
