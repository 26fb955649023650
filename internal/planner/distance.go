package planner

import (
	"github.com/golang/geo/s2"

	"github.com/ecoroute/ecoroute/internal/geocoding"
)

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0

// GreatCircleKm returns the great-circle distance between a and b.
func GreatCircleKm(a, b geocoding.Coordinate) float64 {
	pa := s2.LatLngFromDegrees(a.Lat, a.Lon)
	pb := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return pa.Distance(pb).Radians() * EarthRadiusKm
}
