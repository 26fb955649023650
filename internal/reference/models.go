// Package reference loads the transport mode and known route reference table.
package reference

import (
	"strings"
)

// ModeSeparator joins the legs of a combined route, e.g. "Train+Walking".
const ModeSeparator = "+"

// EcoFriendlyMarker is the notes substring that labels a route as eco-friendly.
const EcoFriendlyMarker = "eco-friendly"

// TransportMode describes a single mode of transport.
type TransportMode struct {
	// Name is the unique mode key referenced by routes (e.g. "Train").
	Name string

	// CO2PerKm is the emission factor in grams of CO2 per kilometre.
	CO2PerKm float64

	// SpeedKmH is the average travel speed in km/h. Always > 0.
	SpeedKmH float64
}

// RouteRecord is a known route between two locations.
type RouteRecord struct {
	RouteID       string
	StartLocation string
	Destination   string

	// Modes are the ordered legs of the route.
	Modes []string

	DistanceKm      float64
	ExtraDistanceKm float64 // access/transfer overhead
	Notes           string
}

// ModeString returns the legs joined with ModeSeparator.
func (r RouteRecord) ModeString() string {
	return strings.Join(r.Modes, ModeSeparator)
}

// EcoFriendly reports whether the route notes carry the eco-friendly marker.
func (r RouteRecord) EcoFriendly() bool {
	return IsEcoFriendlyNote(r.Notes)
}

// IsEcoFriendlyNote reports whether notes contain EcoFriendlyMarker, ignoring case.
func IsEcoFriendlyNote(notes string) bool {
	return strings.Contains(strings.ToLower(notes), EcoFriendlyMarker)
}

// SplitModes splits a combined mode string into its legs.
// Empty legs are dropped.
func SplitModes(s string) []string {
	parts := strings.Split(s, ModeSeparator)
	legs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			legs = append(legs, p)
		}
	}
	return legs
}

// ModeTable holds the transport modes in table order.
// It is immutable after load and safe for concurrent reads.
type ModeTable struct {
	modes  []TransportMode
	byName map[string]int
}

func newModeTable() *ModeTable {
	return &ModeTable{byName: make(map[string]int)}
}

// Lookup returns the mode with the given name.
// Returns an *UnknownModeError if the mode is not in the table.
func (t *ModeTable) Lookup(name string) (TransportMode, error) {
	i, ok := t.byName[name]
	if !ok {
		return TransportMode{}, &UnknownModeError{Mode: name}
	}
	return t.modes[i], nil
}

// Has reports whether the table contains the named mode.
func (t *ModeTable) Has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// All returns a copy of the modes in table order.
func (t *ModeTable) All() []TransportMode {
	out := make([]TransportMode, len(t.modes))
	copy(out, t.modes)
	return out
}

// Len returns the number of modes.
func (t *ModeTable) Len() int {
	return len(t.modes)
}

// RouteTable holds the known routes in table order.
// It is immutable after load and safe for concurrent reads.
type RouteTable struct {
	routes []RouteRecord
}

// NewRouteTable creates a route table from records, preserving their order.
func NewRouteTable(records []RouteRecord) *RouteTable {
	routes := make([]RouteRecord, len(records))
	copy(routes, records)
	return &RouteTable{routes: routes}
}

// Match returns the routes whose start and destination equal the given
// strings exactly. No normalization is applied.
func (t *RouteTable) Match(start, destination string) []RouteRecord {
	var matches []RouteRecord
	for _, r := range t.routes {
		if r.StartLocation == start && r.Destination == destination {
			matches = append(matches, r)
		}
	}
	return matches
}

// All returns a copy of the routes in table order.
func (t *RouteTable) All() []RouteRecord {
	out := make([]RouteRecord, len(t.routes))
	copy(out, t.routes)
	return out
}

// Len returns the number of routes.
func (t *RouteTable) Len() int {
	return len(t.routes)
}

// Tables is the result of loading a reference table.
type Tables struct {
	Modes  *ModeTable
	Routes *RouteTable
}
