package models

// TripPlanRequest is the body of POST /v1/trips:plan.
type TripPlanRequest struct {
	StartLocation string `json:"start_location"`
	Destination   string `json:"destination"`

	// Preferences and TimeFlexibility are accepted but do not affect ranking.
	Preferences     []string `json:"preferences,omitempty"`
	TimeFlexibility string   `json:"time_flexibility,omitempty"`
}

// LegacyError is the error body kept for clients of the original planning
// endpoint.
type LegacyError struct {
	Error string `json:"error"`
}
