package models

// WeatherResponse is returned by GET /v1/weather.
type WeatherResponse struct {
	Weather  *CurrentWeather `json:"weather"`
	AQI      *AirQuality     `json:"aqi"`
	Advisory TravelAdvisory  `json:"advisory"`
	Stale    bool            `json:"stale"`
	Time     Timestamp       `json:"time"`
}

// CurrentWeather is the current observation at a point.
type CurrentWeather struct {
	Lat           float64   `json:"lat"`
	Lon           float64   `json:"lon"`
	Temperature   float64   `json:"temperature"`
	Humidity      float64   `json:"humidity"`
	WindSpeed     float64   `json:"windSpeed"`
	WindDirection float64   `json:"windDirection"`
	WindGust      float64   `json:"windGust,omitempty"`
	WindCategory  string    `json:"windCategory"`
	Condition     string    `json:"condition"`
	Description   string    `json:"description,omitempty"`
	RainMM        float64   `json:"rainMm"`
	ObservedAt    Timestamp `json:"observedAt"`
}

// AirQuality is the air pollution reading at a point.
type AirQuality struct {
	AQI        int                `json:"aqi"`
	Category   string             `json:"category"`
	Components map[string]float64 `json:"components,omitempty"`
	MeasuredAt Timestamp          `json:"measuredAt"`
}

// TravelAdvisory tells whether walking and cycling are advisable.
type TravelAdvisory struct {
	ActiveTravelOK bool     `json:"activeTravelOk"`
	Reasons        []string `json:"reasons,omitempty"`
}
