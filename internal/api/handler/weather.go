package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ecoroute/ecoroute/internal/api/models"
	"github.com/ecoroute/ecoroute/internal/api/response"
	"github.com/ecoroute/ecoroute/internal/weather"
)

// ConditionsProvider returns current weather and air quality at a point.
type ConditionsProvider interface {
	GetConditions(ctx context.Context, lat, lon float64) (*weather.Conditions, error)
}

// WeatherHandler proxies weather and air quality lookups.
type WeatherHandler struct {
	conditions ConditionsProvider
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(conditions ConditionsProvider) *WeatherHandler {
	return &WeatherHandler{conditions: conditions}
}

// Weather handles GET /v1/weather?lat=&lon=.
func (h *WeatherHandler) Weather(w http.ResponseWriter, r *http.Request) {
	lat, latErr := parseCoordinate(r, "lat")
	lon, lonErr := parseCoordinate(r, "lon")
	var fieldErrors []models.FieldError
	if latErr != nil {
		fieldErrors = append(fieldErrors, *latErr)
	}
	if lonErr != nil {
		fieldErrors = append(fieldErrors, *lonErr)
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "lat and lon parameters are required", fieldErrors)
		return
	}

	if h.conditions == nil {
		response.ServiceUnavailable(w, r, "weather is not configured")
		return
	}

	c, err := h.conditions.GetConditions(r.Context(), lat, lon)
	if err != nil {
		if errors.Is(err, weather.ErrInvalidCoordinates) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		response.BadGateway(w, r, "failed to fetch weather data")
		return
	}

	response.JSON(w, r, http.StatusOK, toWeatherResponse(c))
}

func parseCoordinate(r *http.Request, name string) (float64, *models.FieldError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, &models.FieldError{Field: name, Message: "required", Code: "REQUIRED"}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &models.FieldError{Field: name, Message: "must be a number", Code: "INVALID"}
	}
	return v, nil
}

func toWeatherResponse(c *weather.Conditions) models.WeatherResponse {
	ok, reasons := c.ActiveTravelAdvisory()
	resp := models.WeatherResponse{
		Advisory: models.TravelAdvisory{ActiveTravelOK: ok, Reasons: reasons},
		Stale:    c.Stale,
		Time:     models.Timestamp(fetchedOrNow(c.FetchedAt)),
	}

	if o := c.Weather; o != nil {
		resp.Weather = &models.CurrentWeather{
			Lat:           o.Lat,
			Lon:           o.Lon,
			Temperature:   o.Temperature,
			Humidity:      o.Humidity,
			WindSpeed:     o.WindSpeed,
			WindDirection: o.WindDirection,
			WindGust:      o.WindGust,
			WindCategory:  string(o.GetWindCategory()),
			Condition:     string(o.Condition),
			Description:   o.Description,
			RainMM:        o.RainMM,
			ObservedAt:    models.Timestamp(o.ObservedAt),
		}
	}

	if a := c.Air; a != nil {
		resp.AQI = &models.AirQuality{
			AQI:        a.AQI,
			Category:   a.Category(),
			Components: a.Components,
			MeasuredAt: models.Timestamp(a.MeasuredAt),
		}
	}

	return resp
}

func fetchedOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
