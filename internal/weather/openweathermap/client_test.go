package openweathermap_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoroute/ecoroute/internal/provider/resilience"
	"github.com/ecoroute/ecoroute/internal/weather"
	"github.com/ecoroute/ecoroute/internal/weather/openweathermap"
)

func testHTTPClient() *resilience.Client {
	cfg := resilience.DefaultClientConfig("test")
	cfg.MaxRetries = 1
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = time.Millisecond
	return resilience.NewClient(cfg)
}

func TestClient_GetCurrentWeather(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "52.370000", r.URL.Query().Get("lat"))
		assert.Equal(t, "4.895000", r.URL.Query().Get("lon"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		response := map[string]interface{}{
			"coord": map[string]float64{"lat": 52.370, "lon": 4.895},
			"weather": []map[string]interface{}{
				{"id": 501, "main": "Rain", "description": "moderate rain"},
			},
			"main": map[string]float64{"temp": 11.5, "humidity": 88.0},
			"wind": map[string]float64{"speed": 6.5, "deg": 240.0, "gust": 9.1},
			"rain": map[string]float64{"1h": 1.8},
			"dt":   time.Now().Unix(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: testHTTPClient(),
	})

	obs, err := client.GetCurrentWeather(context.Background(), 52.370, 4.895)
	require.NoError(t, err)
	require.NotNil(t, obs)

	assert.Equal(t, 52.370, obs.Lat)
	assert.Equal(t, 11.5, obs.Temperature)
	assert.Equal(t, 88.0, obs.Humidity)
	assert.Equal(t, 6.5, obs.WindSpeed)
	assert.Equal(t, 9.1, obs.WindGust)
	assert.Equal(t, 1.8, obs.RainMM)
	assert.Equal(t, weather.ConditionRain, obs.Condition)
	assert.Equal(t, "moderate rain", obs.Description)
}

func TestClient_GetCurrentWeather_NoConditions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"coord":{"lat":1,"lon":2},"main":{"temp":30}}`))
	}))
	defer server.Close()

	client := openweathermap.NewClient(openweathermap.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: testHTTPClient(),
	})

	obs, err := client.GetCurrentWeather(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, weather.ConditionUnknown, obs.Condition)
}

func TestClient_GetAirPollution(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/air_pollution", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"coord":{"lat":52.37,"lon":4.895},
			"list":[{"dt":1700000000,"main":{"aqi":3},
				"components":{"co":230.3,"no2":21.9,"o3":48.2,"pm2_5":12.4,"pm10":18.0}}]
		}`))
	}))
	defer server.Close()

	client := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: testHTTPClient(),
	})

	air, err := client.GetAirPollution(context.Background(), 52.37, 4.895)
	require.NoError(t, err)
	assert.Equal(t, 3, air.AQI)
	assert.Equal(t, "moderate", air.Category())
	assert.Equal(t, 12.4, air.Components["pm2_5"])
	assert.Equal(t, time.Unix(1700000000, 0), air.MeasuredAt)
}

func TestClient_GetAirPollution_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"coord":{"lat":0,"lon":0},"list":[]}`))
	}))
	defer server.Close()

	client := openweathermap.NewClient(openweathermap.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: testHTTPClient(),
	})

	_, err := client.GetAirPollution(context.Background(), 0, 0)
	assert.Error(t, err)
}

func TestClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := openweathermap.NewClient(openweathermap.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: testHTTPClient(),
	})

	_, err := client.GetCurrentWeather(context.Background(), 52.37, 4.89)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_MapCondition(t *testing.T) {
	tests := []struct {
		owm      string
		expected weather.Condition
	}{
		{"Clear", weather.ConditionClear},
		{"Clouds", weather.ConditionClouds},
		{"Drizzle", weather.ConditionDrizzle},
		{"Snow", weather.ConditionSnow},
		{"Fog", weather.ConditionFog},
		{"Dust", weather.ConditionHaze},
		{"Meteor", weather.ConditionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.owm, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"weather": []map[string]string{{"main": tt.owm}},
				})
			}))
			defer server.Close()

			client := openweathermap.NewClient(openweathermap.ClientConfig{
				BaseURL:    server.URL,
				HTTPClient: testHTTPClient(),
			})

			obs, err := client.GetCurrentWeather(context.Background(), 0, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, obs.Condition)
		})
	}
}
