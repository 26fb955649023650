package emissions_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoroute/ecoroute/internal/emissions"
	"github.com/ecoroute/ecoroute/internal/reference"
)

const tolerance = 1e-9

func testModes(t *testing.T) *reference.ModeTable {
	t.Helper()
	data := "route_id,start_location,destination,modes,distance_km,extra_distance_km,notes,transport_mode,co2_per_km,speed_km_h\n" +
		",,,,,,,Train,41,120\n" +
		",,,,,,,Cycling,0,15\n" +
		",,,,,,,Bus,105,50\n" +
		",,,,,,,Flight,255,700\n"
	tables, err := reference.Load(context.Background(), reference.NewCSVSource("test", strings.NewReader(data)))
	require.NoError(t, err)
	return tables.Modes
}

func TestEstimate_SingleLeg(t *testing.T) {
	modes := testModes(t)
	est := emissions.NewEstimator(modes)

	for _, mode := range modes.All() {
		t.Run(mode.Name, func(t *testing.T) {
			d, e := 123.4, 7.6
			m, err := est.Estimate([]string{mode.Name}, d, e)
			require.NoError(t, err)

			assert.InDelta(t, (d+e)*mode.CO2PerKm/1000, m.EmissionsKg, tolerance)
			assert.InDelta(t, (d+e)/mode.SpeedKmH, m.Hours, tolerance)
		})
	}
}

func TestEstimate_EachLegChargedFullDistance(t *testing.T) {
	est := emissions.NewEstimator(testModes(t))
	d, e := 60.0, 10.0

	train, err := est.Estimate([]string{"Train"}, d, e)
	require.NoError(t, err)
	cycling, err := est.Estimate([]string{"Cycling"}, d, e)
	require.NoError(t, err)
	combined, err := est.Estimate([]string{"Train", "Cycling"}, d, e)
	require.NoError(t, err)

	assert.InDelta(t, train.EmissionsKg+cycling.EmissionsKg, combined.EmissionsKg, tolerance)
	assert.InDelta(t, train.Hours+cycling.Hours, combined.Hours, tolerance)
	// 70 km by train at 41 g/km
	assert.InDelta(t, 2.87, combined.EmissionsKg, tolerance)
}

func TestEstimate_UnknownMode(t *testing.T) {
	est := emissions.NewEstimator(testModes(t))

	_, err := est.Estimate([]string{"Train", "Teleport"}, 10, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, reference.ErrUnknownMode)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		hours    float64
		expected string
	}{
		{2.5, "2 hours 30 minutes"},
		{3.0, "3 hours"},
		{0, "0 hours"},
		{0.25, "0 hours 15 minutes"},
		{1.999, "1 hours 59 minutes"},
		{2.8, "2 hours 48 minutes"},
		{1.2, "1 hours 12 minutes"},
		{4.35, "4 hours 21 minutes"},
		{-1, "0 hours"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, emissions.FormatDuration(tt.hours))
		})
	}
}

func TestMetrics_TimeLabel(t *testing.T) {
	m := emissions.Metrics{Hours: 1.75}
	assert.Equal(t, "1 hours 45 minutes", m.TimeLabel())
}

func TestEstimate_TimeLabelNotShortByFloatError(t *testing.T) {
	est := emissions.NewEstimator(testModes(t))

	// 42 km at 15 km/h is exactly 168 minutes.
	m, err := est.Estimate([]string{"Cycling"}, 40, 2)
	require.NoError(t, err)
	assert.Equal(t, "2 hours 48 minutes", m.TimeLabel())
}
