package planner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoroute/ecoroute/internal/classifier"
	"github.com/ecoroute/ecoroute/internal/emissions"
	"github.com/ecoroute/ecoroute/internal/geocoding"
	"github.com/ecoroute/ecoroute/internal/planner"
)

func modesOf(options []planner.Option) []string {
	out := make([]string, 0, len(options))
	for _, o := range options {
		out = append(out, o.TransportMode)
	}
	return out
}

func TestEligibleModes(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		expected []string
	}{
		{"short", 30, []string{"Train", "Bus", "EV Car", "Cycling", "Walking", "Metro"}},
		{"active boundary", 50, []string{"Train", "Bus", "EV Car", "Cycling", "Walking", "Metro"}},
		{"past active", 50.1, []string{"Train", "Bus", "EV Car", "Metro"}},
		{"metro boundary", 100, []string{"Train", "Bus", "EV Car", "Metro"}},
		{"medium", 150, []string{"Train", "Bus", "EV Car"}},
		{"flight boundary", 200, []string{"Train", "Bus", "EV Car", "Flight"}},
		{"long", 1500, []string{"Train", "Bus", "EV Car", "Flight"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, planner.EligibleModes(tt.distance))
		})
	}
}

func TestGenerator_ThirtyKilometres(t *testing.T) {
	tables := testTables(t)
	g := planner.NewGenerator(&fakeGeocoder{places: meridian},
		emissions.NewEstimator(tables.Modes), stubClassifier(classifier.LabelEco))

	gen, err := g.Generate(context.Background(), "Origin", "ThirtyKm", fixedRandom(0))
	require.NoError(t, err)
	assert.InDelta(t, 30, gen.DistanceKm, 1e-6)

	modes := modesOf(gen.Options)
	assert.Contains(t, modes, "Cycling")
	assert.Contains(t, modes, "Walking")
	assert.NotContains(t, modes, "Flight")
}

func TestGenerator_FlightFixedExtraAndNotes(t *testing.T) {
	tables := testTables(t)
	g := planner.NewGenerator(&fakeGeocoder{places: meridian},
		emissions.NewEstimator(tables.Modes), stubClassifier(classifier.LabelEco))

	gen, err := g.Generate(context.Background(), "Origin", "FarAway", fixedRandom(0.99))
	require.NoError(t, err)
	require.Equal(t, []string{"Train", "Bus", "EV Car", "Flight"}, modesOf(gen.Options))

	flight := gen.Options[3]
	assert.Equal(t, planner.NoteGeneratedHighEmissions, flight.Notes)
	assert.InDelta(t, (gen.DistanceKm+planner.FlightExtraDistanceKm)*255/1000, flight.EstimatedEmissionsKg, 1e-9)

	train := gen.Options[0]
	assert.Equal(t, planner.NoteGeneratedEco, train.Notes)
	assert.InDelta(t, (gen.DistanceKm+5+15*0.99)*41/1000, train.EstimatedEmissionsKg, 1e-9)

	assert.Equal(t, planner.NoteGenerated, gen.Options[1].Notes)
}

func TestGenerator_AllowListOverridesClassifier(t *testing.T) {
	tables := testTables(t)
	g := planner.NewGenerator(&fakeGeocoder{places: meridian},
		emissions.NewEstimator(tables.Modes), stubClassifier(classifier.LabelNotEco))

	gen, err := g.Generate(context.Background(), "Origin", "FarAway", fixedRandom(0.5))
	require.NoError(t, err)

	// Bus and Flight are not allow-listed.
	assert.Equal(t, []string{"Train", "EV Car"}, modesOf(gen.Options))
	for _, o := range gen.Options {
		assert.Equal(t, classifier.LabelNotEco, o.EcoLabel)
	}
}

func TestGenerator_ExtraDistanceRange(t *testing.T) {
	tables := testTables(t)
	g := planner.NewGenerator(&fakeGeocoder{places: meridian},
		emissions.NewEstimator(tables.Modes), stubClassifier(classifier.LabelEco))

	for _, r := range []float64{0, 0.25, 0.999999} {
		gen, err := g.Generate(context.Background(), "Origin", "OneDeg", fixedRandom(r))
		require.NoError(t, err)

		bus := gen.Options[1]
		require.Equal(t, "Bus", bus.TransportMode)
		extra := bus.EstimatedEmissionsKg*1000/105 - gen.DistanceKm
		assert.GreaterOrEqual(t, extra, planner.MinExtraDistanceKm-1e-9)
		assert.Less(t, extra, planner.MaxExtraDistanceKm)
	}
}

func TestCandidateModes(t *testing.T) {
	modes := planner.CandidateModes()
	assert.Equal(t, []string{"Train", "Bus", "EV Car", "Cycling", "Walking", "Metro", "Flight"}, modes)

	// Callers get a copy.
	modes[0] = "Zeppelin"
	assert.Equal(t, "Train", planner.CandidateModes()[0])
}

func TestGreatCircleKm(t *testing.T) {
	d := planner.GreatCircleKm(geocoding.Coordinate{Lat: 0, Lon: 0}, geocoding.Coordinate{Lat: 0, Lon: 1})
	assert.InDelta(t, 111.195, d, 0.001)

	ams := geocoding.Coordinate{Lat: 52.3676, Lon: 4.9041}
	par := geocoding.Coordinate{Lat: 48.8566, Lon: 2.3522}
	assert.InDelta(t, 430, planner.GreatCircleKm(ams, par), 5)
	assert.InDelta(t, planner.GreatCircleKm(ams, par), planner.GreatCircleKm(par, ams), 1e-9)
	assert.Zero(t, planner.GreatCircleKm(ams, ams))
}

func TestIsGeneratorAllowListed(t *testing.T) {
	for _, m := range []string{"Walking", "Cycling", "Metro", "Train", "EV Car"} {
		assert.True(t, planner.IsGeneratorAllowListed(m), m)
	}
	for _, m := range []string{"Bus", "Flight", "train", "ev_car", ""} {
		assert.False(t, planner.IsGeneratorAllowListed(m), m)
	}
}

func TestMatchesKnownRouteEcoModes(t *testing.T) {
	tests := []struct {
		modes    string
		expected bool
	}{
		{"Train", true},
		{"TRAIN+Bus", true},
		{"Bus+Metro", true},
		{"Walking", true},
		{"cycling", true},
		{"ev_car", true},
		{"EV Car", false},
		{"Bus", false},
		{"Flight", false},
		{"Car", false},
	}

	for _, tt := range tests {
		t.Run(tt.modes, func(t *testing.T) {
			assert.Equal(t, tt.expected, planner.MatchesKnownRouteEcoModes(tt.modes))
		})
	}
}

func TestFormat(t *testing.T) {
	out := planner.Format([]planner.Option{
		{TransportMode: "Train", EstimatedTime: "0 hours 40 minutes", EstimatedEmissionsKg: 3.28, Notes: "n1"},
		{TransportMode: "Bus", EstimatedTime: "1 hours", EstimatedEmissionsKg: 8.0, Notes: "n2"},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "3.3 kg CO2", out["option_1"].EstimatedEmissions)
	assert.Equal(t, "8.0 kg CO2", out["option_2"].EstimatedEmissions)
	assert.Equal(t, "Bus", out["option_2"].TransportMode)
	assert.Equal(t, "option_3", planner.OptionKey(2))
}
