package planner_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoroute/ecoroute/internal/classifier"
	"github.com/ecoroute/ecoroute/internal/emissions"
	"github.com/ecoroute/ecoroute/internal/geocoding"
	"github.com/ecoroute/ecoroute/internal/planner"
	"github.com/ecoroute/ecoroute/internal/reference"
)

const referenceCSV = `route_id,start_location,destination,modes,distance_km,extra_distance_km,notes,transport_mode,co2_per_km,speed_km_h
,,,,,,,Train,41,120
,,,,,,,Bus,105,50
,,,,,,,EV Car,53,80
,,,,,,,Cycling,0,15
,,,,,,,Walking,0,5
,,,,,,,Metro,30,35
,,,,,,,Flight,255,700
,,,,,,,Tram,100,25
R1,Alpha,Beta,Tram,50,0,middle,,,
R2,Alpha,Beta,Tram,20,0,cleanest,,,
R3,Alpha,Beta,Tram,80,0,dirtiest,,,
R4,Alpha,Gamma,Flight,400,30,fast but dirty,,,
R5,Alpha,Delta,Tram,10,0,first,,,
R6,Alpha,Delta,Tram,10,0,second,,,
R7,Alpha,Delta,Tram,10,0,third,,,
R8,Alpha,Delta,Tram,10,0,fourth,,,
R9,Alpha,Epsilon,EV Car,30,2,electric,,,
R10,Alpha,Zeta,Train+Bus,60,3,mixed,,,
`

func testTables(t *testing.T) *reference.Tables {
	t.Helper()
	tables, err := reference.Load(context.Background(),
		reference.NewCSVSource("test", strings.NewReader(referenceCSV)),
		planner.CandidateModes()...)
	require.NoError(t, err)
	return tables
}

// stubClassifier returns a fixed label.
type stubClassifier int

func (s stubClassifier) Predict(classifier.Features) int { return int(s) }

// fakeGeocoder resolves from a fixed table and counts calls.
type fakeGeocoder struct {
	mu     sync.Mutex
	places map[string]geocoding.Coordinate
	calls  int
}

func (g *fakeGeocoder) Geocode(_ context.Context, place string) (geocoding.Coordinate, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	c, ok := g.places[place]
	return c, ok
}

func (g *fakeGeocoder) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// fixedRandom always returns the same value.
type fixedRandom float64

func (f fixedRandom) Float64() float64 { return float64(f) }

func newPlanner(t *testing.T, label int, geo planner.Geocoder) *planner.Planner {
	t.Helper()
	tables := testTables(t)
	p, err := planner.New(planner.Config{
		Routes:     tables.Routes,
		Estimator:  emissions.NewEstimator(tables.Modes),
		Classifier: stubClassifier(label),
		Geocoder:   geo,
		Logger:     zerolog.Nop(),
		NewRandom:  func() planner.RandomSource { return fixedRandom(0.5) },
	})
	require.NoError(t, err)
	return p
}

// Points along the prime meridian; one degree of latitude is ~111.19 km.
var meridian = map[string]geocoding.Coordinate{
	"Origin":   {Lat: 0, Lon: 0},
	"OneDeg":   {Lat: 1, Lon: 0},
	"ThirtyKm": {Lat: 30.0 / 111.19492664455873, Lon: 0},
	"FarAway":  {Lat: 5, Lon: 0},
}

func TestPlan_RanksByEmissions(t *testing.T) {
	p := newPlanner(t, classifier.LabelEco, &fakeGeocoder{})

	plan, err := p.Plan(context.Background(), planner.Request{StartLocation: "Alpha", Destination: "Beta"})
	require.NoError(t, err)
	require.Len(t, plan.Options, 3)

	assert.Equal(t, planner.SourceReference, plan.Source)
	assert.InDelta(t, 2.0, plan.Options[0].EstimatedEmissionsKg, 1e-9)
	assert.InDelta(t, 5.0, plan.Options[1].EstimatedEmissionsKg, 1e-9)
	assert.InDelta(t, 8.0, plan.Options[2].EstimatedEmissionsKg, 1e-9)

	out := planner.Format(plan.Options)
	assert.Equal(t, "2.0 kg CO2", out["option_1"].EstimatedEmissions)
	assert.Equal(t, "cleanest", out["option_1"].Notes)
	assert.Equal(t, "Tram", out["option_1"].TransportMode)
	assert.Equal(t, "0 hours 48 minutes", out["option_1"].EstimatedTime)
}

func TestPlan_KnownPairNeverGeocodes(t *testing.T) {
	geo := &fakeGeocoder{places: meridian}
	p := newPlanner(t, classifier.LabelEco, geo)

	_, err := p.Plan(context.Background(), planner.Request{StartLocation: "Alpha", Destination: "Beta"})
	require.NoError(t, err)
	assert.Equal(t, 0, geo.callCount())
}

func TestPlan_KnownFlightExcludedWhenNotEco(t *testing.T) {
	geo := &fakeGeocoder{places: meridian}
	p := newPlanner(t, classifier.LabelNotEco, geo)

	plan, err := p.Plan(context.Background(), planner.Request{StartLocation: "Alpha", Destination: "Gamma"})
	require.NoError(t, err)
	assert.Empty(t, plan.Options)
	assert.Equal(t, planner.SourceReference, plan.Source)
	assert.Equal(t, 0, geo.callCount())
	assert.Empty(t, planner.Format(plan.Options))
}

func TestPlan_KnownRouteFilterIsSubstringBased(t *testing.T) {
	p := newPlanner(t, classifier.LabelNotEco, &fakeGeocoder{})

	// "EV Car" does not contain "ev_car", so the classifier decides.
	plan, err := p.Plan(context.Background(), planner.Request{StartLocation: "Alpha", Destination: "Epsilon"})
	require.NoError(t, err)
	assert.Empty(t, plan.Options)

	// "Train+Bus" contains "train".
	plan, err = p.Plan(context.Background(), planner.Request{StartLocation: "Alpha", Destination: "Zeta"})
	require.NoError(t, err)
	require.Len(t, plan.Options, 1)
	assert.Equal(t, "Train+Bus", plan.Options[0].TransportMode)
}

func TestPlan_StableTiesAndTopThree(t *testing.T) {
	p := newPlanner(t, classifier.LabelEco, &fakeGeocoder{})

	plan, err := p.Plan(context.Background(), planner.Request{StartLocation: "Alpha", Destination: "Delta"})
	require.NoError(t, err)
	require.Len(t, plan.Options, 3)
	assert.Equal(t, "first", plan.Options[0].Notes)
	assert.Equal(t, "second", plan.Options[1].Notes)
	assert.Equal(t, "third", plan.Options[2].Notes)
}

func TestPlan_ExactMatchOnly(t *testing.T) {
	geo := &fakeGeocoder{places: map[string]geocoding.Coordinate{}}
	p := newPlanner(t, classifier.LabelEco, geo)

	// Case differs, so the reference route does not match.
	_, err := p.Plan(context.Background(), planner.Request{StartLocation: "alpha", Destination: "Beta"})
	assert.ErrorIs(t, err, planner.ErrDistanceUnavailable)
	assert.Equal(t, 2, geo.callCount())
}

func TestPlan_GeneratedExactOutput(t *testing.T) {
	geo := &fakeGeocoder{places: meridian}
	p := newPlanner(t, classifier.LabelNotEco, geo)

	plan, err := p.Plan(context.Background(), planner.Request{StartLocation: "Origin", Destination: "OneDeg"})
	require.NoError(t, err)
	assert.Equal(t, planner.SourceGenerated, plan.Source)
	assert.InDelta(t, 111.19, plan.DistanceKm, 0.01)

	// 111 km: Train, Bus and EV Car are eligible. Bus is not allow-listed
	// and the classifier rejects it. Extra distance is 5 + 15*0.5.
	out := planner.Format(plan.Options)
	assert.Equal(t, map[string]planner.FormattedOption{
		"option_1": {
			TransportMode:      "Train",
			EstimatedTime:      "1 hours 1 minutes",
			EstimatedEmissions: "5.1 kg CO2",
			Notes:              "Generated route; eco-friendly",
		},
		"option_2": {
			TransportMode:      "EV Car",
			EstimatedTime:      "1 hours 32 minutes",
			EstimatedEmissions: "6.6 kg CO2",
			Notes:              "Generated route",
		},
	}, out)
	for _, o := range plan.Options {
		assert.True(t, o.Generated)
	}
}

func TestPlan_GeneratedKeepsClassifierApproved(t *testing.T) {
	p := newPlanner(t, classifier.LabelEco, &fakeGeocoder{places: meridian})

	plan, err := p.Plan(context.Background(), planner.Request{StartLocation: "Origin", Destination: "OneDeg"})
	require.NoError(t, err)

	out := planner.Format(plan.Options)
	require.Len(t, out, 3)
	assert.Equal(t, "Bus", out["option_3"].TransportMode)
	assert.Equal(t, "13.0 kg CO2", out["option_3"].EstimatedEmissions)
	assert.Equal(t, "2 hours 28 minutes", out["option_3"].EstimatedTime)
}

func TestPlan_DistanceUnavailable(t *testing.T) {
	geo := &fakeGeocoder{places: meridian}
	p := newPlanner(t, classifier.LabelEco, geo)

	_, err := p.Plan(context.Background(), planner.Request{StartLocation: "Origin", Destination: "Atlantis"})
	assert.ErrorIs(t, err, planner.ErrDistanceUnavailable)

	_, err = p.Plan(context.Background(), planner.Request{StartLocation: "Atlantis", Destination: "Origin"})
	assert.ErrorIs(t, err, planner.ErrDistanceUnavailable)

	// Both endpoints are always geocoded, even when one is unresolved.
	assert.Equal(t, 4, geo.calls)
}

func TestPlan_NoGeocoder(t *testing.T) {
	p := newPlanner(t, classifier.LabelEco, nil)

	_, err := p.Plan(context.Background(), planner.Request{StartLocation: "Origin", Destination: "OneDeg"})
	assert.ErrorIs(t, err, planner.ErrDistanceUnavailable)
}

func TestPlan_Validation(t *testing.T) {
	p := newPlanner(t, classifier.LabelEco, &fakeGeocoder{})

	_, err := p.Plan(context.Background(), planner.Request{Destination: "Beta"})
	assert.ErrorIs(t, err, planner.ErrMissingStart)

	_, err = p.Plan(context.Background(), planner.Request{StartLocation: "Alpha", Destination: "  "})
	assert.ErrorIs(t, err, planner.ErrMissingDestination)
}

func TestPlan_PreferencesAreInert(t *testing.T) {
	p := newPlanner(t, classifier.LabelEco, &fakeGeocoder{})

	base, err := p.Plan(context.Background(), planner.Request{StartLocation: "Alpha", Destination: "Beta"})
	require.NoError(t, err)

	withPrefs, err := p.Plan(context.Background(), planner.Request{
		StartLocation:   "Alpha",
		Destination:     "Beta",
		Preferences:     []string{"fastest", "no trains"},
		TimeFlexibility: "2 hours",
	})
	require.NoError(t, err)
	assert.Equal(t, base, withPrefs)
}

func TestPlan_UnknownModeSurfaces(t *testing.T) {
	modes := testTables(t).Modes
	routes := reference.NewRouteTable([]reference.RouteRecord{
		{RouteID: "X1", StartLocation: "A", Destination: "B", Modes: []string{"Hovercraft"}, DistanceKm: 10},
	})
	p, err := planner.New(planner.Config{
		Routes:     routes,
		Estimator:  emissions.NewEstimator(modes),
		Classifier: stubClassifier(classifier.LabelEco),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	_, err = p.Plan(context.Background(), planner.Request{StartLocation: "A", Destination: "B"})
	assert.ErrorIs(t, err, reference.ErrUnknownMode)
}

func TestPlan_DefaultRandomVaries(t *testing.T) {
	tables := testTables(t)
	p, err := planner.New(planner.Config{
		Routes:     tables.Routes,
		Estimator:  emissions.NewEstimator(tables.Modes),
		Classifier: stubClassifier(classifier.LabelNotEco),
		Geocoder:   &fakeGeocoder{places: meridian},
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	seen := map[float64]bool{}
	for i := 0; i < 5; i++ {
		plan, err := p.Plan(context.Background(), planner.Request{StartLocation: "Origin", Destination: "OneDeg"})
		require.NoError(t, err)
		require.NotEmpty(t, plan.Options)
		seen[plan.Options[0].EstimatedEmissionsKg] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := planner.New(planner.Config{})
	assert.Error(t, err)
}
