package planner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ecoroute/ecoroute/internal/classifier"
	"github.com/ecoroute/ecoroute/internal/emissions"
	"github.com/ecoroute/ecoroute/internal/geocoding"
)

// Candidate modes in generation order.
const (
	ModeTrain   = "Train"
	ModeBus     = "Bus"
	ModeEVCar   = "EV Car"
	ModeCycling = "Cycling"
	ModeWalking = "Walking"
	ModeMetro   = "Metro"
	ModeFlight  = "Flight"
)

var candidateModes = []string{ModeTrain, ModeBus, ModeEVCar, ModeCycling, ModeWalking, ModeMetro, ModeFlight}

// Eligibility limits in km.
const (
	MaxActiveDistanceKm = 50.0
	MaxMetroDistanceKm  = 100.0
	MinFlightDistanceKm = 200.0
)

// Extra distance sampling in km.
const (
	FlightExtraDistanceKm = 5.0
	MinExtraDistanceKm    = 5.0
	MaxExtraDistanceKm    = 20.0
)

// Candidate notes.
const (
	NoteGenerated              = "Generated route"
	NoteGeneratedEco           = "Generated route; eco-friendly"
	NoteGeneratedHighEmissions = "Generated route; high emissions"
)

// CandidateModes returns the modes the generator may propose. The reference
// mode table must define all of them.
func CandidateModes() []string {
	return append([]string(nil), candidateModes...)
}

// EligibleModes returns the candidate modes allowed for a trip of distanceKm,
// in generation order.
func EligibleModes(distanceKm float64) []string {
	out := make([]string, 0, len(candidateModes))
	for _, m := range candidateModes {
		switch m {
		case ModeCycling, ModeWalking:
			if distanceKm > MaxActiveDistanceKm {
				continue
			}
		case ModeMetro:
			if distanceKm > MaxMetroDistanceKm {
				continue
			}
		case ModeFlight:
			if distanceKm < MinFlightDistanceKm {
				continue
			}
		}
		out = append(out, m)
	}
	return out
}

// sampleExtraDistance draws the access and transfer overhead for mode.
// Flights use a fixed overhead and do not consume a random value.
func sampleExtraDistance(mode string, rnd RandomSource) float64 {
	if mode == ModeFlight {
		return FlightExtraDistanceKm
	}
	return MinExtraDistanceKm + (MaxExtraDistanceKm-MinExtraDistanceKm)*rnd.Float64()
}

func candidateNotes(mode string) string {
	switch mode {
	case ModeFlight:
		return NoteGeneratedHighEmissions
	case ModeTrain, ModeMetro, ModeCycling, ModeWalking:
		return NoteGeneratedEco
	default:
		return NoteGenerated
	}
}

// Generator synthesizes single-mode candidates for trips with no reference route.
type Generator struct {
	geocoder   Geocoder
	estimator  Estimator
	classifier Classifier
}

// NewGenerator creates a candidate generator.
func NewGenerator(geocoder Geocoder, est Estimator, clf Classifier) *Generator {
	return &Generator{geocoder: geocoder, estimator: est, classifier: clf}
}

// Generation is the output of Generate: the surviving candidates, unranked.
type Generation struct {
	DistanceKm float64
	Options    []Option
}

// Generate geocodes both endpoints and returns the eligible candidates that
// the classifier or the generator allow-list keeps.
func (g *Generator) Generate(ctx context.Context, start, destination string, rnd RandomSource) (*Generation, error) {
	distance, err := g.distance(ctx, start, destination)
	if err != nil {
		return nil, err
	}

	gen := &Generation{DistanceKm: distance}
	for _, mode := range EligibleModes(distance) {
		extra := sampleExtraDistance(mode, rnd)
		legs := []string{mode}

		m, err := g.estimator.Estimate(legs, distance, extra)
		if err != nil {
			return nil, fmt.Errorf("estimating generated %s route: %w", mode, err)
		}

		label := g.classifier.Predict(classifier.NewFeatures(legs, distance, extra, m))
		if label != classifier.LabelEco && !IsGeneratorAllowListed(mode) {
			continue
		}

		gen.Options = append(gen.Options, Option{
			TransportMode:        mode,
			EstimatedTime:        emissions.FormatDuration(m.Hours),
			EstimatedEmissionsKg: m.EmissionsKg,
			Hours:                m.Hours,
			Notes:                candidateNotes(mode),
			EcoLabel:             label,
			Generated:            true,
		})
	}

	return gen, nil
}

// distance geocodes both endpoints concurrently.
func (g *Generator) distance(ctx context.Context, start, destination string) (float64, error) {
	if g.geocoder == nil {
		return 0, fmt.Errorf("%w: no geocoder configured", ErrDistanceUnavailable)
	}

	var (
		eg           errgroup.Group
		from, to     geocoding.Coordinate
		okFrom, okTo bool
	)
	eg.Go(func() error {
		from, okFrom = g.geocoder.Geocode(ctx, start)
		return nil
	})
	eg.Go(func() error {
		to, okTo = g.geocoder.Geocode(ctx, destination)
		return nil
	})
	_ = eg.Wait()

	switch {
	case !okFrom:
		return 0, fmt.Errorf("%w: could not resolve %q", ErrDistanceUnavailable, start)
	case !okTo:
		return 0, fmt.Errorf("%w: could not resolve %q", ErrDistanceUnavailable, destination)
	}

	return GreatCircleKm(from, to), nil
}
