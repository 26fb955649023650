package planner

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ecoroute/ecoroute/internal/classifier"
	"github.com/ecoroute/ecoroute/internal/emissions"
	"github.com/ecoroute/ecoroute/internal/reference"
)

const instrumentationName = "github.com/ecoroute/ecoroute/internal/planner"

// DefaultMaxOptions is the number of options returned by a plan.
const DefaultMaxOptions = 3

// Request validation errors.
var (
	ErrMissingStart       = errors.New("start_location is required")
	ErrMissingDestination = errors.New("destination is required")
)

// Config holds configuration for the planner.
type Config struct {
	// Routes is the reference route table (required).
	Routes Routes

	// Estimator computes route metrics (required).
	Estimator Estimator

	// Classifier labels routes as eco-friendly (required).
	Classifier Classifier

	// Geocoder resolves places for trips with no reference route.
	Geocoder Geocoder

	// Logger for planner operations.
	Logger zerolog.Logger

	// NewRandom returns the random source for one request. Defaults to a
	// freshly seeded PCG generator per request.
	NewRandom func() RandomSource

	// MaxOptions caps the number of returned options (default: 3).
	MaxOptions int
}

// Planner plans trips. It holds only read-only state and is safe for
// concurrent use.
type Planner struct {
	routes     Routes
	estimator  Estimator
	classifier Classifier
	generator  *Generator
	logger     zerolog.Logger
	newRandom  func() RandomSource
	maxOptions int

	tracer    trace.Tracer
	planTotal metric.Int64Counter
}

// New creates a planner.
func New(cfg Config) (*Planner, error) {
	if cfg.Routes == nil || cfg.Estimator == nil || cfg.Classifier == nil {
		return nil, errors.New("planner: routes, estimator and classifier are required")
	}

	newRandom := cfg.NewRandom
	if newRandom == nil {
		newRandom = func() RandomSource {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // sampling, not security
		}
	}

	maxOptions := cfg.MaxOptions
	if maxOptions <= 0 {
		maxOptions = DefaultMaxOptions
	}

	planTotal, err := otel.Meter(instrumentationName).Int64Counter(
		"planner.plans",
		metric.WithDescription("Number of trip plans by source and outcome"),
		metric.WithUnit("{plan}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating plan counter: %w", err)
	}

	return &Planner{
		routes:     cfg.Routes,
		estimator:  cfg.Estimator,
		classifier: cfg.Classifier,
		generator:  NewGenerator(cfg.Geocoder, cfg.Estimator, cfg.Classifier),
		logger:     cfg.Logger,
		newRandom:  newRandom,
		maxOptions: maxOptions,
		tracer:     otel.Tracer(instrumentationName),
		planTotal:  planTotal,
	}, nil
}

// Plan returns up to MaxOptions eco-friendly options ordered by ascending
// emissions. Reference routes for the exact pair are used when present;
// otherwise candidates are generated from the geocoded distance.
func (p *Planner) Plan(ctx context.Context, req Request) (*Plan, error) {
	if strings.TrimSpace(req.StartLocation) == "" {
		return nil, ErrMissingStart
	}
	if strings.TrimSpace(req.Destination) == "" {
		return nil, ErrMissingDestination
	}

	ctx, span := p.tracer.Start(ctx, "planner.Plan",
		trace.WithAttributes(
			attribute.String("trip.start", req.StartLocation),
			attribute.String("trip.destination", req.Destination),
		),
	)
	defer span.End()

	start := time.Now()
	plan, err := p.plan(ctx, req)

	source := SourceGenerated
	if plan != nil {
		source = plan.Source
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, ErrDistanceUnavailable) {
			outcome = "distance_unavailable"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	p.planTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", string(source)),
		attribute.String("outcome", outcome),
	))

	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("plan.source", string(plan.Source)),
		attribute.Int("plan.options", len(plan.Options)),
	)
	p.logger.Debug().
		Str("start", req.StartLocation).
		Str("destination", req.Destination).
		Str("source", string(plan.Source)).
		Int("options", len(plan.Options)).
		Dur("duration", time.Since(start)).
		Msg("trip planned")

	return plan, nil
}

func (p *Planner) plan(ctx context.Context, req Request) (*Plan, error) {
	if known := p.routes.Match(req.StartLocation, req.Destination); len(known) > 0 {
		options, err := p.scoreKnown(known)
		if err != nil {
			return nil, err
		}
		return &Plan{Options: p.rank(options), Source: SourceReference}, nil
	}

	gen, err := p.generator.Generate(ctx, req.StartLocation, req.Destination, p.newRandom())
	if err != nil {
		return nil, err
	}
	return &Plan{
		Options:    p.rank(gen.Options),
		Source:     SourceGenerated,
		DistanceKm: gen.DistanceKm,
	}, nil
}

// scoreKnown estimates and filters reference routes.
func (p *Planner) scoreKnown(routes []reference.RouteRecord) ([]Option, error) {
	options := make([]Option, 0, len(routes))
	for _, r := range routes {
		m, err := p.estimator.Estimate(r.Modes, r.DistanceKm, r.ExtraDistanceKm)
		if err != nil {
			return nil, fmt.Errorf("estimating route %s: %w", r.RouteID, err)
		}

		label := p.classifier.Predict(classifier.NewFeatures(r.Modes, r.DistanceKm, r.ExtraDistanceKm, m))
		modes := r.ModeString()
		if label != classifier.LabelEco && !MatchesKnownRouteEcoModes(modes) {
			continue
		}

		options = append(options, Option{
			TransportMode:        modes,
			EstimatedTime:        emissions.FormatDuration(m.Hours),
			EstimatedEmissionsKg: m.EmissionsKg,
			Hours:                m.Hours,
			Notes:                r.Notes,
			EcoLabel:             label,
		})
	}
	return options, nil
}

// rank sorts by ascending emissions, keeping input order for ties, and
// truncates to maxOptions.
func (p *Planner) rank(options []Option) []Option {
	slices.SortStableFunc(options, func(a, b Option) int {
		return cmp.Compare(a.EstimatedEmissionsKg, b.EstimatedEmissionsKg)
	})
	if len(options) > p.maxOptions {
		options = options[:p.maxOptions]
	}
	return options
}
