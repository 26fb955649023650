package classifier

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/ecoroute/ecoroute/internal/emissions"
	"github.com/ecoroute/ecoroute/internal/reference"
)

// MinTrainingSamples is the smallest route table a model can be trained on.
const MinTrainingSamples = 2

// ErrInsufficientTrainingData is returned when there are too few routes to train on.
var ErrInsufficientTrainingData = errors.New("insufficient training data")

// Estimator computes metrics for a route's legs.
type Estimator interface {
	Estimate(legs []string, distanceKm, extraDistanceKm float64) (emissions.Metrics, error)
}

// Config controls training.
type Config struct {
	// MaxDepth bounds the tree depth (default: 5).
	MaxDepth int
	// Seed fixes the feature visiting order (default: 42).
	Seed uint64
	// MinSamplesSplit is the smallest node that may be split (default: 2).
	MinSamplesSplit int
}

// DefaultConfig returns the production training configuration.
func DefaultConfig() Config {
	return Config{
		MaxDepth:        5,
		Seed:            42,
		MinSamplesSplit: 2,
	}
}

// Model is a trained eco-friendliness classifier.
// It is read-only after Train returns and safe for concurrent use.
type Model struct {
	root      *node
	samples   int
	positives int
}

// Train fits a decision tree on routes, labelling each route by its
// eco-friendly notes marker.
func Train(routes []reference.RouteRecord, est Estimator, cfg Config) (*Model, error) {
	if len(routes) < MinTrainingSamples {
		return nil, fmt.Errorf("%w: %d routes, need at least %d",
			ErrInsufficientTrainingData, len(routes), MinTrainingSamples)
	}

	defaults := DefaultConfig()
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaults.MaxDepth
	}
	if cfg.Seed == 0 {
		cfg.Seed = defaults.Seed
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = defaults.MinSamplesSplit
	}

	samples := make([]sample, 0, len(routes))
	positives := 0
	for _, r := range routes {
		m, err := est.Estimate(r.Modes, r.DistanceKm, r.ExtraDistanceKm)
		if err != nil {
			return nil, fmt.Errorf("estimating route %s: %w", r.RouteID, err)
		}

		s := sample{x: NewFeatures(r.Modes, r.DistanceKm, r.ExtraDistanceKm, m).Vector()}
		if r.EcoFriendly() {
			s.y = LabelEco
			positives++
		}
		samples = append(samples, s)
	}

	b := &treeBuilder{
		maxDepth:        cfg.MaxDepth,
		minSamplesSplit: cfg.MinSamplesSplit,
		rng:             rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)), //nolint:gosec // reproducibility, not security
	}

	return &Model{
		root:      b.build(samples, 0),
		samples:   len(samples),
		positives: positives,
	}, nil
}

// Predict returns LabelEco or LabelNotEco for f.
func (m *Model) Predict(f Features) int {
	return m.root.predict(f.Vector())
}

// Stats describes the trained model.
type Stats struct {
	Samples   int
	Positives int
	Depth     int
	Leaves    int
}

// Stats returns training and shape statistics.
func (m *Model) Stats() Stats {
	return Stats{
		Samples:   m.samples,
		Positives: m.positives,
		Depth:     m.root.depth(),
		Leaves:    m.root.leaves(),
	}
}
