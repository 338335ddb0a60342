package pipeline

import (
	"fmt"

	"github.com/go-sod/frsod/internal/geom"
	"github.com/go-sod/frsod/internal/predictor"
	"github.com/go-sod/frsod/internal/predictor/frnn"
	"github.com/go-sod/frsod/internal/predictor/knn"
	"github.com/go-sod/frsod/internal/predictor/knn/brute"
	"github.com/go-sod/frsod/internal/predictor/nn"
	"github.com/go-sod/frsod/internal/predictor/nnd"
	"github.com/go-sod/frsod/pkg/math/fuzzy"
)

var ErrUnsupportedIndex = fmt.Errorf("unsupported index algorithm")

// Settings selects and parameterises a model.
type Settings struct {
	Algorithm predictor.AlgType
	K         int
	Metric    geom.Metric
	TNorm     fuzzy.TNorm
	Index     knn.AlgType
	Workers   int
	Normalise bool
}

// SettingsFrom fills Settings from the service-wide predictor config.
func SettingsFrom(c predictor.Config) Settings {
	return Settings{
		Algorithm: c.Type,
		K:         c.K,
		Metric:    c.Metric,
		TNorm:     c.TNorm,
		Index:     knn.AlgTypeBrute,
		Workers:   c.IndexWorkers,
		Normalise: true,
	}
}

// IndexFor returns the index constructor for alg. Only exact brute-force
// search is available.
func IndexFor(alg knn.AlgType, workers int) (knn.ProvideFn, error) {
	switch alg {
	case knn.AlgTypeBrute, "":
		return brute.Provide(brute.WithWorkers(workers)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedIndex, alg)
	}
}

func (s Settings) pipelineOptions() []Option {
	if s.Normalise {
		return nil
	}
	return []Option{WithoutNormaliser()}
}

// ClassifierFor builds an unfitted classification pipeline.
func ClassifierFor(s Settings) (*Pipeline, error) {
	index, err := IndexFor(s.Index, s.Workers)
	if err != nil {
		return nil, err
	}
	var est predictor.Estimator
	switch s.Algorithm {
	case predictor.AlgTypeNN:
		est = nn.New(nn.WithK(s.K), nn.WithMetric(s.Metric), nn.WithIndex(index))
	case predictor.AlgTypeFRNN:
		tnorm := s.TNorm
		if tnorm == "" {
			tnorm = fuzzy.TNormMin
		}
		est = frnn.New(frnn.WithK(s.K), frnn.WithMetric(s.Metric), frnn.WithTNorm(tnorm), frnn.WithIndex(index))
	default:
		return nil, fmt.Errorf("%w: %s is not a classifier", predictor.ErrUnknownAlg, s.Algorithm)
	}
	return New(est, s.pipelineOptions()...), nil
}

// NoveltyFor builds an unfitted novelty pipeline.
func NoveltyFor(s Settings) (*Novelty, error) {
	if s.Algorithm != predictor.AlgTypeNND {
		return nil, fmt.Errorf("%w: %s is not a novelty detector", predictor.ErrUnknownAlg, s.Algorithm)
	}
	index, err := IndexFor(s.Index, s.Workers)
	if err != nil {
		return nil, err
	}
	d := nnd.New(nnd.WithK(s.K), nnd.WithMetric(s.Metric), nnd.WithIndex(index))
	return NewNovelty(d, s.pipelineOptions()...), nil
}
