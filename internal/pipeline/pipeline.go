// Package pipeline chains range normalisation, feature and prototype
// selection and a fitted model behind one fit/predict surface.
package pipeline

import (
	"fmt"

	"github.com/go-sod/frsod/internal/geom"
	"github.com/go-sod/frsod/internal/predictor"
	"github.com/go-sod/frsod/internal/predictor/frnn"
	"github.com/go-sod/frsod/internal/predictor/nn"
	"github.com/go-sod/frsod/internal/preprocess"
	"github.com/go-sod/frsod/pkg/math/matrix"
)

type Option func(*options)

type options struct {
	normalise  bool
	normaliser preprocess.RangeNormaliser
	features   preprocess.FeatureSelector
	prototypes preprocess.PrototypeSelector
}

func WithNormaliser(n preprocess.RangeNormaliser) Option {
	return func(o *options) {
		o.normalise = true
		o.normaliser = n
	}
}

func WithoutNormaliser() Option {
	return func(o *options) {
		o.normalise = false
	}
}

func WithFeatureSelector(s preprocess.FeatureSelector) Option {
	return func(o *options) {
		o.features = s
	}
}

func WithPrototypeSelector(s preprocess.PrototypeSelector) Option {
	return func(o *options) {
		o.prototypes = s
	}
}

func newOptions(opts []Option) options {
	o := options{
		normalise:  true,
		normaliser: preprocess.NewRangeNormaliser(),
		features:   preprocess.PassThroughFeatures{},
		prototypes: preprocess.PassThroughPrototypes{},
	}
	for _, f := range opts {
		f(&o)
	}
	return o
}

// stages is the fitted preprocessing shared by both pipeline kinds.
type stages struct {
	normaliser *preprocess.RangeModel
	features   preprocess.FeatureSelection
}

func (s stages) transform(x *matrix.Matrix) (*matrix.Matrix, error) {
	if s.normaliser != nil {
		var err error
		if x, err = s.normaliser.Transform(x); err != nil {
			return nil, err
		}
	}
	if s.features != nil {
		return s.features.Transform(x)
	}
	return x, nil
}

func (o options) fitStages(x *matrix.Matrix, y predictor.Labels) (stages, *matrix.Matrix, error) {
	var s stages
	if x == nil || x.Empty() {
		return s, nil, predictor.ErrEmptyInput
	}
	if o.normalise {
		s.normaliser = o.normaliser.Fit(x)
		var err error
		if x, err = s.normaliser.Transform(x); err != nil {
			return s, nil, err
		}
	}
	if o.features != nil {
		sel, err := o.features.Fit(x, y)
		if err != nil {
			return s, nil, fmt.Errorf("unable to select features: %w", err)
		}
		s.features = sel
		if x, err = sel.Transform(x); err != nil {
			return s, nil, err
		}
	}
	return s, x, nil
}

// Pipeline fits a classifier on preprocessed reference data.
type Pipeline struct {
	opts      options
	estimator predictor.Estimator
}

func New(estimator predictor.Estimator, opts ...Option) *Pipeline {
	return &Pipeline{opts: newOptions(opts), estimator: estimator}
}

// DefaultNN is an NN classifier behind the default range normaliser.
func DefaultNN(k int, metric geom.Metric) *Pipeline {
	return New(nn.New(nn.WithK(k), nn.WithMetric(metric)))
}

// DefaultFRNN is an FRNN classifier behind the default range normaliser.
func DefaultFRNN(k int, metric geom.Metric) *Pipeline {
	return New(frnn.New(frnn.WithK(k), frnn.WithMetric(metric)))
}

func (p *Pipeline) Fit(x *matrix.Matrix, y predictor.Labels) (*Model, error) {
	s, xt, err := p.opts.fitStages(x, y)
	if err != nil {
		return nil, err
	}
	if p.opts.prototypes != nil {
		sel, err := p.opts.prototypes.Fit(xt, y)
		if err != nil {
			return nil, fmt.Errorf("unable to select prototypes: %w", err)
		}
		if xt, y, err = sel.TransformDataset(xt, y); err != nil {
			return nil, err
		}
	}
	clf, err := p.estimator.Fit(xt, y)
	if err != nil {
		return nil, err
	}
	return &Model{stages: s, classifier: clf, features: x.Cols()}, nil
}

// Model is a fitted Pipeline.
type Model struct {
	stages     stages
	classifier predictor.Classifier
	features   int
}

var _ predictor.Classifier = (*Model)(nil)

func (m *Model) Classes() int { return m.classifier.Classes() }

// Features is the column count expected from raw queries.
func (m *Model) Features() int { return m.features }

func (m *Model) PredictScores(x *matrix.Matrix) (*matrix.Matrix, error) {
	if m.classifier == nil {
		return nil, predictor.ErrNotFitted
	}
	xt, err := m.stages.transform(x)
	if err != nil {
		return nil, err
	}
	return m.classifier.PredictScores(xt)
}

func (m *Model) Predict(x *matrix.Matrix) ([]int, error) {
	scores, err := m.PredictScores(x)
	if err != nil {
		return nil, err
	}
	return predictor.SelectClass(scores), nil
}

func (m *Model) PredictProba(x *matrix.Matrix) (*matrix.Matrix, error) {
	scores, err := m.PredictScores(x)
	if err != nil {
		return nil, err
	}
	return predictor.ProbabilitiesFromScores(scores), nil
}

// Novelty fits a Detector on preprocessed inliers. Feature and prototype
// selectors are fitted without labels.
type Novelty struct {
	opts       options
	descriptor predictor.Descriptor
}

func NewNovelty(descriptor predictor.Descriptor, opts ...Option) *Novelty {
	return &Novelty{opts: newOptions(opts), descriptor: descriptor}
}

func (p *Novelty) Fit(x *matrix.Matrix) (*NoveltyModel, error) {
	s, xt, err := p.opts.fitStages(x, nil)
	if err != nil {
		return nil, err
	}
	det, err := p.descriptor.Fit(xt)
	if err != nil {
		return nil, err
	}
	return &NoveltyModel{stages: s, detector: det, features: x.Cols()}, nil
}

type NoveltyModel struct {
	stages   stages
	detector predictor.Detector
	features int
}

var _ predictor.Detector = (*NoveltyModel)(nil)

func (m *NoveltyModel) Features() int { return m.features }

func (m *NoveltyModel) PredictAnomalyScores(x *matrix.Matrix) ([]float64, error) {
	if m.detector == nil {
		return nil, predictor.ErrNotFitted
	}
	xt, err := m.stages.transform(x)
	if err != nil {
		return nil, err
	}
	return m.detector.PredictAnomalyScores(xt)
}

func (m *NoveltyModel) PredictScores(x *matrix.Matrix) (*matrix.Matrix, error) {
	scores, err := m.PredictAnomalyScores(x)
	if err != nil {
		return nil, err
	}
	return matrix.NewFromData(len(scores), 1, scores)
}
