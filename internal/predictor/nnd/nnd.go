// Package nnd scores novelty as the mean distance from a query to its
// nearest inliers, min-max normalised over the query batch.
package nnd

import (
	"fmt"

	"github.com/go-sod/frsod/internal/geom"
	"github.com/go-sod/frsod/internal/predictor"
	"github.com/go-sod/frsod/internal/predictor/knn"
	"github.com/go-sod/frsod/internal/predictor/knn/brute"
	"github.com/go-sod/frsod/pkg/math/fuzzy"
	"github.com/go-sod/frsod/pkg/math/matrix"
)

var (
	_ predictor.Descriptor = (*Estimator)(nil)
	_ predictor.Detector   = (*Model)(nil)
)

const DefaultK = 5

type Option func(*Estimator)

func WithK(k int) Option {
	return func(e *Estimator) {
		e.k = k
	}
}

func WithMetric(m geom.Metric) Option {
	return func(e *Estimator) {
		e.metric = m
	}
}

func WithIndex(fn knn.ProvideFn) Option {
	return func(e *Estimator) {
		e.newIndex = fn
	}
}

func New(opts ...Option) *Estimator {
	e := &Estimator{
		k:        DefaultK,
		metric:   geom.MetricEuclidean,
		newIndex: brute.Provide(),
	}
	for _, f := range opts {
		f(e)
	}
	return e
}

type Estimator struct {
	k        int
	metric   geom.Metric
	newIndex knn.ProvideFn
}

func (e *Estimator) Fit(x *matrix.Matrix) (predictor.Detector, error) {
	if x == nil || x.Empty() {
		return nil, predictor.ErrEmptyInput
	}
	if e.k < 1 {
		return nil, predictor.InvalidInputf("k must be at least 1")
	}
	index, err := e.newIndex(x, e.metric)
	if err != nil {
		return nil, fmt.Errorf("unable creating nnd index: %w", err)
	}
	return &Model{index: index, k: e.k, metric: e.metric}, nil
}

type Model struct {
	index  knn.Index
	k      int
	metric geom.Metric
}

func (m *Model) Features() int {
	if m.index == nil {
		return 0
	}
	return m.index.Dimensions()
}

func (m *Model) K() int { return m.k }

func (m *Model) Metric() geom.Metric { return m.metric }

// PredictAnomalyScores returns one score in [0, 1] per query. Scores are
// relative to the batch: the farthest query scores 1, the nearest 0, and a
// batch without spread scores 0 throughout.
func (m *Model) PredictAnomalyScores(x *matrix.Matrix) ([]float64, error) {
	if m.index == nil {
		return nil, predictor.ErrNotFitted
	}
	res, err := m.index.Query(x, m.k)
	if err != nil {
		return nil, err
	}
	raw := make([]float64, res.Rows())
	if res.K() == 0 {
		return raw, nil
	}
	for i := range raw {
		var sum float64
		for _, d := range res.Distances(i) {
			sum += d
		}
		raw[i] = max(fuzzy.SafeDivide(sum, float64(res.K()), 0), 0)
	}
	return Normalize(raw), nil
}

// PredictScores wraps PredictAnomalyScores as a single-column matrix.
func (m *Model) PredictScores(x *matrix.Matrix) (*matrix.Matrix, error) {
	scores, err := m.PredictAnomalyScores(x)
	if err != nil {
		return nil, err
	}
	return matrix.NewFromData(len(scores), 1, scores)
}

// Normalize min-max scales raw into [0, 1]. A range that is non-finite or
// within machine epsilon yields all zeros.
func Normalize(raw []float64) []float64 {
	out := make([]float64, len(raw))
	if len(raw) == 0 {
		return out
	}
	lo, hi := raw[0], raw[0]
	for _, v := range raw[1:] {
		lo, hi = min(lo, v), max(hi, v)
	}
	span := hi - lo
	if !fuzzy.IsFinite(span) || span <= fuzzy.Epsilon {
		return out
	}
	for i, v := range raw {
		out[i] = fuzzy.Clamp01(fuzzy.SafeDivide(v-lo, span, 0))
	}
	return out
}
