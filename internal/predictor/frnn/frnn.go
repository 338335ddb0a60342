// Package frnn implements the fuzzy-rough nearest neighbour classifier. A
// query's score for a class averages the upper approximation (best
// similarity to a same-class neighbour) and the lower approximation (how
// dissimilar it is to every other-class neighbour).
package frnn

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
	_ predictor.Estimator  = (*Estimator)(nil)
	_ predictor.Classifier = (*Model)(nil)
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

// WithTNorm sets the operator folding the lower approximation. Min by default.
func WithTNorm(t fuzzy.TNorm) Option {
	return func(e *Estimator) {
		e.tnorm = t
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
		tnorm:    fuzzy.TNormMin,
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
	tnorm    fuzzy.TNorm
	newIndex knn.ProvideFn
}

func (e *Estimator) Fit(x *matrix.Matrix, y predictor.Labels) (predictor.Classifier, error) {
	classes, err := predictor.ValidateFit(x, y, e.k)
	if err != nil {
		return nil, err
	}
	if _, err := fuzzy.ParseTNorm(string(e.tnorm)); err != nil {
		return nil, predictor.InvalidInputf("%v", err)
	}
	index, err := e.newIndex(x, e.metric)
	if err != nil {
		return nil, fmt.Errorf("unable creating frnn index: %w", err)
	}
	return &Model{
		labels:  y.Copy(),
		index:   index,
		classes: classes,
		k:       e.k,
		tnorm:   e.tnorm.Func(),
	}, nil
}

type Model struct {
	labels  predictor.Labels
	index   knn.Index
	classes int
	k       int
	tnorm   func(a, b float64) float64
}

func (m *Model) Classes() int { return m.classes }

func (m *Model) Features() int {
	if m.index == nil {
		return 0
	}
	return m.index.Dimensions()
}

func (m *Model) K() int { return m.k }

// PredictScores returns one row per query, normalised to sum to 1. Queries
// without any neighbour score 0 everywhere.
func (m *Model) PredictScores(x *matrix.Matrix) (*matrix.Matrix, error) {
	if m.index == nil {
		return nil, predictor.ErrNotFitted
	}
	res, err := m.index.Query(x, m.k)
	if err != nil {
		return nil, err
	}
	scores := matrix.New(res.Rows(), m.classes)
	if res.K() == 0 {
		return scores, nil
	}

	sim := make([]float64, res.K())
	for i := 0; i < res.Rows(); i++ {
		for j := range sim {
			sim[j] = similarity(res.Distance(i, j))
		}
		row, nbrs := scores.Row(i), res.Indices(i)
		for c := range row {
			upper, lower := 0.0, 1.0
			for j, n := range nbrs {
				if m.labels[n] == c {
					if sim[j] > upper {
						upper = sim[j]
					}
					continue
				}
				lower = m.tnorm(lower, fuzzy.Complement(sim[j]))
			}
			row[c] = fuzzy.Clamp01(0.5 * (lower + upper))
		}
	}
	return matrix.SafeNormalizeRows(scores), nil
}

func similarity(d float64) float64 {
	if !fuzzy.IsFinite(d) || d < 0 {
		return 0
	}
	return fuzzy.Clamp01(1 / (1 + d))
}
