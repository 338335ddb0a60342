// Package nn scores queries by distance-weighted votes of their nearest
// labelled neighbours.
package nn

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

const DefaultK = 1

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

func (e *Estimator) K() int { return e.k }

func (e *Estimator) Metric() geom.Metric { return e.metric }

func (e *Estimator) Fit(x *matrix.Matrix, y predictor.Labels) (predictor.Classifier, error) {
	classes, err := predictor.ValidateFit(x, y, e.k)
	if err != nil {
		return nil, err
	}
	index, err := e.newIndex(x, e.metric)
	if err != nil {
		return nil, fmt.Errorf("unable creating nn index: %w", err)
	}
	return &Model{
		labels:  y.Copy(),
		index:   index,
		classes: classes,
		k:       e.k,
	}, nil
}

// Model is a fitted NN classifier. It is immutable once returned by Fit.
type Model struct {
	labels  predictor.Labels
	index   knn.Index
	classes int
	k       int
}

func (m *Model) Classes() int { return m.classes }

func (m *Model) Features() int {
	if m.index == nil {
		return 0
	}
	return m.index.Dimensions()
}

func (m *Model) K() int { return m.k }

// PredictScores accumulates weight 1/(1+d), or 1 for an exact match, into
// the column of every neighbour's class. Rows with a positive finite total
// weight are normalised to sum to 1; any other row is left as accumulated.
func (m *Model) PredictScores(x *matrix.Matrix) (*matrix.Matrix, error) {
	if m.index == nil {
		return nil, predictor.ErrNotFitted
	}
	res, err := m.index.Query(x, m.k)
	if err != nil {
		return nil, err
	}
	scores := matrix.New(res.Rows(), m.classes)
	for i := 0; i < res.Rows(); i++ {
		row := scores.Row(i)
		var total float64
		for j := 0; j < res.K(); j++ {
			w := weight(res.Distance(i, j))
			row[m.labels[res.Index(i, j)]] += w
			total += w
		}
		if total > 0 && fuzzy.IsFinite(total) {
			for c := range row {
				row[c] /= total
			}
		}
	}
	return scores, nil
}

func weight(d float64) float64 {
	if d <= 0 {
		return 1
	}
	return 1 / (1 + d)
}
