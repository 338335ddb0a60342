// Package brute implements an exact neighbour index by scanning every
// reference row for every query.
package brute

import (
	"fmt"

	"github.com/go-sod/frsod/internal/geom"
	"github.com/go-sod/frsod/internal/predictor"
	"github.com/go-sod/frsod/internal/predictor/knn"
	"github.com/go-sod/frsod/pkg/math/matrix"
	"github.com/go-sod/frsod/pkg/pqueue"
	"golang.org/x/sync/errgroup"
)

var _ knn.Index = (*brute)(nil)

func WithWorkers(n int) Option {
	return func(b *brute) {
		b.opts.workers = n
	}
}

type Option func(*brute)

type Options struct {
	workers int
}

var defaultOptions = Options{workers: 1}

// Provide returns a knn.ProvideFn building brute indexes with opts.
func Provide(opts ...Option) knn.ProvideFn {
	return func(ref *matrix.Matrix, metric geom.Metric) (knn.Index, error) {
		b, err := New(ref, metric, opts...)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// New copies ref and validates the metric. Reference values are not checked
// here; a non-finite value fails the first query that reaches it.
func New(ref *matrix.Matrix, metric geom.Metric, opts ...Option) (*brute, error) {
	distFn, err := geom.DistanceFuncFor(metric)
	if err != nil {
		return nil, fmt.Errorf("unable creating brute index: %w", err)
	}
	b := &brute{
		data:     ref.Clone(),
		metric:   metric,
		distFunc: distFn,
		opts:     defaultOptions,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.opts.workers < 1 {
		b.opts.workers = 1
	}
	return b, nil
}

type brute struct {
	opts     Options
	data     *matrix.Matrix
	metric   geom.Metric
	distFunc geom.DistanceFunc
}

func (b *brute) Len() int {
	return b.data.Rows()
}

func (b *brute) Dimensions() int {
	return b.data.Cols()
}

func (b *brute) Metric() geom.Metric {
	return b.metric
}

func (b *brute) Query(x *matrix.Matrix, k int) (*knn.Result, error) {
	if err := predictor.ValidateQuery(x, b.Dimensions()); err != nil {
		return nil, err
	}
	if k < 0 {
		k = 0
	}
	if k > b.Len() {
		k = b.Len()
	}
	res := knn.NewResult(x.Rows(), k)
	if x.Rows() == 0 || k == 0 {
		return res, nil
	}

	if b.opts.workers == 1 || x.Rows() == 1 {
		q := pqueue.New(pqueue.WithCap(uint(k)))
		for i := 0; i < x.Rows(); i++ {
			if err := b.knn(q, x, i, res); err != nil {
				return nil, err
			}
		}
		return res, nil
	}

	var g errgroup.Group
	g.SetLimit(b.opts.workers)
	for i := 0; i < x.Rows(); i++ {
		i := i
		g.Go(func() error {
			return b.knn(pqueue.New(pqueue.WithCap(uint(k))), x, i, res)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// knn fills row i of res. Rows are disjoint so concurrent calls never
// write the same memory.
func (b *brute) knn(q *pqueue.Queue, x *matrix.Matrix, i int, res *knn.Result) error {
	q.Reset()
	vec := x.Row(i)
	for j := 0; j < b.data.Rows(); j++ {
		distance, err := b.distFunc(vec, b.data.Row(j))
		if err != nil {
			return fmt.Errorf("%w: query row %d, reference row %d: %w", predictor.ErrInvalidInput, i, j, err)
		}
		q.Push(j, distance)
	}
	indices, distances := res.Indices(i), res.Distances(i)
	for n, it := range q.PopAll() {
		indices[n] = it.Index
		distances[n] = it.Prior
	}
	return nil
}
