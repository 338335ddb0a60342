// Package registry keeps fitted models in memory, keyed by model id, and
// rebuilds them from stored specs at startup.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-sod/frsod/internal/geom"
	"github.com/go-sod/frsod/internal/logging"
	"github.com/go-sod/frsod/internal/metrics"
	"github.com/go-sod/frsod/internal/model"
	"github.com/go-sod/frsod/internal/pipeline"
	"github.com/go-sod/frsod/internal/predictor"
	"github.com/go-sod/frsod/pkg/math/fuzzy"
	"github.com/go-sod/frsod/pkg/math/matrix"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrModelNotFound = fmt.Errorf("model not found")
	ErrClosed        = fmt.Errorf("registry is shutting down")
)

type Config struct {
	LoadConcurrency int `envconfig:"FRSOD_REGISTRY_LOAD_CONCURRENCY" default:"4"`
}

// ProvideFn returns a Manager wired to its store.
type ProvideFn func() (Manager, error)

// Manager is the background service holding fitted models.
type Manager interface {
	Scorer
	// Run loads stored specs and seeds, fitting each of them.
	Run(context.Context) error
	Stop()
}

// Scorer is the part of Manager used by request handlers.
type Scorer interface {
	Fit(ctx context.Context, spec *model.Spec) (*Entry, error)
	Get(id uuid.UUID) (*Entry, error)
	List() []*Entry
	Delete(ctx context.Context, id uuid.UUID) error
	Scores(ctx context.Context, id uuid.UUID, x *matrix.Matrix) (*matrix.Matrix, error)
	Predict(ctx context.Context, id uuid.UUID, x *matrix.Matrix) ([]int, error)
	Proba(ctx context.Context, id uuid.UUID, x *matrix.Matrix) (*matrix.Matrix, error)
	Anomaly(ctx context.Context, id uuid.UUID, x *matrix.Matrix) ([]float64, error)
}

var _ Manager = (*manager)(nil)

// Entry is a spec together with the model fitted from it.
type Entry struct {
	Spec *model.Spec

	classifier *pipeline.Model
	detector   *pipeline.NoveltyModel
	err        error
}

// Classes is the score width of a classifier, 0 for novelty models.
func (e *Entry) Classes() int {
	if e.classifier == nil {
		return 0
	}
	return e.classifier.Classes()
}

// Err reports why the stored definition could not be fitted at load time.
func (e *Entry) Err() error { return e.err }

type options struct {
	workers         int
	loadConcurrency int
	defaults        predictor.Config
	seeds           []*model.Spec
}

type Option func(*manager)

// WithWorkers sets the number of goroutines each neighbour index uses per query.
func WithWorkers(n int) Option {
	return func(m *manager) {
		m.opts.workers = n
	}
}

func WithLoadConcurrency(n int) Option {
	return func(m *manager) {
		m.opts.loadConcurrency = n
	}
}

// WithDefaults sets the config used to fill fields a spec leaves out.
func WithDefaults(c predictor.Config) Option {
	return func(m *manager) {
		m.opts.defaults = c
	}
}

// WithSeeds registers specs fitted during Run unless already stored.
func WithSeeds(specs ...*model.Spec) Option {
	return func(m *manager) {
		m.opts.seeds = append(m.opts.seeds, specs...)
	}
}

func New(store model.Store, opts ...Option) (*manager, error) {
	if store == nil {
		return nil, fmt.Errorf("model store is not created")
	}
	m := &manager{
		store:   store,
		entries: map[uuid.UUID]*Entry{},
		opts: options{
			workers:         1,
			loadConcurrency: 4,
			defaults: predictor.Config{
				Type:   predictor.AlgTypeFRNN,
				K:      predictor.AlgTypeFRNN.DefaultK(),
				Metric: geom.MetricEuclidean,
				TNorm:  fuzzy.TNormMin,
			},
		},
	}
	for _, f := range opts {
		f(m)
	}
	return m, nil
}

type manager struct {
	mtx sync.RWMutex

	opts    options
	store   model.Store
	entries map[uuid.UUID]*Entry
	closed  bool
}

func (m *manager) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	if err := m.bulkLoad(ctx); err != nil {
		return fmt.Errorf("can not start registry: %w", err)
	}
	for _, spec := range m.opts.seeds {
		if _, err := m.Get(spec.ID); err == nil {
			logger.Debugf("seed model %q already stored, skipping", spec.Name)
			continue
		}
		if _, err := m.Fit(ctx, spec); err != nil {
			return fmt.Errorf("can not fit seed model %q: %w", spec.Name, err)
		}
		logger.Infof("seed model %q registered as %s", spec.Name, spec.ID)
	}

	m.mtx.RLock()
	n := len(m.entries)
	m.mtx.RUnlock()
	metrics.RecordModels(ctx, n)
	logger.Infof("registry started with %d models", n)
	return nil
}

func (m *manager) Stop() {
	m.mtx.Lock()
	m.closed = true
	m.mtx.Unlock()
}

// bulkLoad fits every stored spec. A spec that no longer fits is kept so
// that requests for it report ErrNotFitted instead of ErrModelNotFound.
func (m *manager) bulkLoad(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	specs, err := m.store.FindAll(ctx, nil)
	if err != nil {
		return fmt.Errorf("error fetching stored models: %w", err)
	}

	g := errgroup.Group{}
	g.SetLimit(max(m.opts.loadConcurrency, 1))
	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			start := time.Now()
			entry, err := m.build(spec)
			metrics.RecordOperation(ctx, string(spec.Algorithm), "load", start, err)
			if err != nil {
				logger.Errorf("unable to fit stored model %s: %v", spec.ID, err)
				entry = &Entry{Spec: spec, err: fmt.Errorf("%w: %v", predictor.ErrNotFitted, err)}
			}
			m.mtx.Lock()
			m.entries[spec.ID] = entry
			m.mtx.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func (m *manager) build(spec *model.Spec) (*Entry, error) {
	s := spec.Settings(m.opts.workers)
	entry := &Entry{Spec: spec}
	if spec.Algorithm.Labelled() {
		p, err := pipeline.ClassifierFor(s)
		if err != nil {
			return nil, err
		}
		if entry.classifier, err = p.Fit(spec.Train, spec.Labels); err != nil {
			return nil, err
		}
		return entry, nil
	}
	p, err := pipeline.NoveltyFor(s)
	if err != nil {
		return nil, err
	}
	if entry.detector, err = p.Fit(spec.Train); err != nil {
		return nil, err
	}
	return entry, nil
}

// Fit fills defaults, validates and fits spec, then persists and registers
// it. Nothing is stored when fitting fails or ctx is done once fitting ends.
func (m *manager) Fit(ctx context.Context, spec *model.Spec) (entry *Entry, err error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	spec.Defaults(m.opts.defaults)

	start := time.Now()
	defer func() {
		metrics.RecordOperation(ctx, string(spec.Algorithm), "fit", start, err)
	}()

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if entry, err = m.build(spec); err != nil {
		return nil, err
	}
	// the caller may have given up while the model was fitting
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.store.Store(ctx, spec); err != nil {
		return nil, fmt.Errorf("unable to store model %s: %w", spec.ID, err)
	}

	m.mtx.Lock()
	m.entries[spec.ID] = entry
	n := len(m.entries)
	m.mtx.Unlock()
	metrics.RecordModels(ctx, n)

	logging.FromContext(ctx).Infof("model %s (%s, k=%d) fitted on %d rows", spec.ID, spec.Algorithm, spec.K, spec.Rows())
	return entry, nil
}

func (m *manager) checkOpen() error {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *manager) Get(id uuid.UUID) (*Entry, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}
	return e, nil
}

// List returns the registered entries, oldest first.
func (m *manager) List() []*Entry {
	m.mtx.RLock()
	list := make([]*Entry, 0, len(m.entries))
	for _, e := range m.entries {
		list = append(list, e)
	}
	m.mtx.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		a, b := list[i].Spec, list[j].Spec
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return list
}

func (m *manager) Delete(ctx context.Context, id uuid.UUID) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	err := m.store.Delete(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("unable to delete model %s: %w", id, err)
	}

	m.mtx.Lock()
	_, ok := m.entries[id]
	delete(m.entries, id)
	n := len(m.entries)
	m.mtx.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}
	metrics.RecordModels(ctx, n)
	return nil
}

// fitted returns the entry for id, or the load error it carries.
func (m *manager) fitted(id uuid.UUID) (*Entry, error) {
	e, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if e.err != nil {
		return nil, e.err
	}
	return e, nil
}

func (m *manager) observe(ctx context.Context, e *Entry, op string, x *matrix.Matrix) func(error) {
	start := time.Now()
	alg := string(e.Spec.Algorithm)
	if x != nil {
		metrics.RecordQueryRows(ctx, alg, op, x.Rows())
	}
	return func(err error) {
		metrics.RecordOperation(ctx, alg, op, start, err)
	}
}

// Scores returns class scores for classifiers and a single column of
// anomaly scores for novelty models.
func (m *manager) Scores(ctx context.Context, id uuid.UUID, x *matrix.Matrix) (out *matrix.Matrix, err error) {
	e, err := m.fitted(id)
	if err != nil {
		return nil, err
	}
	done := m.observe(ctx, e, "scores", x)
	defer func() { done(err) }()

	if e.classifier != nil {
		return e.classifier.PredictScores(x)
	}
	return e.detector.PredictScores(x)
}

func (m *manager) classifier(id uuid.UUID) (*Entry, error) {
	e, err := m.fitted(id)
	if err != nil {
		return nil, err
	}
	if e.classifier == nil {
		return nil, predictor.InvalidInputf("model %s is a %s novelty model", id, e.Spec.Algorithm)
	}
	return e, nil
}

func (m *manager) Predict(ctx context.Context, id uuid.UUID, x *matrix.Matrix) (out []int, err error) {
	e, err := m.classifier(id)
	if err != nil {
		return nil, err
	}
	done := m.observe(ctx, e, "predict", x)
	defer func() { done(err) }()

	return e.classifier.Predict(x)
}

func (m *manager) Proba(ctx context.Context, id uuid.UUID, x *matrix.Matrix) (out *matrix.Matrix, err error) {
	e, err := m.classifier(id)
	if err != nil {
		return nil, err
	}
	done := m.observe(ctx, e, "proba", x)
	defer func() { done(err) }()

	return e.classifier.PredictProba(x)
}

func (m *manager) Anomaly(ctx context.Context, id uuid.UUID, x *matrix.Matrix) (out []float64, err error) {
	e, err := m.fitted(id)
	if err != nil {
		return nil, err
	}
	if e.detector == nil {
		return nil, predictor.InvalidInputf("model %s is a %s classifier", id, e.Spec.Algorithm)
	}
	done := m.observe(ctx, e, "anomaly", x)
	defer func() { done(err) }()

	return e.detector.PredictAnomalyScores(x)
}
