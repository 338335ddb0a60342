package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-sod/frsod/internal/geom"
	"github.com/go-sod/frsod/internal/model"
	"github.com/go-sod/frsod/internal/predictor"
	"github.com/go-sod/frsod/pkg/math/fuzzy"
	"github.com/go-sod/frsod/pkg/math/matrix"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mtx   sync.Mutex
	specs map[uuid.UUID]*model.Spec
	fail  error
}

func newMemStore(specs ...*model.Spec) *memStore {
	s := &memStore{specs: map[uuid.UUID]*model.Spec{}}
	for _, spec := range specs {
		s.specs[spec.ID] = spec
	}
	return s
}

func (s *memStore) Store(_ context.Context, spec *model.Spec) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.specs[spec.ID] = spec
	return nil
}

func (s *memStore) Find(_ context.Context, id uuid.UUID) (*model.Spec, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	spec, ok := s.specs[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return spec, nil
}

func (s *memStore) FindAll(_ context.Context, filter model.FilterFn) ([]*model.Spec, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	var list []*model.Spec
	for _, spec := range s.specs {
		if filter == nil || filter(spec) {
			list = append(list, spec)
		}
	}
	return list, nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, ok := s.specs[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.specs, id)
	return nil
}

func blobs(name string) *model.Spec {
	s := model.NewSpec(name)
	s.Algorithm = predictor.AlgTypeFRNN
	s.K = 3
	s.Metric = geom.MetricEuclidean
	s.Normalise = true
	s.Train = matrix.MustFromRows([][]float64{{0, 0}, {0.2, 0.1}, {4.8, 5}, {5.1, 4.9}, {9.9, 10.2}, {10.1, 9.8}})
	s.Labels = predictor.Labels{0, 0, 1, 1, 2, 2}
	return s
}

func inliers(name string) *model.Spec {
	s := model.NewSpec(name)
	s.Algorithm = predictor.AlgTypeNND
	s.K = 2
	s.Metric = geom.MetricEuclidean
	s.Train = matrix.MustFromRows([][]float64{{0, 0.1}, {0.2, -0.1}, {-0.1, 0}, {0.1, 0.2}})
	return s
}

func TestManager_Classifier(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m, err := New(store)
	require.NoError(t, err)

	entry, err := m.Fit(ctx, blobs("blobs"))
	require.NoError(t, err)
	assert.Equal(t, 3, entry.Classes())
	assert.Equal(t, fuzzy.TNormMin, entry.Spec.TNorm)

	_, err = store.Find(ctx, entry.Spec.ID)
	require.NoError(t, err)

	x := matrix.MustFromRows([][]float64{{0.1, 0.1}, {5, 5}, {10, 10}})
	scores, err := m.Scores(ctx, entry.Spec.ID, x)
	require.NoError(t, err)
	rows, cols := scores.Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)

	classes, err := m.Predict(ctx, entry.Spec.ID, x)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, classes)

	proba, err := m.Proba(ctx, entry.Spec.ID, x)
	require.NoError(t, err)
	for i := 0; i < proba.Rows(); i++ {
		assert.InDelta(t, 1.0, proba.Row(i).Sum(), 1e-12)
	}

	_, err = m.Anomaly(ctx, entry.Spec.ID, x)
	assert.True(t, errors.Is(err, predictor.ErrInvalidInput))
}

func TestManager_Novelty(t *testing.T) {
	ctx := context.Background()
	m, err := New(newMemStore())
	require.NoError(t, err)

	entry, err := m.Fit(ctx, inliers("inliers"))
	require.NoError(t, err)
	assert.Equal(t, 0, entry.Classes())

	x := matrix.MustFromRows([][]float64{{0, 0}, {3, 3}})
	anomaly, err := m.Anomaly(ctx, entry.Spec.ID, x)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, anomaly)

	scores, err := m.Scores(ctx, entry.Spec.ID, x)
	require.NoError(t, err)
	assert.Equal(t, 1, scores.Cols())

	_, err = m.Predict(ctx, entry.Spec.ID, x)
	assert.True(t, errors.Is(err, predictor.ErrInvalidInput))
	_, err = m.Proba(ctx, entry.Spec.ID, x)
	assert.True(t, errors.Is(err, predictor.ErrInvalidInput))
}

func TestManager_FitErrors(t *testing.T) {
	tests := []struct {
		name        string
		spec        func() *model.Spec
		storeErr    error
		expectedErr error
	}{
		{
			name: "label_mismatch",
			spec: func() *model.Spec {
				s := blobs("")
				s.Labels = s.Labels[:2]
				return s
			},
			expectedErr: predictor.ErrLabelLengthMismatch,
		},
		{
			name: "empty_train",
			spec: func() *model.Spec {
				s := blobs("")
				s.Train = matrix.New(0, 2)
				s.Labels = nil
				return s
			},
			expectedErr: predictor.ErrEmptyInput,
		},
		{
			name: "unknown_metric",
			spec: func() *model.Spec {
				s := blobs("")
				s.Metric = "COSINE"
				return s
			},
			expectedErr: predictor.ErrInvalidInput,
		},
		{
			name: "labels_on_novelty",
			spec: func() *model.Spec {
				s := inliers("")
				s.Labels = predictor.Labels{0, 0, 0, 0}
				return s
			},
			expectedErr: predictor.ErrInvalidInput,
		},
		{
			name:        "store_failure",
			spec:        func() *model.Spec { return blobs("") },
			storeErr:    errors.New("disk full"),
			expectedErr: nil,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			store := newMemStore()
			store.fail = test.storeErr
			m, err := New(store)
			require.NoError(t, err)

			spec := test.spec()
			_, err = m.Fit(context.Background(), spec)
			require.Error(t, err)
			if test.expectedErr != nil {
				assert.True(t, errors.Is(err, test.expectedErr), "got %v", err)
			}
			if test.storeErr != nil {
				assert.True(t, errors.Is(err, test.storeErr))
			}
			assert.Empty(t, m.List())
			_, err = m.Get(spec.ID)
			assert.True(t, errors.Is(err, ErrModelNotFound))
		})
	}
}

func TestManager_FitCancelled(t *testing.T) {
	store := newMemStore()
	m, err := New(store)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	spec := blobs("")
	_, err = m.Fit(ctx, spec)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)

	_, err = store.Find(context.Background(), spec.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.Empty(t, m.List())
}

func TestManager_Run(t *testing.T) {
	ctx := context.Background()

	stored := blobs("stored")
	broken := blobs("broken")
	broken.Labels = broken.Labels[:1]
	seed := inliers("seed")

	store := newMemStore(stored, broken)
	m, err := New(store, WithSeeds(seed), WithLoadConcurrency(2), WithWorkers(2))
	require.NoError(t, err)
	require.NoError(t, m.Run(ctx))

	assert.Len(t, m.List(), 3)
	_, err = store.Find(ctx, seed.ID)
	assert.NoError(t, err, "seeds are persisted")

	x := matrix.MustFromRows([][]float64{{5, 5}})
	classes, err := m.Predict(ctx, stored.ID, x)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, classes)

	entry, err := m.Get(broken.ID)
	require.NoError(t, err)
	assert.True(t, errors.Is(entry.Err(), predictor.ErrNotFitted))
	_, err = m.Scores(ctx, broken.ID, x)
	assert.True(t, errors.Is(err, predictor.ErrNotFitted))

	// a second start finds the seed in the store and does not refit it
	m2, err := New(store, WithSeeds(inliers("seed")))
	require.NoError(t, err)
	require.NoError(t, m2.Run(ctx))
	assert.Len(t, m2.List(), 3)
}

func TestManager_DeleteAndStop(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	m, err := New(store)
	require.NoError(t, err)

	older := blobs("first")
	older.CreatedAt = older.CreatedAt.Add(-time.Minute)
	first, err := m.Fit(ctx, older)
	require.NoError(t, err)
	second, err := m.Fit(ctx, inliers("second"))
	require.NoError(t, err)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.Spec.ID, list[0].Spec.ID)

	require.NoError(t, m.Delete(ctx, first.Spec.ID))
	_, err = store.Find(ctx, first.Spec.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.True(t, errors.Is(m.Delete(ctx, first.Spec.ID), ErrModelNotFound))
	_, err = m.Scores(ctx, uuid.New(), matrix.MustFromRows([][]float64{{1, 1}}))
	assert.True(t, errors.Is(err, ErrModelNotFound))

	m.Stop()
	_, err = m.Get(second.Spec.ID)
	assert.True(t, errors.Is(err, ErrClosed))
	_, err = m.Fit(ctx, blobs("third"))
	assert.True(t, errors.Is(err, ErrClosed))
}
