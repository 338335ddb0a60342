package model

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sod/frsod/internal/geom"
	"github.com/go-sod/frsod/internal/predictor"
	"github.com/go-sod/frsod/pkg/math/fuzzy"
	"github.com/go-sod/frsod/pkg/math/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec(t *testing.T) {
	spec := NewSpec("")
	spec.Algorithm = predictor.AlgTypeFRNN
	spec.K = 3
	spec.Metric = geom.MetricManhattan
	spec.TNorm = fuzzy.TNormProduct
	spec.Normalise = true
	spec.Train = matrix.MustFromRows([][]float64{{1, math.Inf(1)}, {-2.5, 0}})
	spec.Labels = predictor.Labels{1, 0}
	spec.CreatedAt = time.Date(2024, 3, 1, 12, 0, 0, 42, time.UTC)

	b, err := Encode(spec)
	require.NoError(t, err)
	got, err := Decode(b)
	require.NoError(t, err)

	assert.Equal(t, spec.ID, got.ID)
	assert.Equal(t, spec.Algorithm, got.Algorithm)
	assert.Equal(t, spec.K, got.K)
	assert.Equal(t, spec.Metric, got.Metric)
	assert.Equal(t, spec.TNorm, got.TNorm)
	assert.True(t, got.Normalise)
	assert.True(t, spec.Train.Equal(got.Train))
	assert.Equal(t, spec.Labels, got.Labels)
	assert.True(t, spec.CreatedAt.Equal(got.CreatedAt))

	_, err = Decode([]byte{0, 0})
	assert.Error(t, err)
}

func TestCodec_WideValues(t *testing.T) {
	spec := NewSpec("wide")
	spec.Algorithm = predictor.AlgTypeNN
	spec.K = 1<<32 + 1
	spec.Metric = geom.MetricEuclidean
	spec.Train = matrix.MustFromRows([][]float64{{0}, {1}, {2}})
	spec.Labels = predictor.Labels{0, 1 << 32, math.MaxInt32 + 1}

	b, err := Encode(spec)
	require.NoError(t, err)
	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, spec.K, got.K)
	assert.Equal(t, spec.Labels, got.Labels)
}

func TestSpec_CheckClasses(t *testing.T) {
	tests := []struct {
		name   string
		labels predictor.Labels
		limit  int
		err    bool
	}{
		{name: "within", labels: predictor.Labels{0, 2, 1}, limit: 3},
		{name: "at_limit", labels: predictor.Labels{0, 3}, limit: 3, err: true},
		{name: "huge", labels: predictor.Labels{0, 4000000000}, limit: 1024, err: true},
		{name: "disabled", labels: predictor.Labels{0, 4000000000}, limit: 0},
		{name: "unlabelled", limit: 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := NewSpec("")
			s.Labels = test.labels
			err := s.CheckClasses(test.limit)
			if !test.err {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, predictor.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestNewSpec_StableNamedIDs(t *testing.T) {
	assert.Equal(t, NewSpec("iris").ID, NewSpec("iris").ID)
	assert.NotEqual(t, NewSpec("iris").ID, NewSpec("wine").ID)
	assert.NotEqual(t, NewSpec("").ID, NewSpec("").ID)
}

func TestSpec_DefaultsAndValidate(t *testing.T) {
	cfg := predictor.Config{Type: predictor.AlgTypeFRNN, K: 5, Metric: geom.MetricEuclidean, TNorm: fuzzy.TNormMin}

	s := NewSpec("a")
	s.Train = matrix.MustFromRows([][]float64{{1}})
	s.Defaults(cfg)
	assert.Equal(t, predictor.AlgTypeFRNN, s.Algorithm)
	assert.Equal(t, 5, s.K)
	assert.Equal(t, fuzzy.TNormMin, s.TNorm)
	require.NoError(t, s.Validate())

	nn := NewSpec("b")
	nn.Algorithm = predictor.AlgTypeNN
	nn.Defaults(cfg)
	assert.Equal(t, 1, nn.K)
	assert.Equal(t, fuzzy.TNorm(""), nn.TNorm)
	assert.ErrorIs(t, nn.Validate(), predictor.ErrEmptyInput)

	bad := NewSpec("c")
	bad.Algorithm = "LOF"
	bad.Defaults(cfg)
	assert.ErrorIs(t, bad.Validate(), predictor.ErrInvalidInput)

	nnd := NewSpec("d")
	nnd.Algorithm = predictor.AlgTypeNND
	nnd.Train = matrix.MustFromRows([][]float64{{1}})
	nnd.Labels = predictor.Labels{0}
	nnd.Defaults(cfg)
	assert.ErrorIs(t, nnd.Validate(), predictor.ErrInvalidInput)
}

func TestLoadSeed(t *testing.T) {
	specs, err := LoadSeed(filepath.Join("testdata", "seed.toml"))
	require.NoError(t, err)
	require.Len(t, specs, 2)

	blobs := specs[0]
	assert.Equal(t, "blobs", blobs.Name)
	assert.Equal(t, predictor.AlgTypeFRNN, blobs.Algorithm)
	assert.Equal(t, geom.MetricEuclidean, blobs.Metric)
	assert.Equal(t, 3, blobs.K)
	assert.True(t, blobs.Normalise)
	assert.Equal(t, 6, blobs.Rows())
	assert.Equal(t, 2, blobs.Features())
	assert.Equal(t, predictor.Labels{0, 0, 1, 1, 2, 2}, blobs.Labels)
	assert.Equal(t, NewSpec("blobs").ID, blobs.ID)

	inliers := specs[1]
	assert.Equal(t, predictor.AlgTypeNND, inliers.Algorithm)
	assert.False(t, inliers.Normalise)
	assert.Empty(t, inliers.Labels)

	_, err = LoadSeed(filepath.Join("testdata", "missing.toml"))
	assert.Error(t, err)
}

func TestSpec_Fingerprint(t *testing.T) {
	a := NewSpec("a")
	a.Train = matrix.MustFromRows([][]float64{{1, 2}, {3, 4}})
	a.Labels = predictor.Labels{0, 1}

	b := NewSpec("b")
	b.Train = a.Train.Clone()
	b.Labels = a.Labels.Copy()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)

	b.Labels = predictor.Labels{1, 0}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEmpty(t, NewSpec("").Fingerprint())
}
