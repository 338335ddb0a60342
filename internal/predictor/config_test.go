package predictor

import (
	"errors"
	"testing"

	"github.com/go-sod/frsod/internal/geom"
	"github.com/go-sod/frsod/pkg/math/fuzzy"
	"github.com/stretchr/testify/assert"
)

func TestConfig_Parse(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		expected    Config
		expectedErr error
	}{
		{
			name:     "lower_case",
			cfg:      Config{Type: "frnn", K: 3, Metric: "manhattan", TNorm: "product"},
			expected: Config{Type: AlgTypeFRNN, K: 3, Metric: geom.MetricManhattan, TNorm: fuzzy.TNormProduct},
		},
		{
			name:     "empty_tnorm",
			cfg:      Config{Type: "NN", K: 1, Metric: "EUCLIDEAN"},
			expected: Config{Type: AlgTypeNN, K: 1, Metric: geom.MetricEuclidean, TNorm: fuzzy.TNormMin},
		},
		{
			name:        "unknown_type",
			cfg:         Config{Type: "LOF", K: 1, Metric: "EUCLIDEAN"},
			expectedErr: ErrUnknownAlg,
		},
		{
			name:        "unknown_metric",
			cfg:         Config{Type: "NN", K: 1, Metric: "COSINE"},
			expectedErr: geom.ErrUnknownMetric,
		},
		{
			name:        "unknown_tnorm",
			cfg:         Config{Type: "NN", K: 1, Metric: "EUCLIDEAN", TNorm: "DRASTIC"},
			expectedErr: fuzzy.ErrUnknownTNorm,
		},
		{
			name:        "zero_k",
			cfg:         Config{Type: "NND", Metric: "EUCLIDEAN"},
			expectedErr: ErrInvalidInput,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := test.cfg.Parse()
			if test.expectedErr != nil {
				assert.True(t, errors.Is(err, test.expectedErr), "got %v", err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, test.expected, got)
		})
	}
}

func TestAlgType(t *testing.T) {
	assert.True(t, AlgTypeNN.Labelled())
	assert.True(t, AlgTypeFRNN.Labelled())
	assert.False(t, AlgTypeNND.Labelled())
	assert.Equal(t, 1, AlgTypeNN.DefaultK())
	assert.Equal(t, 5, AlgTypeNND.DefaultK())
}
