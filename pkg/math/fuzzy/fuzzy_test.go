package fuzzy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastrand"
)

func TestClamp01(t *testing.T) {
	tests := []struct {
		name     string
		in       float64
		expected float64
	}{
		{name: "inside", in: 0.3, expected: 0.3},
		{name: "below", in: -2, expected: 0},
		{name: "above", in: 7, expected: 1},
		{name: "nan", in: math.NaN(), expected: 0},
		{name: "pos_inf", in: math.Inf(1), expected: 0},
		{name: "neg_inf", in: math.Inf(-1), expected: 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Clamp01(test.in))
		})
	}
}

func TestComplement(t *testing.T) {
	assert.Equal(t, 0.75, Complement(0.25))
	assert.Equal(t, 1.0, Complement(math.NaN()))
	assert.Equal(t, 0.0, Complement(3))
	assert.Equal(t, 1.0, Complement(-3))
}

func TestSafeDivide(t *testing.T) {
	tests := []struct {
		name     string
		num, den float64
		expected float64
	}{
		{name: "regular", num: 1, den: 4, expected: 0.25},
		{name: "zero_den", num: 1, den: 0, expected: -1},
		{name: "tiny_den", num: 1, den: Epsilon, expected: -1},
		{name: "nan_num", num: math.NaN(), den: 2, expected: -1},
		{name: "inf_den", num: 1, den: math.Inf(1), expected: -1},
		{name: "overflow", num: math.MaxFloat64, den: 0.5, expected: -1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, SafeDivide(test.num, test.den, -1))
		})
	}
}

func TestTNorms(t *testing.T) {
	tests := []struct {
		name     string
		tnorm    TNorm
		a, b     float64
		expected float64
	}{
		{name: "min", tnorm: TNormMin, a: 0.3, b: 0.8, expected: 0.3},
		{name: "min_clamped", tnorm: TNormMin, a: 2, b: 0.8, expected: 0.8},
		{name: "product", tnorm: TNormProduct, a: 0.5, b: 0.5, expected: 0.25},
		{name: "product_nan", tnorm: TNormProduct, a: math.NaN(), b: 0.5, expected: 0},
		{name: "lukasiewicz", tnorm: TNormLukasiewicz, a: 0.75, b: 0.5, expected: 0.25},
		{name: "lukasiewicz_floor", tnorm: TNormLukasiewicz, a: 0.2, b: 0.3, expected: 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.InDelta(t, test.expected, test.tnorm.Apply(test.a, test.b), 1e-15)
		})
	}
}

func TestTNorms_Bounds(t *testing.T) {
	var r fastrand.RNG
	r.Seed(42)
	draw := func() float64 {
		return float64(int32(r.Uint32()))/float64(math.MaxInt32)*3 - 1
	}
	for _, tn := range []TNorm{TNormMin, TNormProduct, TNormLukasiewicz} {
		for i := 0; i < 1000; i++ {
			a, b := draw(), draw()
			v := tn.Apply(a, b)
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 1.0)
			require.LessOrEqual(t, v, MinTNorm(a, b)+1e-15, "%s(%v, %v)", tn, a, b)
		}
	}
}

func TestParseTNorm(t *testing.T) {
	tn, err := ParseTNorm("product")
	require.NoError(t, err)
	assert.Equal(t, TNormProduct, tn)

	tn, err = ParseTNorm("")
	require.NoError(t, err)
	assert.Equal(t, TNormMin, tn)

	_, err = ParseTNorm("drastic")
	assert.ErrorIs(t, err, ErrUnknownTNorm)
}

func TestWeights(t *testing.T) {
	assert.Empty(t, UniformWeights(0))
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, UniformWeights(4))

	assert.Empty(t, DecreasingWeights(0))
	w := DecreasingWeights(4)
	assert.InDeltaSlice(t, []float64{0.4, 0.3, 0.2, 0.1}, w, 1e-15)
	var sum float64
	for i, v := range w {
		sum += v
		if i > 0 {
			assert.LessOrEqual(t, v, w[i-1])
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}
