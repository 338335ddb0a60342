// Package vector provides a float64 row type with finite-aware reductions.
package vector

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var ErrLengthMismatch = fmt.Errorf("vector length mismatch")

// LengthMismatchError reports two vectors of different lengths.
type LengthMismatchError struct {
	Left, Right int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("vector length mismatch: left=%d, right=%d", e.Left, e.Right)
}

func (e *LengthMismatchError) Is(target error) bool {
	return target == ErrLengthMismatch
}

type V []float64

func New(vec []float64) V {
	return vec
}

func (v V) Dimensions() int {
	return len(v)
}

func (v V) Point(idx int) float64 {
	return v[idx]
}

func (v V) Points() []float64 {
	return v
}

func (v V) Copy() V {
	var v1 = make(V, len(v))
	copy(v1, v)
	return v1
}

func (v V) Zero() {
	for i := range v {
		v[i] = 0.0
	}
}

func (v V) Fill(value float64) {
	for i := range v {
		v[i] = value
	}
}

func (v V) Scale(value float64) {
	floats.Scale(value, v)
}

func (v V) Equal(vec V) bool {
	return floats.Same(v, vec)
}

func (v V) AllFinite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Finite returns a copy with non-finite entries replaced by 0.
func (v V) Finite() V {
	v1 := make(V, len(v))
	for i, x := range v {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			v1[i] = x
		}
	}
	return v1
}

// Sum adds the finite entries only.
func (v V) Sum() float64 {
	return floats.Sum(v.Finite())
}

func (v V) L1Norm() float64 {
	return floats.Norm(v.Finite(), 1)
}

func (v V) L2Norm() float64 {
	var s float64
	for _, x := range v.Finite() {
		s += x * x
	}
	return math.Sqrt(s)
}

// MaxNorm is the largest finite magnitude, 0 for an empty vector.
func (v V) MaxNorm() float64 {
	var m float64
	for _, x := range v.Finite() {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

// Max and Min skip non-finite entries and report false when none is left.
func (v V) Max() (float64, bool) {
	m, ok := math.Inf(-1), false
	for _, x := range v {
		if !math.IsNaN(x) && !math.IsInf(x, 0) && x >= m {
			m, ok = x, true
		}
	}
	return m, ok
}

func (v V) Min() (float64, bool) {
	m, ok := math.Inf(1), false
	for _, x := range v {
		if !math.IsNaN(x) && !math.IsInf(x, 0) && x <= m {
			m, ok = x, true
		}
	}
	return m, ok
}

// ArgMax returns the first index of the largest entry, treating non-finite
// entries as -Inf. An empty vector yields 0.
func (v V) ArgMax() int {
	best, bestIdx := math.Inf(-1), 0
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			x = math.Inf(-1)
		}
		if x > best {
			best, bestIdx = x, i
		}
	}
	return bestIdx
}

// L2Distance is the Euclidean distance with non-finite entries read as 0.
func L2Distance(a, b V) (float64, error) {
	if len(a) != len(b) {
		return 0, &LengthMismatchError{Left: len(a), Right: len(b)}
	}
	var s float64
	fa, fb := a.Finite(), b.Finite()
	for i := range fa {
		d := fa[i] - fb[i]
		s += d * d
	}
	return math.Sqrt(s), nil
}
