// Package preprocess holds transformations fitted on reference data and
// replayed on queries before scoring.
package preprocess

import (
	"github.com/go-sod/frsod/internal/predictor"
	"github.com/go-sod/frsod/pkg/math/fuzzy"
	"github.com/go-sod/frsod/pkg/math/matrix"
)

const DefaultEps = 1e-12

// Transformer is a fitted feature transformation.
type Transformer interface {
	Transform(x *matrix.Matrix) (*matrix.Matrix, error)
}

var _ Transformer = (*RangeModel)(nil)

// RangeNormaliser scales every column into [0, 1] using the range seen at
// fit. Eps keeps constant columns from dividing by zero.
type RangeNormaliser struct {
	Eps float64
}

func NewRangeNormaliser() RangeNormaliser {
	return RangeNormaliser{Eps: DefaultEps}
}

// Fit records the finite min and max of every column. A column without any
// finite value gets 0 for both.
func (n RangeNormaliser) Fit(x *matrix.Matrix) *RangeModel {
	cols := x.Cols()
	m := &RangeModel{
		Min: make([]float64, cols),
		Max: make([]float64, cols),
		Eps: max(n.Eps, 0),
	}
	for j := 0; j < cols; j++ {
		col := x.Col(j)
		if lo, ok := col.Min(); ok {
			m.Min[j] = lo
		}
		if hi, ok := col.Max(); ok {
			m.Max[j] = hi
		}
	}
	return m
}

type RangeModel struct {
	Min []float64
	Max []float64
	Eps float64
}

func (m *RangeModel) Features() int {
	return len(m.Min)
}

// Transform maps x into [0, 1] column-wise. Non-finite values map to 0.
func (m *RangeModel) Transform(x *matrix.Matrix) (*matrix.Matrix, error) {
	if err := ValidateFeatures(x, m.Features()); err != nil {
		return nil, err
	}
	out := matrix.New(x.Rows(), x.Cols())
	for i := 0; i < x.Rows(); i++ {
		src, dst := x.Row(i), out.Row(i)
		for j, v := range src {
			num := 0.0
			if fuzzy.IsFinite(v) {
				num = v - m.Min[j]
			}
			dst[j] = fuzzy.Clamp01(fuzzy.SafeDivide(num, m.Max[j]-m.Min[j]+m.Eps, 0))
		}
	}
	return out, nil
}

func ValidateFeatures(x *matrix.Matrix, expected int) error {
	if x.Cols() != expected {
		return predictor.InvalidInputf("feature mismatch: expected %d, found %d", expected, x.Cols())
	}
	return nil
}
