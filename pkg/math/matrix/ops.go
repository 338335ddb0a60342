package matrix

import (
	"fmt"

	"github.com/go-sod/frsod/pkg/math/fuzzy"
	"github.com/go-sod/frsod/pkg/math/vector"
)

var ErrShapeMismatch = fmt.Errorf("shape mismatch")

// ShapeMismatchError reports operands of an elementwise operation with
// different shapes.
type ShapeMismatchError struct {
	LeftRows, LeftCols   int
	RightRows, RightCols int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: left=(%d, %d), right=(%d, %d)",
		e.LeftRows, e.LeftCols, e.RightRows, e.RightCols)
}

func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// ApplyTNorm combines a and b elementwise with t.
func ApplyTNorm(t fuzzy.TNorm, a, b *Matrix) (*Matrix, error) {
	return elementwise(a, b, t.Func())
}

func MinTNorm(a, b *Matrix) (*Matrix, error) {
	return elementwise(a, b, fuzzy.MinTNorm)
}

func ProductTNorm(a, b *Matrix) (*Matrix, error) {
	return elementwise(a, b, fuzzy.ProductTNorm)
}

func LukasiewiczTNorm(a, b *Matrix) (*Matrix, error) {
	return elementwise(a, b, fuzzy.LukasiewiczTNorm)
}

func elementwise(a, b *Matrix, fn func(x, y float64) float64) (*Matrix, error) {
	if a.rows != b.rows || a.cols != b.cols {
		return nil, &ShapeMismatchError{
			LeftRows: a.rows, LeftCols: a.cols,
			RightRows: b.rows, RightCols: b.cols,
		}
	}
	out := New(a.rows, a.cols)
	for i := range out.data {
		out.data[i] = fn(a.data[i], b.data[i])
	}
	return out, nil
}

// RowSums adds the finite entries of every row.
func RowSums(m *Matrix) vector.V {
	sums := make(vector.V, m.rows)
	for i := range sums {
		sums[i] = m.Row(i).Sum()
	}
	return sums
}

// SafeNormalizeRows turns every row into a distribution. Negative and
// non-finite entries count as 0; rows left without mass become uniform.
func SafeNormalizeRows(m *Matrix) *Matrix {
	out := New(m.rows, m.cols)
	if m.cols == 0 {
		return out
	}
	uniform := 1 / float64(m.cols)
	for i := 0; i < m.rows; i++ {
		src, dst := m.Row(i), out.Row(i)
		var sum float64
		for j, v := range src {
			if fuzzy.IsFinite(v) && v > 0 {
				dst[j] = v
				sum += v
			}
		}
		if sum > 0 && fuzzy.IsFinite(sum) {
			for j := range dst {
				dst[j] /= sum
			}
			continue
		}
		dst.Fill(uniform)
	}
	return out
}
