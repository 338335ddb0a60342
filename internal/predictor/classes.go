package predictor

import (
	"math"

	"github.com/go-sod/frsod/pkg/math/fuzzy"
	"github.com/go-sod/frsod/pkg/math/matrix"
)

// SelectClass returns the argmax column of every row. Ties resolve to the
// lowest index, non-finite scores never win and a score matrix without
// columns maps every row to class 0.
func SelectClass(scores *matrix.Matrix) []int {
	classes := make([]int, scores.Rows())
	if scores.Cols() == 0 {
		return classes
	}
	for i := range classes {
		classes[i] = scores.Row(i).ArgMax()
	}
	return classes
}

// ProbabilitiesFromScores converts scores to row distributions. Rows of
// finite non-negative scores are divided by their sum; any other row goes
// through a softmax over its finite entries. Rows that cannot be normalised
// either way become uniform.
func ProbabilitiesFromScores(scores *matrix.Matrix) *matrix.Matrix {
	rows, cols := scores.Shape()
	out := matrix.New(rows, cols)
	if cols == 0 {
		return out
	}
	uniform := 1 / float64(cols)
	for i := 0; i < rows; i++ {
		src, dst := scores.Row(i), out.Row(i)

		simple, sum := true, 0.0
		for _, v := range src {
			if !fuzzy.IsFinite(v) || v < 0 {
				simple = false
				break
			}
			sum += v
			if !fuzzy.IsFinite(sum) {
				simple = false
				break
			}
		}
		if simple {
			if sum > 0 {
				for j, v := range src {
					dst[j] = v / sum
				}
			} else {
				dst.Fill(uniform)
			}
			continue
		}

		max, ok := src.Max()
		if !ok {
			dst.Fill(uniform)
			continue
		}
		var total float64
		for j, v := range src {
			if fuzzy.IsFinite(v) {
				dst[j] = math.Exp(v - max)
			}
			total += dst[j]
		}
		if total > 0 && fuzzy.IsFinite(total) {
			for j := range dst {
				dst[j] /= total
			}
			continue
		}
		dst.Fill(uniform)
	}
	return out
}
