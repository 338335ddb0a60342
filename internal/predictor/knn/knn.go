// Package knn defines exact nearest-neighbour search over a fixed reference
// matrix.
package knn

import (
	"github.com/go-sod/frsod/internal/geom"
	"github.com/go-sod/frsod/pkg/math/matrix"
)

type AlgType string

const (
	AlgTypeBrute    AlgType = "BRUTE"
	AlgTypeKDTree   AlgType = "KD_TREE"
	AlgTypeBallTree AlgType = "BALL_TREE"
)

// Index answers k-nearest-neighbour queries against the reference rows it
// was built from. Implementations are immutable and safe for concurrent use.
type Index interface {
	// Query returns, for every row of x, the min(k, Len()) nearest reference
	// rows ordered by (distance, reference index).
	Query(x *matrix.Matrix, k int) (*Result, error)
	Len() int
	Dimensions() int
}

// ProvideFn builds an Index over ref. The index must not retain ref itself.
type ProvideFn func(ref *matrix.Matrix, metric geom.Metric) (Index, error)

// Result is a dense [rows, k] block of neighbour indices and distances.
type Result struct {
	rows, k   int
	indices   []int
	distances []float64
}

func NewResult(rows, k int) *Result {
	return &Result{
		rows:      rows,
		k:         k,
		indices:   make([]int, rows*k),
		distances: make([]float64, rows*k),
	}
}

func (r *Result) Rows() int { return r.rows }

func (r *Result) K() int { return r.k }

func (r *Result) Index(i, j int) int { return r.indices[i*r.k+j] }

func (r *Result) Distance(i, j int) float64 { return r.distances[i*r.k+j] }

// Indices returns a view of row i.
func (r *Result) Indices(i int) []int {
	return r.indices[i*r.k : (i+1)*r.k : (i+1)*r.k]
}

// Distances returns a view of row i.
func (r *Result) Distances(i int) []float64 {
	return r.distances[i*r.k : (i+1)*r.k : (i+1)*r.k]
}

func (r *Result) DistanceMatrix() *matrix.Matrix {
	data := make([]float64, len(r.distances))
	copy(data, r.distances)
	m, _ := matrix.NewFromData(r.rows, r.k, data)
	return m
}

// IndexRows copies the neighbour indices as a slice of rows.
func (r *Result) IndexRows() [][]int {
	out := make([][]int, r.rows)
	for i := range out {
		out[i] = append([]int{}, r.Indices(i)...)
	}
	return out
}
