// Package matrix implements the dense row-major matrix used for features and
// scores. Unlike gonum's Dense it allows zero rows or zero columns.
package matrix

import (
	"fmt"

	"github.com/go-sod/frsod/pkg/math/vector"
	"gonum.org/v1/gonum/mat"
)

var ErrRagged = fmt.Errorf("rows have different lengths")

type Matrix struct {
	rows, cols int
	data       []float64
}

// New returns a zero-filled rows x cols matrix. Negative sizes are treated as 0.
func New(rows, cols int) *Matrix {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	return &Matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// NewFromData wraps data without copying.
func NewFromData(rows, cols int, data []float64) (*Matrix, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("data length %d does not fit shape (%d, %d)", len(data), rows, cols)
	}
	return &Matrix{rows: rows, cols: cols, data: data}, nil
}

// FromRows copies a slice of rows. An empty slice yields a 0x0 matrix.
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	cols := len(rows[0])
	m := New(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", ErrRagged, i, len(r), cols)
		}
		copy(m.data[i*cols:], r)
	}
	return m, nil
}

// MustFromRows is FromRows for literals known to be rectangular.
func MustFromRows(rows [][]float64) *Matrix {
	m, err := FromRows(rows)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Matrix) Rows() int { return m.rows }

func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) Shape() (int, int) { return m.rows, m.cols }

func (m *Matrix) Empty() bool { return m.rows == 0 || m.cols == 0 }

func (m *Matrix) At(i, j int) float64 {
	return m.data[i*m.cols+j]
}

func (m *Matrix) Set(i, j int, v float64) {
	m.data[i*m.cols+j] = v
}

// Row returns a view of row i; writes go through to the matrix.
func (m *Matrix) Row(i int) vector.V {
	return m.data[i*m.cols : (i+1)*m.cols : (i+1)*m.cols]
}

func (m *Matrix) Col(j int) vector.V {
	c := make(vector.V, m.rows)
	for i := range c {
		c[i] = m.data[i*m.cols+j]
	}
	return c
}

func (m *Matrix) Data() []float64 { return m.data }

func (m *Matrix) Clone() *Matrix {
	data := make([]float64, len(m.data))
	copy(data, m.data)
	return &Matrix{rows: m.rows, cols: m.cols, data: data}
}

func (m *Matrix) ToRows() [][]float64 {
	out := make([][]float64, m.rows)
	for i := range out {
		out[i] = m.Row(i).Copy()
	}
	return out
}

// SelectRows copies the given rows in order.
func (m *Matrix) SelectRows(idx []int) *Matrix {
	out := New(len(idx), m.cols)
	for i, r := range idx {
		copy(out.Row(i), m.Row(r))
	}
	return out
}

// SelectCols copies the given columns in order.
func (m *Matrix) SelectCols(idx []int) *Matrix {
	out := New(m.rows, len(idx))
	for i := 0; i < m.rows; i++ {
		src, dst := m.Row(i), out.Row(i)
		for j, c := range idx {
			dst[j] = src[c]
		}
	}
	return out
}

func (m *Matrix) Equal(o *Matrix) bool {
	return m.rows == o.rows && m.cols == o.cols && vector.V(m.data).Equal(o.data)
}

// Dense converts to a gonum matrix. It returns nil for an empty matrix since
// gonum cannot represent one.
func (m *Matrix) Dense() *mat.Dense {
	if m.Empty() {
		return nil
	}
	return mat.NewDense(m.rows, m.cols, m.Clone().data)
}

func FromDense(d mat.Matrix) *Matrix {
	if d == nil {
		return New(0, 0)
	}
	r, c := d.Dims()
	m := New(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.data[i*c+j] = d.At(i, j)
		}
	}
	return m
}

func (m *Matrix) String() string {
	if m.Empty() {
		return fmt.Sprintf("Matrix(%d, %d)[]", m.rows, m.cols)
	}
	return fmt.Sprintf("Matrix(%d, %d)\n%v", m.rows, m.cols, mat.Formatted(m.Dense()))
}
