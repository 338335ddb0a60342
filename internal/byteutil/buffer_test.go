package byteutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashFloats(t *testing.T) {
	tests := []struct {
		name  string
		a, b  [][]float64
		equal bool
	}{
		{name: "same", a: [][]float64{{1, 2}, {3}}, b: [][]float64{{1, 2}, {3}}, equal: true},
		{name: "split_differs", a: [][]float64{{1}, {2, 3}}, b: [][]float64{{1, 2}, {3}}},
		{name: "value_differs", a: [][]float64{{1, 2}}, b: [][]float64{{1, 2.0000000000000004}}},
		{name: "empty", a: nil, b: [][]float64{}, equal: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.equal, HashFloats(test.a...) == HashFloats(test.b...))
		})
	}
}

func TestBytesBufPool(t *testing.T) {
	buf := GetBytesBuf()
	buf.WriteString("frsod")
	PutBytesBuf(buf)
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, 0, GetBytesBuf().Len())
}
