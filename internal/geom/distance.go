package geom

import (
	"fmt"
	"math"
	"strings"
)

var (
	ErrDimNotEqual   = fmt.Errorf("vectors dimension is not equal")
	ErrNonFinite     = fmt.Errorf("non-finite value encountered")
	ErrUnknownMetric = fmt.Errorf("unknown metric")
)

type Metric string

const (
	MetricEuclidean Metric = "EUCLIDEAN"
	MetricManhattan Metric = "MANHATTAN"
)

type DistanceFunc func(vec, vec1 []float64) (float64, error)

func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToUpper(strings.TrimSpace(s)))
	if _, err := DistanceFuncFor(m); err != nil {
		return "", err
	}
	return m, nil
}

func DistanceFuncFor(m Metric) (DistanceFunc, error) {
	switch m {
	case MetricEuclidean:
		return EuclideanDistance, nil
	case MetricManhattan:
		return ManhattanDistance, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, string(m))
	}
}

// Distance computes the m-distance between two vectors of equal length.
// Non-finite components are rejected, never skipped.
func Distance(vec, vec1 []float64, m Metric) (float64, error) {
	fn, err := DistanceFuncFor(m)
	if err != nil {
		return 0.0, err
	}
	return fn(vec, vec1)
}

func validate(vec, vec1 []float64) error {
	if len(vec) != len(vec1) {
		return fmt.Errorf("%w: %d != %d", ErrDimNotEqual, len(vec), len(vec1))
	}
	for i := range vec {
		if !finite(vec[i]) || !finite(vec1[i]) {
			return ErrNonFinite
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func EuclideanDistance(vec, vec1 []float64) (float64, error) {
	if err := validate(vec, vec1); err != nil {
		return 0.0, err
	}
	var d float64
	for i := 0; i < len(vec); i++ {
		delta := vec[i] - vec1[i]
		d += delta * delta
	}
	return math.Sqrt(d), nil
}

func ManhattanDistance(vec, vec1 []float64) (float64, error) {
	if err := validate(vec, vec1); err != nil {
		return 0.0, err
	}
	var distance float64
	for i := 0; i < len(vec); i++ {
		distance += math.Abs(vec[i] - vec1[i])
	}
	return distance, nil
}
