package predictor

import (
	"github.com/go-sod/frsod/pkg/math/matrix"
)

// Labels holds one non-negative class index per reference row.
type Labels []int

func (l Labels) Copy() Labels {
	l1 := make(Labels, len(l))
	copy(l1, l)
	return l1
}

// Classes is max(label)+1, or 0 for no labels.
func (l Labels) Classes() int {
	n := 0
	for _, v := range l {
		if v+1 > n {
			n = v + 1
		}
	}
	return n
}

// Scorer is anything fitted that maps query rows to a score matrix.
type Scorer interface {
	PredictScores(x *matrix.Matrix) (*matrix.Matrix, error)
}

// Classifier scores queries against n classes, one column per class.
type Classifier interface {
	Scorer
	Classes() int
	Features() int
}

// Detector scores queries by how far they lie from the fitted inliers.
type Detector interface {
	Scorer
	Features() int
	PredictAnomalyScores(x *matrix.Matrix) ([]float64, error)
}

// Estimator fits a Classifier from labelled reference data.
type Estimator interface {
	Fit(x *matrix.Matrix, y Labels) (Classifier, error)
}

// Descriptor fits a Detector from unlabelled inliers.
type Descriptor interface {
	Fit(x *matrix.Matrix) (Detector, error)
}

type ProvideFn func() (Estimator, error)

// ValidateFit checks the shared fit contract and returns the class count.
func ValidateFit(x *matrix.Matrix, y Labels, k int) (int, error) {
	if x == nil || x.Empty() {
		return 0, ErrEmptyInput
	}
	if k < 1 {
		return 0, InvalidInputf("k must be at least 1")
	}
	if len(y) != x.Rows() {
		return 0, &LabelLengthMismatchError{Expected: x.Rows(), Found: len(y)}
	}
	if len(y) == 0 {
		return 0, InvalidInputf("labels cannot be empty")
	}
	for i, v := range y {
		if v < 0 {
			return 0, InvalidInputf("label %d at row %d is negative", v, i)
		}
	}
	return y.Classes(), nil
}

// ValidateQuery checks that x has the fitted feature count.
func ValidateQuery(x *matrix.Matrix, features int) error {
	if x == nil {
		return InvalidInputf("query matrix is nil")
	}
	if x.Cols() != features {
		return InvalidInputf("query feature mismatch: expected %d, found %d", features, x.Cols())
	}
	return nil
}
