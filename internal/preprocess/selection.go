package preprocess

import (
	"github.com/go-sod/frsod/internal/predictor"
	"github.com/go-sod/frsod/pkg/math/matrix"
)

// FeatureSelector picks a subset of columns from labelled reference data.
type FeatureSelector interface {
	Fit(x *matrix.Matrix, y predictor.Labels) (FeatureSelection, error)
}

type FeatureSelection interface {
	Transformer
	Selected() []int
}

// PrototypeSelector picks a subset of reference rows.
type PrototypeSelector interface {
	Fit(x *matrix.Matrix, y predictor.Labels) (PrototypeSelection, error)
}

type PrototypeSelection interface {
	TransformDataset(x *matrix.Matrix, y predictor.Labels) (*matrix.Matrix, predictor.Labels, error)
}

var (
	_ FeatureSelector   = PassThroughFeatures{}
	_ PrototypeSelector = PassThroughPrototypes{}
)

// PassThroughFeatures keeps every column.
type PassThroughFeatures struct{}

func (PassThroughFeatures) Fit(x *matrix.Matrix, _ predictor.Labels) (FeatureSelection, error) {
	selected := make([]int, x.Cols())
	for i := range selected {
		selected[i] = i
	}
	return &columnSelection{selected: selected}, nil
}

type columnSelection struct {
	selected []int
}

func (s *columnSelection) Selected() []int {
	return append([]int{}, s.selected...)
}

func (s *columnSelection) Transform(x *matrix.Matrix) (*matrix.Matrix, error) {
	if err := ValidateFeatures(x, len(s.selected)); err != nil {
		return nil, err
	}
	return x.SelectCols(s.selected), nil
}

// PassThroughPrototypes keeps every row.
type PassThroughPrototypes struct{}

func (PassThroughPrototypes) Fit(_ *matrix.Matrix, _ predictor.Labels) (PrototypeSelection, error) {
	return allRows{}, nil
}

type allRows struct{}

func (allRows) TransformDataset(x *matrix.Matrix, y predictor.Labels) (*matrix.Matrix, predictor.Labels, error) {
	return x.Clone(), y.Copy(), nil
}
