// Package fixture loads the reference dataset shared by the model tests.
package fixture

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Reference is a small three-class dataset with the neighbours and scores
// the reference scoring implementation produces for it.
type Reference struct {
	K            int         `toml:"k"`
	Metric       string      `toml:"metric"`
	Eps          float64     `toml:"eps"`
	XTrain       [][]float64 `toml:"x_train"`
	YTrain       []int       `toml:"y_train"`
	XQuery       [][]float64 `toml:"x_query"`
	XTrainNorm   [][]float64 `toml:"x_train_norm"`
	XQueryNorm   [][]float64 `toml:"x_query_norm"`
	KNNIndices   [][]int     `toml:"knn_indices"`
	KNNDistances [][]float64 `toml:"knn_distances"`
	NNScores     [][]float64 `toml:"nn_scores"`
	FRNNScores   [][]float64 `toml:"frnn_scores"`
}

func Load(path string) (*Reference, error) {
	var r Reference
	if _, err := toml.DecodeFile(path, &r); err != nil {
		return nil, fmt.Errorf("unable to decode fixture %s: %w", path, err)
	}
	return &r, nil
}

// LoadReference reads testdata/reference.toml next to this file.
func LoadReference() (*Reference, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("unable to locate fixture directory")
	}
	return Load(filepath.Join(filepath.Dir(file), "testdata", "reference.toml"))
}
