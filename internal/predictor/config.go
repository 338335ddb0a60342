package predictor

import (
	"fmt"
	"strings"

	"github.com/go-sod/frsod/internal/geom"
	"github.com/go-sod/frsod/pkg/math/fuzzy"
)

type AlgType string

const (
	AlgTypeNN   AlgType = "NN"
	AlgTypeFRNN AlgType = "FRNN"
	AlgTypeNND  AlgType = "NND"
)

var ErrUnknownAlg = fmt.Errorf("unknown algorithm")

func ParseAlgType(s string) (AlgType, error) {
	a := AlgType(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case AlgTypeNN, AlgTypeFRNN, AlgTypeNND:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlg, s)
	}
}

// Labelled reports whether the algorithm fits on labelled data.
func (a AlgType) Labelled() bool {
	return a == AlgTypeNN || a == AlgTypeFRNN
}

// DefaultK is the neighbour count used when none is given.
func (a AlgType) DefaultK() int {
	if a == AlgTypeNN {
		return 1
	}
	return 5
}

type Config struct {
	Type         AlgType     `envconfig:"FRSOD_PREDICTOR_TYPE" default:"FRNN"`
	K            int         `envconfig:"FRSOD_PREDICTOR_K" default:"5"`
	Metric       geom.Metric `envconfig:"FRSOD_PREDICTOR_METRIC" default:"EUCLIDEAN"`
	TNorm        fuzzy.TNorm `envconfig:"FRSOD_PREDICTOR_TNORM" default:"MIN"`
	IndexWorkers int         `envconfig:"FRSOD_INDEX_WORKERS" default:"1"`
}

// Parse returns c with its enum fields normalised, rejecting unknown values.
func (c Config) Parse() (Config, error) {
	var err error
	if c.Type, err = ParseAlgType(string(c.Type)); err != nil {
		return c, err
	}
	if c.Metric, err = geom.ParseMetric(string(c.Metric)); err != nil {
		return c, err
	}
	if c.TNorm, err = fuzzy.ParseTNorm(string(c.TNorm)); err != nil {
		return c, err
	}
	if c.K < 1 {
		return c, InvalidInputf("k must be at least 1")
	}
	return c, nil
}
