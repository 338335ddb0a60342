package model

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/go-sod/frsod/internal/geom"
	"github.com/go-sod/frsod/internal/predictor"
	"github.com/go-sod/frsod/pkg/math/fuzzy"
	"github.com/go-sod/frsod/pkg/math/matrix"
)

type seedFile struct {
	Models []seedModel `toml:"model"`
}

type seedModel struct {
	Name      string      `toml:"name"`
	Algorithm string      `toml:"algorithm"`
	K         int         `toml:"k"`
	Metric    string      `toml:"metric"`
	TNorm     string      `toml:"tnorm"`
	Normalise *bool       `toml:"normalise"`
	Train     [][]float64 `toml:"train"`
	Labels    []int       `toml:"labels"`
}

// LoadSeed reads model specs from a TOML file of [[model]] tables. Fields
// left out are filled from defaults by the caller; normalise defaults to true.
func LoadSeed(path string) ([]*Spec, error) {
	var f seedFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("unable to decode seed file %s: %w", path, err)
	}
	specs := make([]*Spec, 0, len(f.Models))
	for i, m := range f.Models {
		if m.Name == "" {
			return nil, fmt.Errorf("seed model %d: name is required", i)
		}
		train, err := matrix.FromRows(m.Train)
		if err != nil {
			return nil, fmt.Errorf("seed model %q: %w", m.Name, err)
		}
		s := NewSpec(m.Name)
		s.Algorithm = predictor.AlgType(m.Algorithm)
		if m.Algorithm != "" {
			if s.Algorithm, err = predictor.ParseAlgType(m.Algorithm); err != nil {
				return nil, fmt.Errorf("seed model %q: %w", m.Name, err)
			}
		}
		if m.Metric != "" {
			if s.Metric, err = geom.ParseMetric(m.Metric); err != nil {
				return nil, fmt.Errorf("seed model %q: %w", m.Name, err)
			}
		}
		if m.TNorm != "" {
			if s.TNorm, err = fuzzy.ParseTNorm(m.TNorm); err != nil {
				return nil, fmt.Errorf("seed model %q: %w", m.Name, err)
			}
		}
		s.K = m.K
		s.Normalise = m.Normalise == nil || *m.Normalise
		s.Train = train
		s.Labels = m.Labels
		specs = append(specs, s)
	}
	return specs, nil
}
