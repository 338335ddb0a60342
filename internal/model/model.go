// Package model describes persisted scoring models. A Spec holds everything
// needed to refit a model deterministically; fitted state is never stored.
package model

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-sod/frsod/internal/byteutil"
	"github.com/go-sod/frsod/internal/geom"
	"github.com/go-sod/frsod/internal/pipeline"
	"github.com/go-sod/frsod/internal/predictor"
	"github.com/go-sod/frsod/pkg/math/fuzzy"
	"github.com/go-sod/frsod/pkg/math/matrix"
	"github.com/google/uuid"
)

var ErrNotFound = fmt.Errorf("model not found")

type FilterFn func(*Spec) bool

// Store persists model specs.
type Store interface {
	Store(ctx context.Context, spec *Spec) error
	Find(ctx context.Context, id uuid.UUID) (*Spec, error)
	FindAll(ctx context.Context, filter FilterFn) ([]*Spec, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Spec struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Algorithm predictor.AlgType `json:"algorithm"`
	K         int               `json:"k"`
	Metric    geom.Metric       `json:"metric"`
	TNorm     fuzzy.TNorm       `json:"tnorm,omitempty"`
	Normalise bool              `json:"normalise"`
	Train     *matrix.Matrix    `json:"-"`
	Labels    predictor.Labels  `json:"labels,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// NewSpec assigns an id and creation time. Named specs get an id derived
// from the name so re-registering a name replaces the stored spec.
func NewSpec(name string) *Spec {
	id := uuid.New()
	if name != "" {
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte("frsod:"+name))
	}
	return &Spec{ID: id, Name: name, CreatedAt: time.Now().UTC()}
}

// Defaults fills unset fields from the service-wide predictor config.
func (s *Spec) Defaults(c predictor.Config) {
	if s.Algorithm == "" {
		s.Algorithm = c.Type
	}
	if s.K == 0 {
		s.K = c.K
		if s.Algorithm != c.Type {
			s.K = s.Algorithm.DefaultK()
		}
	}
	if s.Metric == "" {
		s.Metric = c.Metric
	}
	if s.TNorm == "" && s.Algorithm == predictor.AlgTypeFRNN {
		s.TNorm = c.TNorm
	}
}

// Validate checks the fields that fitting does not check itself.
func (s *Spec) Validate() error {
	if _, err := predictor.ParseAlgType(string(s.Algorithm)); err != nil {
		return predictor.InvalidInputf("%v", err)
	}
	if _, err := geom.ParseMetric(string(s.Metric)); err != nil {
		return predictor.InvalidInputf("%v", err)
	}
	if s.TNorm != "" {
		if _, err := fuzzy.ParseTNorm(string(s.TNorm)); err != nil {
			return predictor.InvalidInputf("%v", err)
		}
	}
	if s.Train == nil {
		return predictor.ErrEmptyInput
	}
	if !s.Algorithm.Labelled() && len(s.Labels) > 0 {
		return predictor.InvalidInputf("%s does not take labels", s.Algorithm)
	}
	return nil
}

// CheckClasses rejects labels that would give more than limit classes.
// Every score row is as wide as the class count. A limit <= 0 disables the
// check.
func (s *Spec) CheckClasses(limit int) error {
	if limit <= 0 {
		return nil
	}
	for i, l := range s.Labels {
		if l >= limit {
			return predictor.InvalidInputf("label %d at row %d exceeds the limit of %d classes", l, i, limit)
		}
	}
	return nil
}

func (s *Spec) Settings(workers int) pipeline.Settings {
	return pipeline.Settings{
		Algorithm: s.Algorithm,
		K:         s.K,
		Metric:    s.Metric,
		TNorm:     s.TNorm,
		Workers:   workers,
		Normalise: s.Normalise,
	}
}

// Fingerprint identifies the training data and labels, so identical
// datasets registered under different names can be spotted.
func (s *Spec) Fingerprint() string {
	var data []float64
	if s.Train != nil {
		data = s.Train.Data()
	}
	labels := make([]float64, len(s.Labels))
	for i, l := range s.Labels {
		labels[i] = float64(l)
	}
	sum := byteutil.HashFloats(data, labels)
	return hex.EncodeToString(sum[:])
}

func (s *Spec) Rows() int {
	if s.Train == nil {
		return 0
	}
	return s.Train.Rows()
}

func (s *Spec) Features() int {
	if s.Train == nil {
		return 0
	}
	return s.Train.Cols()
}
