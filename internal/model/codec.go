package model

import (
	"bytes"
	"fmt"
	"time"

	"github.com/davecgh/go-xdr/xdr2"
	"github.com/go-sod/frsod/internal/byteutil"
	"github.com/go-sod/frsod/internal/geom"
	"github.com/go-sod/frsod/internal/predictor"
	"github.com/go-sod/frsod/pkg/math/fuzzy"
	"github.com/go-sod/frsod/pkg/math/matrix"
	"github.com/google/uuid"
)

const snapshotVersion uint32 = 2

var ErrSnapshotVersion = fmt.Errorf("unsupported snapshot version")

// snapshot is the XDR wire form of a Spec.
type snapshot struct {
	Version   uint32
	ID        [16]byte
	Name      string
	Algorithm string
	K         int64
	Metric    string
	TNorm     string
	Normalise bool
	Rows      uint32
	Cols      uint32
	Data      []float64
	Labels    []int64
	CreatedAt int64
}

func Encode(s *Spec) ([]byte, error) {
	snap := snapshot{
		Version:   snapshotVersion,
		ID:        s.ID,
		Name:      s.Name,
		Algorithm: string(s.Algorithm),
		K:         int64(s.K),
		Metric:    string(s.Metric),
		TNorm:     string(s.TNorm),
		Normalise: s.Normalise,
		Labels:    make([]int64, len(s.Labels)),
		CreatedAt: s.CreatedAt.UnixNano(),
	}
	if s.Train != nil {
		snap.Rows, snap.Cols = uint32(s.Train.Rows()), uint32(s.Train.Cols())
		snap.Data = s.Train.Data()
	}
	for i, l := range s.Labels {
		snap.Labels[i] = int64(l)
	}

	buf := byteutil.GetBytesBuf()
	defer byteutil.PutBytesBuf(buf)
	if _, err := xdr.Marshal(buf, &snap); err != nil {
		return nil, fmt.Errorf("unable to encode model %s: %w", s.ID, err)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func Decode(b []byte) (*Spec, error) {
	var snap snapshot
	if _, err := xdr.Unmarshal(bytes.NewReader(b), &snap); err != nil {
		return nil, fmt.Errorf("unable to decode model: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Version)
	}
	data := snap.Data
	if data == nil {
		data = []float64{}
	}
	train, err := matrix.NewFromData(int(snap.Rows), int(snap.Cols), data)
	if err != nil {
		return nil, fmt.Errorf("unable to decode model %s: %w", uuid.UUID(snap.ID), err)
	}
	labels := make(predictor.Labels, len(snap.Labels))
	for i, l := range snap.Labels {
		labels[i] = int(l)
	}
	return &Spec{
		ID:        snap.ID,
		Name:      snap.Name,
		Algorithm: predictor.AlgType(snap.Algorithm),
		K:         int(snap.K),
		Metric:    geom.Metric(snap.Metric),
		TNorm:     fuzzy.TNorm(snap.TNorm),
		Normalise: snap.Normalise,
		Train:     train,
		Labels:    labels,
		CreatedAt: time.Unix(0, snap.CreatedAt).UTC(),
	}, nil
}
