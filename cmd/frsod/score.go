package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-sod/frsod/internal/geom"
	"github.com/go-sod/frsod/internal/pipeline"
	"github.com/go-sod/frsod/internal/predictor"
	"github.com/go-sod/frsod/pkg/math/fuzzy"
	"github.com/go-sod/frsod/pkg/math/matrix"
)

const (
	outputScores  = "scores"
	outputClasses = "classes"
	outputProba   = "proba"
	outputAnomaly = "anomaly"
)

type scoreOptions struct {
	algorithm    string
	k            int
	metric       string
	tnorm        string
	train        string
	query        string
	labelsColumn int
	output       string
	noNormalise  bool
	header       bool
	workers      int
}

func (o *scoreOptions) settings() (pipeline.Settings, error) {
	alg, err := predictor.ParseAlgType(o.algorithm)
	if err != nil {
		return pipeline.Settings{}, err
	}
	metric, err := geom.ParseMetric(o.metric)
	if err != nil {
		return pipeline.Settings{}, err
	}
	tnorm, err := fuzzy.ParseTNorm(o.tnorm)
	if err != nil {
		return pipeline.Settings{}, err
	}
	k := o.k
	if k == 0 {
		k = alg.DefaultK()
	}
	return pipeline.Settings{
		Algorithm: alg,
		K:         k,
		Metric:    metric,
		TNorm:     tnorm,
		Workers:   max(o.workers, 1),
		Normalise: !o.noNormalise,
	}, nil
}

func runScore(o *scoreOptions, out io.Writer) error {
	s, err := o.settings()
	if err != nil {
		return err
	}
	train, err := readCSV(o.train, o.header)
	if err != nil {
		return err
	}
	query, err := readCSV(o.query, o.header)
	if err != nil {
		return err
	}

	if s.Algorithm.Labelled() {
		return scoreClassifier(s, o.labelsColumn, o.output, train, query, out)
	}
	return scoreNovelty(s, o.output, train, query, out)
}

func scoreClassifier(s pipeline.Settings, labelsColumn int, output string, train, query [][]float64, out io.Writer) error {
	x, y, err := splitLabels(train, labelsColumn)
	if err != nil {
		return err
	}
	p, err := pipeline.ClassifierFor(s)
	if err != nil {
		return err
	}
	m, err := p.Fit(x, y)
	if err != nil {
		return fmt.Errorf("unable to fit %s: %w", s.Algorithm, err)
	}
	q, err := queryMatrix(query, m.Features())
	if err != nil {
		return err
	}

	switch output {
	case outputScores, "":
		scores, err := m.PredictScores(q)
		if err != nil {
			return err
		}
		return writeMatrix(out, scores)
	case outputClasses:
		classes, err := m.Predict(q)
		if err != nil {
			return err
		}
		w := csv.NewWriter(out)
		for _, c := range classes {
			if err := w.Write([]string{strconv.Itoa(c)}); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	case outputProba:
		proba, err := m.PredictProba(q)
		if err != nil {
			return err
		}
		return writeMatrix(out, proba)
	default:
		return fmt.Errorf("output %q is not available for %s", output, s.Algorithm)
	}
}

func scoreNovelty(s pipeline.Settings, output string, train, query [][]float64, out io.Writer) error {
	x, err := matrix.FromRows(train)
	if err != nil {
		return err
	}
	p, err := pipeline.NoveltyFor(s)
	if err != nil {
		return err
	}
	m, err := p.Fit(x)
	if err != nil {
		return fmt.Errorf("unable to fit %s: %w", s.Algorithm, err)
	}
	q, err := queryMatrix(query, m.Features())
	if err != nil {
		return err
	}

	switch output {
	case outputAnomaly, outputScores, "":
		scores, err := m.PredictScores(q)
		if err != nil {
			return err
		}
		return writeMatrix(out, scores)
	default:
		return fmt.Errorf("output %q is not available for %s", output, s.Algorithm)
	}
}

func queryMatrix(rows [][]float64, features int) (*matrix.Matrix, error) {
	if len(rows) == 0 {
		return matrix.New(0, features), nil
	}
	return matrix.FromRows(rows)
}

func readCSV(path string, header bool) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comment = '#'
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}
	if header && len(records) > 0 {
		records = records[1:]
	}

	rows := make([][]float64, 0, len(records))
	for i, rec := range records {
		row := make([]float64, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%s: record %d, field %d: %w", path, i+1, j+1, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// splitLabels removes the label column from every row. A negative column
// counts from the end.
func splitLabels(rows [][]float64, column int) (*matrix.Matrix, predictor.Labels, error) {
	if len(rows) == 0 {
		return nil, nil, predictor.ErrEmptyInput
	}
	features := make([][]float64, len(rows))
	labels := make(predictor.Labels, len(rows))
	for i, row := range rows {
		c := column
		if c < 0 {
			c += len(row)
		}
		if c < 0 || c >= len(row) {
			return nil, nil, predictor.InvalidInputf("row %d has no label column %d", i, column)
		}
		v := row[c]
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, nil, predictor.InvalidInputf("row %d label %v is not an integer", i, v)
		}
		labels[i] = int(v)
		features[i] = append(append(make([]float64, 0, len(row)-1), row[:c]...), row[c+1:]...)
	}
	x, err := matrix.FromRows(features)
	if err != nil {
		return nil, nil, err
	}
	return x, labels, nil
}

func writeMatrix(out io.Writer, m *matrix.Matrix) error {
	w := csv.NewWriter(out)
	record := make([]string, m.Cols())
	for i := 0; i < m.Rows(); i++ {
		for j, v := range m.Row(i) {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
