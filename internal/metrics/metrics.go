// Package metrics records registry operations through opencensus and
// exposes them to prometheus.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

type Config struct {
	Namespace string `envconfig:"FRSOD_METRICS_NAMESPACE" default:"frsod"`
}

var (
	OperationLatency = stats.Float64("frsod/operation_latency", "Latency of model operations", stats.UnitMilliseconds)
	QueryRows        = stats.Int64("frsod/query_rows", "Query rows scored per request", stats.UnitDimensionless)
	ModelsLoaded     = stats.Int64("frsod/models_loaded", "Models fitted and held in memory", stats.UnitDimensionless)

	KeyAlgorithm = tag.MustNewKey("algorithm")
	KeyOperation = tag.MustNewKey("operation")
	KeyStatus    = tag.MustNewKey("status")
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

var Views = []*view.View{
	{
		Name:        "frsod/operation_latency",
		Measure:     OperationLatency,
		Description: "Distribution of model operation latency",
		TagKeys:     []tag.Key{KeyAlgorithm, KeyOperation, KeyStatus},
		Aggregation: view.Distribution(0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	},
	{
		Name:        "frsod/operation_count",
		Measure:     OperationLatency,
		Description: "Count of model operations",
		TagKeys:     []tag.Key{KeyAlgorithm, KeyOperation, KeyStatus},
		Aggregation: view.Count(),
	},
	{
		Name:        "frsod/query_rows",
		Measure:     QueryRows,
		Description: "Distribution of query batch sizes",
		TagKeys:     []tag.Key{KeyAlgorithm, KeyOperation},
		Aggregation: view.Distribution(1, 10, 100, 1000, 10000, 100000),
	},
	{
		Name:        "frsod/models_loaded",
		Measure:     ModelsLoaded,
		Description: "Models held by the registry",
		Aggregation: view.LastValue(),
	},
}

var registerOnce sync.Once

// Register registers Views once per process.
func Register() error {
	var err error
	registerOnce.Do(func() {
		err = view.Register(Views...)
	})
	if err != nil {
		return fmt.Errorf("unable to register views: %w", err)
	}
	return nil
}

// NewHandler registers Views and returns the prometheus scrape handler.
func NewHandler(cfg *Config) (http.Handler, error) {
	if err := Register(); err != nil {
		return nil, err
	}
	exporter, err := prometheus.NewExporter(prometheus.Options{Namespace: cfg.Namespace})
	if err != nil {
		return nil, fmt.Errorf("unable to create prometheus exporter: %w", err)
	}
	return exporter, nil
}

// RecordOperation records the latency of one operation started at start.
func RecordOperation(ctx context.Context, algorithm, operation string, start time.Time, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{
			tag.Upsert(KeyAlgorithm, algorithm),
			tag.Upsert(KeyOperation, operation),
			tag.Upsert(KeyStatus, status),
		},
		OperationLatency.M(float64(time.Since(start))/float64(time.Millisecond)),
	)
}

func RecordQueryRows(ctx context.Context, algorithm, operation string, rows int) {
	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{
			tag.Upsert(KeyAlgorithm, algorithm),
			tag.Upsert(KeyOperation, operation),
		},
		QueryRows.M(int64(rows)),
	)
}

func RecordModels(ctx context.Context, n int) {
	stats.Record(ctx, ModelsLoaded.M(int64(n)))
}
