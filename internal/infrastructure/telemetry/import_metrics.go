package telemetry

import (
	"context"
	"fmt"
	"time"

	importapp "github.com/erp/importer/internal/application/import"
	"github.com/erp/importer/internal/domain/bulk"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricRowsTotal   = "importer_rows_total"
	MetricRunDuration = "importer_run_duration_seconds"
)

// Attribute keys
var (
	AttrEntity  = attribute.Key("entity")
	AttrOutcome = attribute.Key("outcome")
	AttrStatus  = attribute.Key("status")
)

// RunDurationBuckets are the histogram bounds for run duration, in seconds.
// A registry sync runs for minutes, a small contact file for well under one.
var RunDurationBuckets = []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600}

var _ importapp.Metrics = (*ImportMetrics)(nil)

// ImportMetrics records row outcomes and run durations
type ImportMetrics struct {
	rows     metric.Int64Counter
	duration metric.Float64Histogram
}

// NewImportMetrics creates the import instruments on meter
func NewImportMetrics(meter metric.Meter) (*ImportMetrics, error) {
	rows, err := meter.Int64Counter(MetricRowsTotal,
		metric.WithDescription("Rows processed by outcome"),
		metric.WithUnit("{row}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", MetricRowsTotal, err)
	}
	duration, err := meter.Float64Histogram(MetricRunDuration,
		metric.WithDescription("Duration of import runs"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(RunDurationBuckets...))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", MetricRunDuration, err)
	}
	return &ImportMetrics{rows: rows, duration: duration}, nil
}

// RecordRows adds n rows with the given outcome. Zero counts are dropped.
func (m *ImportMetrics) RecordRows(ctx context.Context, entity bulk.ImportEntityType, outcome string, n int) {
	if n <= 0 {
		return
	}
	m.rows.Add(ctx, int64(n), metric.WithAttributes(
		AttrEntity.String(string(entity)),
		AttrOutcome.String(outcome)))
}

// RecordRun records the duration of one run
func (m *ImportMetrics) RecordRun(ctx context.Context, entity bulk.ImportEntityType, status bulk.ImportStatus, d time.Duration) {
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		AttrEntity.String(string(entity)),
		AttrStatus.String(string(status))))
}
