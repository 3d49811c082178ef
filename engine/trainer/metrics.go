package trainer

import (
	"context"
	"fmt"
	"time"

	monitoringmetrics "github.com/senvr/senvr/engine/infra/monitoring/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	outcomeTrained = "trained"
	outcomeEmpty   = "empty"
	outcomeFailed  = "failed"
)

// Metrics instruments training cycles. A nil meter yields a no-op instance.
type Metrics struct {
	cyclesTotal    metric.Int64Counter
	unitsTotal     metric.Int64Counter
	conflictsTotal metric.Int64Counter
	cycleDuration  metric.Float64Histogram
	batchSize      metric.Float64Histogram
}

// NewMetrics registers the trainer instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	if meter == nil {
		return m, nil
	}
	var err error
	m.cyclesTotal, err = meter.Int64Counter(
		monitoringmetrics.MetricNameWithSubsystem("trainer", "cycles_total"),
		metric.WithDescription("Training cycles by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trainer cycles counter: %w", err)
	}
	m.unitsTotal, err = meter.Int64Counter(
		monitoringmetrics.MetricNameWithSubsystem("trainer", "units_total"),
		metric.WithDescription("Text units drained into training cycles"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trainer units counter: %w", err)
	}
	m.conflictsTotal, err = meter.Int64Counter(
		monitoringmetrics.MetricNameWithSubsystem("trainer", "merge_conflicts_total"),
		metric.WithDescription("Model swaps retried because another cycle replaced the model first"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trainer conflicts counter: %w", err)
	}
	m.cycleDuration, err = meter.Float64Histogram(
		monitoringmetrics.MetricNameWithSubsystem("trainer", "cycle_duration_seconds"),
		metric.WithDescription("Wall-clock duration of training cycles"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(monitoringmetrics.CycleDurationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trainer duration histogram: %w", err)
	}
	m.batchSize, err = meter.Float64Histogram(
		monitoringmetrics.MetricNameWithSubsystem("trainer", "batch_size"),
		metric.WithDescription("Units per training batch"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(monitoringmetrics.BatchSizeBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trainer batch histogram: %w", err)
	}
	return m, nil
}

func (m *Metrics) recordCycle(ctx context.Context, scope, outcome string, units int, elapsed time.Duration) {
	if m == nil || m.cyclesTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("scope_kind", scopeKind(scope)),
		attribute.String("outcome", outcome),
	)
	m.cyclesTotal.Add(ctx, 1, attrs)
	if units == 0 {
		return
	}
	m.unitsTotal.Add(ctx, int64(units), attrs)
	m.cycleDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.batchSize.Record(ctx, float64(units), attrs)
}

func (m *Metrics) recordConflict(ctx context.Context, scope string) {
	if m == nil || m.conflictsTotal == nil {
		return
	}
	m.conflictsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("scope_kind", scopeKind(scope))))
}

// scopeKind keeps per-author scope names out of metric labels.
func scopeKind(scope string) string {
	if scope == GlobalScope {
		return GlobalScope
	}
	return "author"
}
