package ratelimit

import (
	"context"

	monitoringmetrics "github.com/senvr/senvr/engine/infra/monitoring/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type blockMetrics struct {
	blocksTotal metric.Int64Counter
}

func newBlockMetrics(meter metric.Meter) (*blockMetrics, error) {
	if meter == nil {
		return &blockMetrics{}, nil
	}
	counter, err := meter.Int64Counter(
		monitoringmetrics.MetricNameWithSubsystem("rate_limit", "blocks_total"),
		metric.WithDescription("Total number of requests blocked by rate limiting"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}
	return &blockMetrics{blocksTotal: counter}, nil
}

func (m *blockMetrics) blocked(ctx context.Context, route string) {
	if m.blocksTotal == nil {
		return
	}
	m.blocksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}
