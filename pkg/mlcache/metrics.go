package mlcache

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricNameHitsTotal   = "mlcache.hits.total"
	metricNameMissesTotal = "mlcache.misses.total"
	metricNameLoadTotal   = "mlcache.load.total"
	metricNameLoadErrors  = "mlcache.load.errors"
	metricNameLoadDuration = "mlcache.load.duration"
)

var loadDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0}

// Metrics collects mlcache instrumentation. A nil *Metrics is safe to call
// every method on (no-op), matching the construction-optional convention
// used by xsemaphore's metrics collector.
type Metrics struct {
	hitsTotal     metric.Int64Counter
	missesTotal   metric.Int64Counter
	loadTotal     metric.Int64Counter
	loadErrors    metric.Int64Counter
	loadDuration  metric.Float64Histogram
}

// NewMetrics creates a Metrics bound to meterProvider. A nil
// meterProvider yields a nil *Metrics (no collection).
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	if meterProvider == nil {
		return nil, nil
	}
	meter := meterProvider.Meter("mlcache")

	m := &Metrics{}
	var err error
	if m.hitsTotal, err = meter.Int64Counter(metricNameHitsTotal,
		metric.WithDescription("cache hits by tier"), metric.WithUnit("{hit}")); err != nil {
		return nil, err
	}
	if m.missesTotal, err = meter.Int64Counter(metricNameMissesTotal,
		metric.WithDescription("cache misses"), metric.WithUnit("{miss}")); err != nil {
		return nil, err
	}
	if m.loadTotal, err = meter.Int64Counter(metricNameLoadTotal,
		metric.WithDescription("loader invocations"), metric.WithUnit("{load}")); err != nil {
		return nil, err
	}
	if m.loadErrors, err = meter.Int64Counter(metricNameLoadErrors,
		metric.WithDescription("loader invocations returning an error"), metric.WithUnit("{error}")); err != nil {
		return nil, err
	}
	if m.loadDuration, err = meter.Float64Histogram(metricNameLoadDuration,
		metric.WithDescription("loader execution time"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(loadDurationBuckets...)); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) recordHit(ctx context.Context, region, tier string) {
	if m == nil {
		return
	}
	m.hitsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("region", region),
		attribute.String("tier", tier),
	))
}

func (m *Metrics) recordMiss(ctx context.Context, region string) {
	if m == nil {
		return
	}
	m.missesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("region", region)))
}

func (m *Metrics) recordLoad(ctx context.Context, region string, err error, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("region", region))
	m.loadTotal.Add(ctx, 1, attrs)
	if err != nil {
		m.loadErrors.Add(ctx, 1, attrs)
	}
	m.loadDuration.Record(ctx, seconds, attrs)
}
