package mlcache

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/latticekit/platformkit/pkg/cachekey"
	"github.com/latticekit/platformkit/pkg/invalidation"
	"github.com/latticekit/platformkit/pkg/observability/xlog"
)

type options struct {
	logger            xlog.Logger
	keyGenerator      *cachekey.Generator
	invalidationOpts  []invalidation.Option
	meterProvider     metric.MeterProvider
	tracerProvider    trace.TracerProvider
}

// Option configures a Cache at construction time.
type Option func(*options)

// WithLogger overrides the default logger. A nil logger is ignored.
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithKeyGenerator overrides the default cachekey.Generator.
func WithKeyGenerator(g *cachekey.Generator) Option {
	return func(o *options) {
		if g != nil {
			o.keyGenerator = g
		}
	}
}

// WithInvalidationChannel overrides the invalidation bus's channel name.
func WithInvalidationChannel(channel string) Option {
	return func(o *options) {
		o.invalidationOpts = append(o.invalidationOpts, invalidation.WithChannel(channel))
	}
}

// WithMeterProvider enables otel metrics collection. A nil provider
// leaves metrics disabled.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithTracerProvider overrides the tracer provider used for get-or-load
// and put-fenced spans. A nil provider falls back to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}
