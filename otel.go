package discussions

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/rbaliyan/discussions"
)

// otelInstrumentation holds OpenTelemetry instrumentation for the
// discussions service.
type otelInstrumentation struct {
	enabled bool

	// Tracing
	tracingEnabled bool
	tracer         trace.Tracer

	// Metrics
	metricsEnabled bool

	composeLatency metric.Float64Histogram
	composeCount   metric.Int64Counter
	composeErrors  metric.Int64Counter
	replyLatency   metric.Float64Histogram
	replyCount     metric.Int64Counter
	replyErrors    metric.Int64Counter
	readCount      metric.Int64Counter
	deleteCount    metric.Int64Counter
	listLatency    metric.Float64Histogram
	listCount      metric.Int64Counter
	listErrors     metric.Int64Counter
}

// newOtelInstrumentation creates new OTel instrumentation from options.
func newOtelInstrumentation(opts *options) (*otelInstrumentation, error) {
	o := &otelInstrumentation{
		enabled:        opts.tracingEnabled || opts.metricsEnabled,
		tracingEnabled: opts.tracingEnabled,
		metricsEnabled: opts.metricsEnabled,
	}

	if !o.enabled {
		return o, nil
	}

	if opts.tracingEnabled {
		tp := opts.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		o.tracer = tp.Tracer(instrumentationName)
	}

	if opts.metricsEnabled {
		mp := opts.meterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		if err := o.initMetrics(mp); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// initMetrics initializes all metric instruments.
func (o *otelInstrumentation) initMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentationName)

	var err error

	o.composeLatency, err = meter.Float64Histogram(
		"discussions.compose.duration",
		metric.WithDescription("Duration of compose operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.composeCount, err = meter.Int64Counter(
		"discussions.compose.count",
		metric.WithDescription("Number of discussions composed"),
	)
	if err != nil {
		return err
	}

	o.composeErrors, err = meter.Int64Counter(
		"discussions.compose.errors",
		metric.WithDescription("Number of compose errors"),
	)
	if err != nil {
		return err
	}

	o.replyLatency, err = meter.Float64Histogram(
		"discussions.reply.duration",
		metric.WithDescription("Duration of reply operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.replyCount, err = meter.Int64Counter(
		"discussions.reply.count",
		metric.WithDescription("Number of replies added"),
	)
	if err != nil {
		return err
	}

	o.replyErrors, err = meter.Int64Counter(
		"discussions.reply.errors",
		metric.WithDescription("Number of reply errors"),
	)
	if err != nil {
		return err
	}

	o.readCount, err = meter.Int64Counter(
		"discussions.read.count",
		metric.WithDescription("Number of mark-read operations"),
	)
	if err != nil {
		return err
	}

	o.deleteCount, err = meter.Int64Counter(
		"discussions.delete.count",
		metric.WithDescription("Number of delete operations"),
	)
	if err != nil {
		return err
	}

	o.listLatency, err = meter.Float64Histogram(
		"discussions.list.duration",
		metric.WithDescription("Duration of list operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.listCount, err = meter.Int64Counter(
		"discussions.list.count",
		metric.WithDescription("Number of list operations"),
	)
	if err != nil {
		return err
	}

	o.listErrors, err = meter.Int64Counter(
		"discussions.list.errors",
		metric.WithDescription("Number of list errors"),
	)
	if err != nil {
		return err
	}

	return nil
}

// startSpan starts a new span if tracing is enabled.
// Caller must invoke the returned func with the final error.
func (o *otelInstrumentation) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if !o.tracingEnabled || o.tracer == nil {
		return ctx, func(error) {}
	}
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// recordCompose records compose operation metrics.
func (o *otelInstrumentation) recordCompose(ctx context.Context, duration time.Duration, recipientCount int, err error) {
	if !o.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Int("recipient_count", recipientCount),
	)

	o.composeLatency.Record(ctx, duration.Seconds(), attrs)
	o.composeCount.Add(ctx, 1, attrs)
	if err != nil {
		o.composeErrors.Add(ctx, 1, attrs)
	}
}

// recordReply records reply operation metrics.
func (o *otelInstrumentation) recordReply(ctx context.Context, duration time.Duration, err error) {
	if !o.metricsEnabled {
		return
	}

	o.replyLatency.Record(ctx, duration.Seconds())
	o.replyCount.Add(ctx, 1)
	if err != nil {
		o.replyErrors.Add(ctx, 1)
	}
}

// recordRead records mark-read operation metrics.
func (o *otelInstrumentation) recordRead(ctx context.Context, err error) {
	if !o.metricsEnabled || err != nil {
		return
	}
	o.readCount.Add(ctx, 1)
}

// recordDelete records delete operation metrics.
func (o *otelInstrumentation) recordDelete(ctx context.Context, asSender bool, err error) {
	if !o.metricsEnabled || err != nil {
		return
	}
	o.deleteCount.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("as_sender", asSender),
	))
}

// recordList records list operation metrics.
func (o *otelInstrumentation) recordList(ctx context.Context, duration time.Duration, kind string, resultCount int, err error) {
	if !o.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Int("result_count", resultCount),
	)

	o.listLatency.Record(ctx, duration.Seconds(), attrs)
	o.listCount.Add(ctx, 1, attrs)
	if err != nil {
		o.listErrors.Add(ctx, 1, attrs)
	}
}
