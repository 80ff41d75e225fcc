package debugtext

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Sokol111/ecommerce-debugtext/pkg/debugtext"

var (
	attrKindFramed  = attribute.String("payload.kind", "framed")
	attrKindPayload = attribute.String("payload.kind", "raw")
	attrOutcomeOK   = attribute.String("outcome", "ok")
	attrOutcomeErr  = attribute.String("outcome", "error")
)

// FormatterOption configures a Formatter.
type FormatterOption func(*formatterOptions)

type formatterOptions struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithTracerProvider sets the provider for formatter spans. Defaults to the otel global.
func WithTracerProvider(tp trace.TracerProvider) FormatterOption {
	return func(o *formatterOptions) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithMeterProvider sets the provider for formatter metrics. Defaults to the otel global.
func WithMeterProvider(mp metric.MeterProvider) FormatterOption {
	return func(o *formatterOptions) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

type telemetry struct {
	tracer   trace.Tracer
	payloads metric.Int64Counter
	size     metric.Int64Histogram
}

func newTelemetry(o formatterOptions) telemetry {
	tp := o.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := o.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	meter := mp.Meter(instrumentationName)
	// errors only occur for invalid instrument names
	payloads, _ := meter.Int64Counter("debugtext.payloads",
		metric.WithDescription("Payloads formatted, by kind and outcome"),
	)
	size, _ := meter.Int64Histogram("debugtext.rendered.size",
		metric.WithDescription("Full length of rendered debug text"),
		metric.WithUnit("By"),
	)

	return telemetry{
		tracer:   tp.Tracer(instrumentationName),
		payloads: payloads,
		size:     size,
	}
}

func (t telemetry) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// finish records the outcome of one formatted payload on span and in metrics.
func (t telemetry) finish(ctx context.Context, span trace.Span, kind attribute.KeyValue, size int, err error) {
	defer span.End()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.payloads.Add(ctx, 1, metric.WithAttributes(kind, attrOutcomeErr))
		return
	}

	span.SetAttributes(attribute.Int("rendered.size", size))
	t.payloads.Add(ctx, 1, metric.WithAttributes(kind, attrOutcomeOK))
	t.size.Record(ctx, int64(size), metric.WithAttributes(kind))
}
