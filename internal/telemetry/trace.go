package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/felixgeelhaar/plugin-compat-tester"

func tracer() trace.Tracer {
	return GetTracerProvider().Tracer(tracerName)
}

// StartRunSpan creates the root span of a compatibility run.
//
// Usage:
//
//	ctx, span := telemetry.StartRunSpan(ctx, "2.440.1", 212)
//	defer span.End()
func StartRunSpan(ctx context.Context, coreVersion string, plugins int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "pct.run", trace.WithAttributes(
		attribute.String("pct.core_version", coreVersion),
		attribute.Int("pct.plugins", plugins),
	))
}

// StartPluginSpan creates a span covering one plugin's pipeline.
func StartPluginSpan(ctx context.Context, pluginID, pluginVersion string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "pct.plugin", trace.WithAttributes(
		attribute.String("pct.plugin.id", pluginID),
		attribute.String("pct.plugin.version", pluginVersion),
	))
}

// StartStageSpan creates a span for one pipeline stage of a plugin: resolve,
// checkout, compilation or execution.
func StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "pct.stage."+stage, trace.WithAttributes(
		attribute.String("pct.stage", stage),
	))
}

// RecordSuccess marks a span as successful with optional result attributes.
func RecordSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordError records an error in a span and sets error status.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordDuration records the duration of an operation as a span attribute.
func RecordDuration(span trace.Span, name string, duration time.Duration) {
	span.SetAttributes(attribute.Int64(name+"_ms", duration.Milliseconds()))
}
