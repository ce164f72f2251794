package app

import (
	"context"

	appErrors "copyverify/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "copyverify/app"

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span. Cancellation is not an error.
func endSpan(span trace.Span, err error) {
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case appErrors.IsCancelled(err):
		span.SetAttributes(attribute.Bool("cancelled", true))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
