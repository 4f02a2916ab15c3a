package core

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "qcatlas"

type otelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer adapts an OpenTelemetry tracer. A nil tracer uses the global provider.
func NewOTelTracer(tracer trace.Tracer) Tracer {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return otelTracer{tracer: tracer}
}

func (t otelTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	ctx, span := t.tracer.Start(ctx, "qcatlas."+operation,
		trace.WithAttributes(attribute.String("qcatlas.operation", operation)))
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}
