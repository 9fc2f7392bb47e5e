package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Operation tracks one traced and metered extraction.
type Operation struct {
	ServiceName   string
	OperationName string
	RequestID     string
	Backend       string
	StartTime     time.Time
	Metrics       *Metrics
}

// NewOperation creates a new operation.
// If metrics is nil, metric recording is silently skipped.
func NewOperation(serviceName, operationName, requestID, backend string, metrics *Metrics) *Operation {
	return &Operation{
		ServiceName:   serviceName,
		OperationName: operationName,
		RequestID:     requestID,
		Backend:       backend,
		StartTime:     time.Now(),
		Metrics:       metrics,
	}
}

// Start starts a traced span and records the extraction start metric.
func (op *Operation) Start(ctx context.Context, spanName string) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, spanName)
	span.SetAttributes(
		attribute.String(AttrServiceName, op.ServiceName),
		attribute.String(AttrOperationName, op.OperationName),
		attribute.String(AttrBackend, op.Backend),
	)
	if op.RequestID != "" {
		span.SetAttributes(attribute.String(AttrRequestID, op.RequestID))
	}

	op.Metrics.RecordExtractionStart(ctx)
	return ctx, span
}

// End ends the span and records the extraction outcome.
func (op *Operation) End(ctx context.Context, span trace.Span, status string, err error) {
	duration := time.Since(op.StartTime)

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}

	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	op.Metrics.RecordExtractionEnd(ctx, op.Backend, status, duration)
}
