// Package observability provides OpenTelemetry tracing and metrics for the
// extraction pipeline.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanExtract)
//	defer span.End()
//
// Metrics:
//
//	metrics, err := observability.NewMetrics(observability.Meter("embedding-service"))
//	metrics.RecordExtractionEnd(ctx, "onnx", "ok", duration)
//
// Component wires both into the bootstrap lifecycle; with exporters disabled
// the global no-op providers are used and recording costs nothing.
package observability
