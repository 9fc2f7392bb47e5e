package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/speakerembed/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded around embedding extraction.
type Metrics struct {
	extractionTotal    metric.Int64Counter
	extractionDuration metric.Float64Histogram
	extractionActive   metric.Int64UpDownCounter
	audioDuration      metric.Float64Histogram
	modelLoadTotal     metric.Int64Counter
	errorTotal         metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	extractionTotal, err := meter.Int64Counter("embedding.extraction.total",
		metric.WithDescription("Total number of embedding extractions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedding.extraction.total counter: %w", err)
	}

	extractionDuration, err := meter.Float64Histogram("embedding.extraction.duration",
		metric.WithDescription("Duration of embedding extractions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedding.extraction.duration histogram: %w", err)
	}

	extractionActive, err := meter.Int64UpDownCounter("embedding.extraction.active",
		metric.WithDescription("Number of extractions currently running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedding.extraction.active gauge: %w", err)
	}

	audioDuration, err := meter.Float64Histogram("audio.input.duration",
		metric.WithDescription("Duration of normalized input audio in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating audio.input.duration histogram: %w", err)
	}

	modelLoadTotal, err := meter.Int64Counter("model.load.total",
		metric.WithDescription("Model load attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating model.load.total counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("error.total",
		metric.WithDescription("Total errors by code and stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &Metrics{
		extractionTotal:    extractionTotal,
		extractionDuration: extractionDuration,
		extractionActive:   extractionActive,
		audioDuration:      audioDuration,
		modelLoadTotal:     modelLoadTotal,
		errorTotal:         errorTotal,
	}, nil
}

// NewGlobalMetrics returns instruments on the global provider. They record
// nothing until InitMeter installs a real provider, then forward to it.
func NewGlobalMetrics() *Metrics {
	m, err := NewMetrics(Meter(defaultTracerName))
	if err != nil {
		return nil
	}
	return m
}

// RecordExtractionStart increments the active extraction count.
func (m *Metrics) RecordExtractionStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.extractionActive.Add(ctx, 1)
}

// RecordExtractionEnd decrements active extractions and records the outcome.
func (m *Metrics) RecordExtractionEnd(ctx context.Context, backend, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.extractionActive.Add(ctx, -1)
	m.extractionTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("status", status),
	))
	m.extractionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("backend", backend),
	))
}

// RecordAudioDuration records the duration of a normalized clip.
func (m *Metrics) RecordAudioDuration(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.audioDuration.Record(ctx, seconds)
}

// RecordModelLoad records a model load attempt.
func (m *Metrics) RecordModelLoad(ctx context.Context, backend, device, status string) {
	if m == nil {
		return
	}
	m.modelLoadTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("device", device),
		attribute.String("status", status),
	))
}

// RecordError records an error by code and pipeline stage.
func (m *Metrics) RecordError(ctx context.Context, code, stage string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("stage", stage),
	))
}
