package observability

import (
	"context"
	"errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/speakerembed/component"
)

const componentName = "observability"

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component installs the OTLP tracer and meter providers on Start and
// flushes them on Stop. With both exporters disabled it does nothing and the
// global no-op providers stay in place.
type Component struct {
	cfg         Config
	serviceName string
	version     string
	environment string

	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// NewComponent creates the observability component.
func NewComponent(cfg Config, serviceName, version, environment string) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg:         cfg,
		serviceName: serviceName,
		version:     version,
		environment: environment,
	}
}

// Name returns the component name.
func (c *Component) Name() string { return componentName }

// Start initializes the enabled exporters.
func (c *Component) Start(ctx context.Context) error {
	if c.cfg.Tracing.Enabled {
		tp, err := InitTracer(ctx, &TracerConfig{
			ServiceName:    c.serviceName,
			ServiceVersion: c.version,
			Environment:    c.environment,
			Endpoint:       c.cfg.Tracing.Endpoint,
			Insecure:       c.cfg.Tracing.Insecure,
			SampleRate:     c.cfg.Tracing.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("observability: %w", err)
		}
		c.tp = tp
	}
	if c.cfg.Metrics.Enabled {
		mp, err := InitMeter(ctx, &MeterConfig{
			ServiceName:    c.serviceName,
			ServiceVersion: c.version,
			Environment:    c.environment,
			Endpoint:       c.cfg.Metrics.Endpoint,
			Insecure:       c.cfg.Metrics.Insecure,
			Interval:       c.cfg.Metrics.Interval,
		})
		if err != nil {
			return fmt.Errorf("observability: %w", err)
		}
		c.mp = mp
	}
	return nil
}

// Stop flushes and shuts down the providers.
func (c *Component) Stop(ctx context.Context) error {
	var errs []error
	if c.tp != nil {
		errs = append(errs, c.tp.Shutdown(ctx))
		c.tp = nil
	}
	if c.mp != nil {
		errs = append(errs, c.mp.Shutdown(ctx))
		c.mp = nil
	}
	return errors.Join(errs...)
}

// Health always reports healthy; export failures are retried by the SDK.
func (c *Component) Health(ctx context.Context) component.Health {
	return component.Health{Name: componentName, Status: component.StatusHealthy}
}

// Describe returns the startup summary line.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Observability",
		Type:    "telemetry",
		Details: fmt.Sprintf("tracing=%t metrics=%t", c.cfg.Tracing.Enabled, c.cfg.Metrics.Enabled),
	}
}
