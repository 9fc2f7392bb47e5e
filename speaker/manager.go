package speaker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kbukum/speakerembed/logger"
	"github.com/kbukum/speakerembed/observability"
)

// Manager owns the single model handle for the process. The model is
// loaded at most once; a failed load leaves the manager unready for the
// rest of its life.
type Manager struct {
	cfg     Config
	log     *logger.Logger
	metrics *observability.Metrics
	build   Factory

	once     sync.Once
	ready    atomic.Bool
	model    Model
	device   string
	loadErr  error
	loadTime time.Duration
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMetrics records load attempts.
func WithMetrics(m *observability.Metrics) ManagerOption {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithFactory replaces the backend registry lookup.
func WithFactory(f Factory) ManagerOption {
	return func(mgr *Manager) { mgr.build = f }
}

// NewManager creates an unloaded manager.
func NewManager(cfg Config, log *logger.Logger, opts ...ManagerOption) *Manager {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	m := &Manager{
		cfg:    cfg,
		log:    log.WithComponent(componentName),
		device: cfg.ResolveDevice(),
		build:  NewModel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load acquires the model. Only the first call does work; later calls
// return the first outcome.
func (m *Manager) Load(ctx context.Context) error {
	m.once.Do(func() {
		m.loadErr = m.load(ctx)
	})
	return m.loadErr
}

func (m *Manager) load(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanModelLoad)
	defer span.End()
	span.SetAttributes(
		attribute.String(observability.AttrBackend, m.cfg.Backend),
		attribute.String("model.source", m.cfg.Source),
	)

	m.log.Info("Loading speaker model", logger.Fields(
		"model", m.cfg.Name,
		"source", m.cfg.Source,
		"backend", m.cfg.Backend,
		"device", m.cfg.Device,
		"cache_dir", m.cfg.CacheDir,
	))

	start := time.Now()
	model, err := m.build(ctx, m.cfg, m.log)
	m.loadTime = time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.metrics.RecordModelLoad(ctx, m.cfg.Backend, m.device, "error")
		m.log.Error("Failed to load speaker model", logger.ErrorFields("load", err))
		return err
	}

	m.model = model
	m.device = model.Device()
	m.ready.Store(true)

	span.SetAttributes(attribute.String(observability.AttrDevice, m.device))
	m.metrics.RecordModelLoad(ctx, m.cfg.Backend, m.device, "success")
	m.log.Info("Speaker model loaded", logger.Fields(
		"device", m.device,
		"duration_ms", m.loadTime.Milliseconds(),
	))
	return nil
}

// IsReady reports whether a model is loaded.
func (m *Manager) IsReady() bool {
	return m.ready.Load()
}

// Model returns the loaded model, or false when none is loaded.
func (m *Manager) Model() (Model, bool) {
	if !m.ready.Load() {
		return nil, false
	}
	return m.model, true
}

// Device returns the inference device. Before a successful load it is the
// configured preference.
func (m *Manager) Device() string {
	if m.ready.Load() {
		return m.device
	}
	return m.cfg.ResolveDevice()
}

// LoadError returns the error of the load attempt, if any.
func (m *Manager) LoadError() error {
	if m.ready.Load() {
		return nil
	}
	return m.loadErr
}

// Config returns the model configuration with defaults applied.
func (m *Manager) Config() Config {
	return m.cfg
}

// Close releases the model. The manager stays unready afterwards.
func (m *Manager) Close() error {
	if !m.ready.CompareAndSwap(true, false) {
		return nil
	}
	return m.model.Close()
}
