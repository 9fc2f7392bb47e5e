package speaker

import (
	"context"
	"fmt"

	"github.com/kbukum/speakerembed/component"
)

const componentName = "speaker-model"

var (
	_ component.Component   = (*Manager)(nil)
	_ component.Describable = (*Manager)(nil)
)

// Name returns the component name.
func (m *Manager) Name() string { return componentName }

// Start loads the model. A load failure is recorded and reported through
// Health; the service keeps running without a model.
func (m *Manager) Start(ctx context.Context) error {
	_ = m.Load(ctx)
	return nil
}

// Stop closes the model.
func (m *Manager) Stop(_ context.Context) error {
	return m.Close()
}

// Health reports whether the model is loaded.
func (m *Manager) Health(_ context.Context) component.Health {
	if m.IsReady() {
		return component.Health{Name: componentName, Status: component.StatusHealthy}
	}
	msg := "model not loaded"
	if err := m.LoadError(); err != nil {
		msg = err.Error()
	}
	return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: msg}
}

// Describe returns the startup summary line.
func (m *Manager) Describe() component.Description {
	return component.Description{
		Name:    "Speaker Model",
		Type:    "model",
		Details: fmt.Sprintf("%s backend=%s device=%s", m.cfg.Name, m.cfg.Backend, m.Device()),
	}
}
