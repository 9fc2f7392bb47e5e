package tempfile

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/speakerembed/component"
	"github.com/kbukum/speakerembed/logger"
)

const componentName = "tempfile"

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component sweeps leftovers of earlier runs at startup.
type Component struct {
	mgr *Manager
	cfg Config
	log *logger.Logger
}

// NewComponent wraps a Manager for lifecycle management.
func NewComponent(mgr *Manager, cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	return &Component{mgr: mgr, cfg: cfg, log: log.WithComponent(componentName)}
}

// Name returns the component name.
func (c *Component) Name() string { return componentName }

// Start removes stale files. A failed sweep is logged, not fatal.
func (c *Component) Start(_ context.Context) error {
	if _, err := c.mgr.Sweep(c.cfg.SweepOlderThan); err != nil {
		c.log.Warn("Startup sweep incomplete", logger.ErrorFields("sweep", err))
	}
	return nil
}

// Stop is a no-op; in-flight scopes release their own files.
func (c *Component) Stop(_ context.Context) error { return nil }

// Health checks that the temp directory still exists.
func (c *Component) Health(_ context.Context) component.Health {
	info, err := os.Stat(c.mgr.Dir())
	if err != nil || !info.IsDir() {
		msg := "temp dir missing"
		if err != nil {
			msg = err.Error()
		}
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: msg}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy}
}

// Describe returns the startup summary line.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Temp Files",
		Type:    "storage",
		Details: fmt.Sprintf("dir=%s sweep>%s", c.mgr.Dir(), c.cfg.SweepOlderThan),
	}
}
