package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/speakerembed/component"
)

// RouteInfo represents a registered HTTP route.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// Summary collects and prints the startup overview.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	out             io.Writer

	mu     sync.Mutex
	routes []RouteInfo
}

// NewSummary creates a new bootstrap summary tracker.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{
		serviceName: serviceName,
		version:     version,
		out:         os.Stdout,
	}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackRoute records an HTTP route for display.
func (s *Summary) TrackRoute(method, path, handler string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, RouteInfo{Method: method, Path: path, Handler: handler})
}

// Routes returns the tracked routes.
func (s *Summary) Routes() []RouteInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RouteInfo(nil), s.routes...)
}

// Display prints components with live health and the tracked routes.
func (s *Summary) Display(ctx context.Context, registry *component.Registry) {
	w := s.out
	fmt.Fprintf(w, "\n%s v%s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	if registry != nil {
		comps := registry.All()
		health := registry.HealthAll(ctx)
		fmt.Fprintf(w, "\nComponents\n")
		if len(comps) == 0 {
			fmt.Fprintf(w, "   └── No components registered\n")
		}
		for i, c := range comps {
			name, details := c.Name(), ""
			if d, ok := c.(component.Describable); ok {
				desc := d.Describe()
				if desc.Name != "" {
					name = desc.Name
				}
				details = desc.Details
				if desc.Port > 0 {
					details = fmt.Sprintf("%s (:%d)", details, desc.Port)
				}
			}
			line := fmt.Sprintf("%s %s", healthStatusIcon(health[i].Status), name)
			if details != "" {
				line += ": " + details
			}
			if health[i].Message != "" && health[i].Status != component.StatusHealthy {
				line += " [" + health[i].Message + "]"
			}
			fmt.Fprintf(w, "   %s %s\n", treePrefix(i, len(comps)), line)
		}
	}

	routes := s.Routes()
	if len(routes) > 0 {
		fmt.Fprintf(w, "\nRoutes (%d)\n", len(routes))
		for i, r := range routes {
			fmt.Fprintf(w, "   %s %-7s %s → %s\n", treePrefix(i, len(routes)), r.Method, r.Path, r.Handler)
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", 40))
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
