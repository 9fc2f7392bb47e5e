package server

import (
	"sort"
	"strings"

	"github.com/kbukum/speakerembed/bootstrap"
)

// systemPaths are the probe and info routes labeled in the startup summary.
var systemPaths = map[string]bool{
	"/health":  true,
	"/info":    true,
	"/livez":   true,
	"/readyz":  true,
	"/version": true,
	"/metrics": true,
}

// TrackRoutes adds every registered Gin route to the bootstrap summary.
// Call this after all routes are registered.
func (s *Server) TrackRoutes(summary *bootstrap.Summary) {
	routes := s.engine.Routes()

	// API routes first (by path), then system routes.
	sort.Slice(routes, func(i, j int) bool {
		iSys := systemPaths[routes[i].Path]
		jSys := systemPaths[routes[j].Path]
		if iSys != jSys {
			return !iSys
		}
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return methodOrder(routes[i].Method) < methodOrder(routes[j].Method)
	})

	for _, r := range routes {
		handler := formatHandlerName(r.Handler)
		if systemPaths[r.Path] {
			handler += " ⚙️"
		}
		summary.TrackRoute(r.Method, r.Path, handler)
	}
}

// formatHandlerName turns Gin's handler path, such as
// "github.com/kbukum/speakerembed/api.(*Handler).Extract-fm", into "Handler.Extract".
func formatHandlerName(fullPath string) string {
	name := strings.TrimSuffix(fullPath, "-fm")

	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}

	name = strings.ReplaceAll(name, "(*", "")
	name = strings.ReplaceAll(name, ")", "")

	// Closures: "endpoint.Liveness.func1" → "liveness"
	if strings.Contains(name, ".func") {
		parts := strings.Split(name, ".")
		for i := len(parts) - 1; i >= 0; i-- {
			if !strings.HasPrefix(parts[i], "func") {
				return strings.ToLower(parts[i])
			}
		}
	}

	// Drop a lowercase package prefix: "api.Handler.Extract" → "Handler.Extract"
	parts := strings.SplitN(name, ".", 2)
	if len(parts) == 2 && parts[0] == strings.ToLower(parts[0]) && parts[1] != "" {
		name = parts[1]
	}
	return name
}

// methodOrder returns a sort key for HTTP methods (GET first).
func methodOrder(method string) int {
	switch method {
	case "GET":
		return 0
	case "POST":
		return 1
	case "PUT":
		return 2
	case "PATCH":
		return 3
	case "DELETE":
		return 4
	default:
		return 5
	}
}
