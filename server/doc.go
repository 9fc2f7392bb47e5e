// Package server provides the HTTP server: Gin routing served over
// HTTP/1.1 and h2c, wrapped in a net/http middleware stack.
//
// # Middleware
//
// Applied at the handler level, outermost first (server/middleware):
//
//   - Recovery: panics become a 500 INTERNAL_ERROR JSON body
//   - RequestID: X-Request-Id generation and context propagation
//   - CORS: cross-origin headers and preflight
//   - BodySizeLimit: hard cap on the request body
//   - RequestLogger: one structured line per request, level by status
//
// # Endpoints
//
// Probe endpoints (server/endpoint): /livez, /readyz, /version, /metrics.
// Service routes are registered by the caller on GinEngine.
package server
