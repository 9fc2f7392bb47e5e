// Package component defines lifecycle-managed parts of the service.
//
// A Component is started once during bootstrap, reports health while the
// process runs, and is stopped in reverse start order on shutdown. The
// model manager and the HTTP server are both components.
package component
