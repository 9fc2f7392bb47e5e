// Package errors provides the service's structured error type.
//
// Every pipeline stage returns an *AppError carrying a machine-readable code
// and the HTTP status it maps to; the request boundary is the only place that
// turns it into a response body.
package errors
