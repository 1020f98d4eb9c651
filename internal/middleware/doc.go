// Package middleware provides HTTP middleware for the metrics listener.
//
// Logger writes one line per request through the application logger, with
// user-controlled fields stripped of control characters. Prometheus scrapes
// and health checks are only logged at debug level.
package middleware
