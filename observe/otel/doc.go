// Package otel is the observer plug point for OpenTelemetry span events
// (spawn, cancel, join, error, panic). Only the no-op shape ships here, so
// the core stays free of tracing dependencies.
package otel
