// Package scope provides structured-concurrency primitives: cancel scopes
// with optional deadlines, task groups that own the tasks they spawn, and
// timeout helpers built from both. Scopes nest, cancellation is cooperative
// and idempotent, and a group's Wait joins every spawned task before
// surfacing an aggregated error.
package scope
