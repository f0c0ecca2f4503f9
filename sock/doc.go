// Package sock provides buffered byte-stream and datagram endpoints with
// context-aware I/O. Stream wraps a connected socket and adds exact-length
// reads, delimiter-framed reads with non-destructive scanning, full-payload
// writes, and deferred TLS upgrade. Factory helpers dial, listen and bind
// the usual address families; Listener.Serve spawns one task per accepted
// connection into a structured task group.
//
// Every blocking operation takes a context and returns once the context
// unwinds, making the endpoints safe to use under cancel scopes and the
// timeout helpers of package scope.
package sock
