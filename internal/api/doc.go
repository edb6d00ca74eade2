// Package api defines wire-format types for the HTTP and IPC surfaces and
// the QueueService facade both surfaces share. DTOs use snake_case JSON tags;
// payloads cross the wire as strings because the core treats them as opaque
// blobs either way.
package api
