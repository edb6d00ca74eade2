// Package daemon coordinates the long-running workqd process.
//
// It wires configuration, queue storage, the background sweeper, and the HTTP
// API into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon exposes status aggregation and manual sweep triggers
// for the IPC control surface.
//
// Keep orchestration logic here: queue semantics live in internal/queue and
// reclaim cadence in internal/sweeper, while the daemon focuses on startup,
// shutdown, and coordination.
package daemon
