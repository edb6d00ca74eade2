// Package queue implements the durable work queue core: the claim, lease,
// acknowledge protocol over a transactional SQL store.
//
// A Store owns the database connection and the dialect for the configured
// backend (SQLite or PostgreSQL). A Catalog resolves queue names to handles,
// provisioning the two backing tables for a queue on first use. A Queue handle
// exposes the protocol operations: Put, Claim, Acknowledge, Abandon,
// ReclaimExpired, and CollectAcknowledged.
//
// Every item moves through a small state machine. It is inserted unclaimed,
// bound to a pending lease by Claim, and either freed again (the lease is
// abandoned or reclaimed after its age exceeds a threshold) or retired (the
// lease is acknowledged and the item garbage-collected). Two concurrent Claim
// calls never return overlapping items; expected races such as a double
// acknowledge surface as a false result, never as an error.
//
// Treat this package as the single source of truth for queue semantics; no
// caller mutates an item's lease reference or a lease's status directly.
package queue
