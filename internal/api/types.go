package api

// PutRequest appends payloads to a queue. Payloads are opaque text blobs;
// the core never inspects them.
type PutRequest struct {
	Payloads []string `json:"payloads"`
}

// PutResponse reports the number of items appended.
type PutResponse struct {
	Count int `json:"count"`
}

// ClaimRequest asks for up to Limit items under a new lease. WithAck false
// auto-acknowledges the lease before the response is sent.
type ClaimRequest struct {
	Limit   int  `json:"limit"`
	WithAck bool `json:"with_ack"`
}

// ClaimResponse carries the lease id and claimed payloads in selection order.
type ClaimResponse struct {
	LeaseID  int64    `json:"lease_id"`
	Payloads []string `json:"payloads"`
}

// AckRequest confirms a lease; DeleteItems additionally removes the lease and
// its items instead of keeping a completion record.
type AckRequest struct {
	LeaseID     int64 `json:"lease_id"`
	DeleteItems bool  `json:"delete_items"`
}

// AckResponse reports whether this call won the acknowledge transition.
type AckResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

// AbandonRequest releases a still-pending lease.
type AbandonRequest struct {
	LeaseID int64 `json:"lease_id"`
}

// AbandonResponse reports whether a pending lease was found and removed.
type AbandonResponse struct {
	Abandoned bool `json:"abandoned"`
}

// SweepResponse reports one reclaim plus collect pass over a queue.
type SweepResponse struct {
	Reclaimed int64 `json:"reclaimed"`
	Collected int64 `json:"collected"`
}

// QueueStats is the transport representation of one queue's depth counters.
type QueueStats struct {
	Name          string `json:"name"`
	Unclaimed     int64  `json:"unclaimed"`
	Leased        int64  `json:"leased"`
	Acknowledged  int64  `json:"acknowledged"`
	PendingLeases int64  `json:"pending_leases"`
	DoneLeases    int64  `json:"done_leases"`
}

// StatusResponse represents combined daemon and store status information.
type StatusResponse struct {
	Running  bool         `json:"running"`
	Backend  string       `json:"backend"`
	DBPath   string       `json:"db_path,omitempty"`
	LockPath string       `json:"lock_path,omitempty"`
	PID      int          `json:"pid"`
	Queues   []QueueStats `json:"queues"`
}

// ErrorResponse is the JSON error envelope for the HTTP API.
type ErrorResponse struct {
	Error string `json:"error"`
}
