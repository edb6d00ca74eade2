package ipc

// QueueStats mirrors the per-queue counters reported over the control socket.
type QueueStats struct {
	Name          string `json:"name"`
	Unclaimed     int64  `json:"unclaimed"`
	Leased        int64  `json:"leased"`
	Acknowledged  int64  `json:"acknowledged"`
	PendingLeases int64  `json:"pending_leases"`
	DoneLeases    int64  `json:"done_leases"`
}

// StatusRequest asks the daemon for its current state.
type StatusRequest struct{}

// StatusResponse reports daemon and store state.
type StatusResponse struct {
	Running  bool         `json:"running"`
	Backend  string       `json:"backend"`
	DBPath   string       `json:"db_path"`
	LockPath string       `json:"lock_path"`
	PID      int          `json:"pid"`
	Queues   []QueueStats `json:"queues"`
}

// SweepNowRequest triggers an immediate sweep pass.
type SweepNowRequest struct{}

// SweepNowResponse reports the outcome of a manual sweep.
type SweepNowResponse struct {
	Reclaimed int64 `json:"reclaimed"`
	Collected int64 `json:"collected"`
}

// StopRequest asks the daemon to shut down.
type StopRequest struct{}

// StopResponse acknowledges a stop request.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}
