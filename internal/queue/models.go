package queue

// LeaseStatus enumerates the lease state machine. A lease is created pending
// and transitions to acknowledged exactly once.
type LeaseStatus string

const (
	// StatusPending marks a lease whose items are claimed but not yet confirmed.
	StatusPending LeaseStatus = "pending"
	// StatusAcknowledged marks a lease whose items were confirmed processed.
	StatusAcknowledged LeaseStatus = "acknowledged"
)

// Claim is the result of a successful claim call: the lease identifier and
// the claimed payloads in selection order. LeaseID is valid even when
// Payloads is empty; an empty claim is auto-acknowledged before it returns.
type Claim struct {
	LeaseID  int64
	Payloads [][]byte
}

// Stats aggregates queue depth counters for status output.
type Stats struct {
	Unclaimed     int64 `json:"unclaimed"`
	Leased        int64 `json:"leased"`
	Acknowledged  int64 `json:"acknowledged"`
	PendingLeases int64 `json:"pending_leases"`
	DoneLeases    int64 `json:"done_leases"`
}

// TotalItems returns the number of item rows currently stored.
func (s Stats) TotalItems() int64 {
	return s.Unclaimed + s.Leased + s.Acknowledged
}
