package api

import "workq/internal/queue"

// FromClaim converts a protocol claim result into its transport form.
func FromClaim(claim *queue.Claim) ClaimResponse {
	resp := ClaimResponse{LeaseID: claim.LeaseID, Payloads: []string{}}
	for _, payload := range claim.Payloads {
		resp.Payloads = append(resp.Payloads, string(payload))
	}
	return resp
}

// FromStats converts queue depth counters into their transport form.
func FromStats(name string, stats queue.Stats) QueueStats {
	return QueueStats{
		Name:          name,
		Unclaimed:     stats.Unclaimed,
		Leased:        stats.Leased,
		Acknowledged:  stats.Acknowledged,
		PendingLeases: stats.PendingLeases,
		DoneLeases:    stats.DoneLeases,
	}
}
