package policy

import "time"

// Evictor chooses which key to drop when a bounded store is full and no
// entry has expired. Implementations receive the live keys with their
// deadlines (window expiry for dedupe, window end for rate limiting). Victim
// choice only affects suppression quality, never correctness.
type Evictor interface {
	Victim(deadlines map[string]time.Time) string
}

// SoonestDeadline evicts the entry closest to expiring, the default policy
// for both stores.
type SoonestDeadline struct{}

// Victim implements Evictor.
func (SoonestDeadline) Victim(deadlines map[string]time.Time) string {
	var victim string
	var soonest time.Time
	for k, d := range deadlines {
		if victim == "" || d.Before(soonest) {
			victim, soonest = k, d
		}
	}
	return victim
}
