// Package breaker implements a circuit breaker guarding the upstream API
// client. After repeated failures it stops issuing requests and reports an
// "open" state distinct from ordinary request errors, so callers can branch
// on a value instead of catching a specific failure.
//
// State lives behind the StateStore interface: the in-memory store serves a
// single process, the Redis store shares breaker state across processes that
// hit the same upstream.
package breaker

import (
	"time"
)

// State is the breaker state.
type State string

const (
	// StateClosed allows requests; failures are counted.
	StateClosed State = "closed"

	// StateOpen denies requests until the cooldown elapses.
	StateOpen State = "open"

	// StateHalfOpen allows a probe request after the cooldown; its
	// outcome decides between closed and open.
	StateHalfOpen State = "half_open"
)

// Snapshot is the persisted breaker state.
type Snapshot struct {
	State    State     `json:"state"`
	Failures int       `json:"failures"`
	OpenedAt time.Time `json:"opened_at"`
}

// defaultSnapshot is the healthy state assumed when no state is stored yet.
func defaultSnapshot() Snapshot {
	return Snapshot{State: StateClosed}
}

// RemainingCooldown returns how long the breaker stays open from now, given
// the configured cooldown. Zero when the cooldown has elapsed or the breaker
// is not open.
func (s Snapshot) RemainingCooldown(cooldown time.Duration, now time.Time) time.Duration {
	if s.State != StateOpen {
		return 0
	}
	remaining := s.OpenedAt.Add(cooldown).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// stateGaugeValue maps states to the chembl_breaker_state gauge.
func stateGaugeValue(s State) float64 {
	switch s {
	case StateHalfOpen:
		return 1
	case StateOpen:
		return 2
	default:
		return 0
	}
}
