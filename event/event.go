// Package event exposes job lifecycle transitions to external observers.
//
// Every transition (waiting→active, active→completed, active→waiting on
// retry, active→failed) is appended to a queue-scoped stream by the same
// atomic operation that performs the transition, so observers see events
// in commit order. Delivery to observers is at-most-once and best-effort:
// the job records in the store remain the source of truth.
package event

import (
	"time"

	"github.com/tavindev/hornet/job"
)

// Wire names for lifecycle events, matching the reference protocol.
const (
	NameAdded     = "added"     // job entered the waiting list
	NameActive    = "active"    // lease taken, waiting → active
	NameCompleted = "completed" // active → completed
	NameFailed    = "failed"    // active → failed, attempts exhausted
	NameWaiting   = "waiting"   // active → waiting, retry
)

// Event records one lifecycle transition of one job.
type Event struct {
	JobID     string    `json:"job_id"`
	From      job.State `json:"from_status,omitempty"` // empty for "added"
	To        job.State `json:"to_status"`
	Timestamp time.Time `json:"timestamp"`

	// FailedReason accompanies failed and retry transitions.
	FailedReason string `json:"failed_reason,omitempty"`
}

// Name returns the event's wire name, derived from the transition edge.
func (e Event) Name() string {
	switch e.To {
	case job.StateActive:
		return NameActive
	case job.StateCompleted:
		return NameCompleted
	case job.StateFailed:
		return NameFailed
	case job.StateWaiting:
		if e.From == job.StateActive {
			return NameWaiting
		}
		return NameAdded
	default:
		return string(e.To)
	}
}
