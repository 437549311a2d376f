package job

import (
	"encoding/json"
	"fmt"
	"time"
)

// State represents the lifecycle state of a job.
type State string

const (
	// StateWaiting means the job is in the queue's waiting list.
	StateWaiting State = "waiting"
	// StateActive means a worker holds a lease and is executing the job.
	StateActive State = "active"
	// StateCompleted means the job finished successfully.
	StateCompleted State = "completed"
	// StateFailed means the job exhausted its attempts and will not run again.
	StateFailed State = "failed"
)

// Job represents a unit of work to be processed by a worker.
//
// IDs are assigned by the store from a per-queue monotonic counter, so
// waiting-list order matches enqueue order. Payload is opaque JSON; the
// engine never interprets it.
type Job struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Queue   string `json:"queue"`
	Payload []byte `json:"payload"`
	State   State  `json:"state"`

	// AttemptsMade counts leases of this job. It is incremented exactly
	// once per lease, by the lease script, and never exceeds MaxAttempts.
	AttemptsMade int `json:"attempts_made"`
	// MaxAttempts is fixed at creation. 1 means no retry.
	MaxAttempts int `json:"max_attempts"`

	// FailedReason holds the most recent failure; overwritten on every
	// failed attempt, never cleared.
	FailedReason string `json:"failed_reason,omitempty"`
	// ReturnValue is the handler's serialized result, set on completion.
	ReturnValue []byte `json:"return_value,omitempty"`

	// Timeout bounds a single handler invocation. Zero means unlimited.
	Timeout time.Duration `json:"timeout,omitempty"`

	Timestamp   time.Time  `json:"timestamp"`
	ProcessedOn *time.Time `json:"processed_on,omitempty"`
	FinishedOn  *time.Time `json:"finished_on,omitempty"`
}

// DecodePayload unmarshals the job's JSON payload into v.
func (j *Job) DecodePayload(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("job %s: decode payload: %w", j.ID, err)
	}
	return nil
}

// RetryOutcome reports what FailOrRetry decided for a failed attempt.
type RetryOutcome int

const (
	// Retried means attempts remained and the job went back to waiting.
	Retried RetryOutcome = iota
	// ExhaustedRetries means the job is terminally failed.
	ExhaustedRetries
)

// String returns a human-readable outcome name.
func (o RetryOutcome) String() string {
	switch o {
	case Retried:
		return "retried"
	case ExhaustedRetries:
		return "exhausted_retries"
	default:
		return "unknown"
	}
}

// Counts holds per-state job totals for one queue.
type Counts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Paused    int64 `json:"paused"`
}
