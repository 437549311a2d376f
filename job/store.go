package job

import (
	"context"
	"time"
)

// Store defines the atomic operations the engine needs from the backing
// store. Every multi-step state change is a single indivisible operation;
// implementations must never split one into separate read-then-write round
// trips, or two workers could lease the same job.
type Store interface {
	// Enqueue atomically assigns the next ID from the queue's counter,
	// writes the job record, and appends the ID to the waiting list.
	// Returns the assigned ID. The job is immediately visible to workers.
	Enqueue(ctx context.Context, queue string, j *Job) (string, error)

	// LeaseNext atomically pops the head of the waiting list, marks the
	// job active, records the lease token, and increments AttemptsMade.
	// Blocks up to block waiting for a job; returns (nil, nil) when none
	// appeared. A non-positive block means one non-blocking attempt —
	// implementations must never translate it into an unbounded wait.
	// The returned job has State == StateActive.
	LeaseNext(ctx context.Context, queue, token string, block time.Duration) (*Job, error)

	// Complete atomically moves an active job to completed and stores the
	// handler's return value. Returns hornet.ErrJobNotFound if the job is
	// not currently active, hornet.ErrLockMismatch if the lease is held
	// under a different token.
	Complete(ctx context.Context, queue, jobID, token string, returnValue []byte) error

	// FailOrRetry records the failure reason and atomically either
	// re-enqueues the job at the tail of the waiting list (attempts
	// remaining) or marks it failed (attempts exhausted). Same
	// precondition errors as Complete.
	FailOrRetry(ctx context.Context, queue, jobID, token string, cause error) (RetryOutcome, error)

	// GetJob reads a job record and derives its state from set membership.
	GetJob(ctx context.Context, queue, jobID string) (*Job, error)

	// Counts returns per-state totals for the queue.
	Counts(ctx context.Context, queue string) (Counts, error)

	// Pause diverts new jobs to the paused list and stops leases from the
	// waiting list until Resume.
	Pause(ctx context.Context, queue string) error

	// Resume moves paused jobs back into the waiting list and re-enables
	// leasing.
	Resume(ctx context.Context, queue string) error
}
