package hornet

import "errors"

var (
	// ErrJobNotFound means a transition precondition failed: the job does
	// not exist or is no longer in the state the operation requires.
	// Under concurrency this is an expected outcome, not a fault — another
	// actor already completed, failed, or retried the job.
	ErrJobNotFound = errors.New("hornet: job not found")

	// ErrMalformedJob means the store holds a job record this version
	// cannot decode (required fields missing or of the wrong shape).
	ErrMalformedJob = errors.New("hornet: malformed job record")

	// ErrLockMismatch means the job's lease is held by a different worker
	// token. The caller's lease is stale; the operation was a no-op.
	ErrLockMismatch = errors.New("hornet: job lock held by another worker")

	// ErrWorkerClosed is returned when starting a worker that has already
	// been stopped.
	ErrWorkerClosed = errors.New("hornet: worker closed")
)
