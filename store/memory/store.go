// Package memory implements the job and event store contracts fully
// in-process. It mirrors the Redis store's semantics — FIFO waiting list,
// per-queue ID counter, lease tokens, atomic transitions — with a mutex in
// place of server-side scripts. Intended for unit testing and development;
// it is not wire-compatible with anything and persists nothing.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/tavindev/hornet"
	"github.com/tavindev/hornet/event"
	"github.com/tavindev/hornet/job"
)

// Compile-time interface checks.
var (
	_ job.Store   = (*Store)(nil)
	_ event.Store = (*Store)(nil)
)

// queueState holds everything for one named queue.
type queueState struct {
	counter int64

	wait     []string // head at index 0
	paused   []string
	isPaused bool

	active map[string]string // jobID → lease token

	completed []string
	failed    []string

	jobs   map[string]*job.Job
	events []*event.Event

	// changed is closed and replaced on every mutation, waking all
	// blocked LeaseNext and NextEvents callers.
	changed chan struct{}
}

// Store is a fully in-memory job.Store and event.Store.
// Safe for concurrent access.
type Store struct {
	mu     sync.Mutex
	queues map[string]*queueState
}

// New returns a new empty Store.
func New() *Store {
	return &Store{queues: make(map[string]*queueState)}
}

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close(_ context.Context) error { return nil }

func (m *Store) queue(name string) *queueState {
	qs, ok := m.queues[name]
	if !ok {
		qs = &queueState{
			active:  make(map[string]string),
			jobs:    make(map[string]*job.Job),
			changed: make(chan struct{}),
		}
		m.queues[name] = qs
	}
	return qs
}

// touch wakes every caller blocked on this queue.
func (qs *queueState) touch() {
	close(qs.changed)
	qs.changed = make(chan struct{})
}

func (qs *queueState) emit(evt event.Event) {
	evt.Timestamp = time.Now().UTC()
	qs.events = append(qs.events, &evt)
}

// ──────────────────────────────────────────────────
// job.Store
// ──────────────────────────────────────────────────

// Enqueue assigns the next counter ID, records the job, and appends it to
// the waiting list (or the paused list while the queue is paused).
func (m *Store) Enqueue(_ context.Context, queue string, j *job.Job) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	qs := m.queue(queue)
	qs.counter++
	jobID := strconv.FormatInt(qs.counter, 10)

	cp := *j
	cp.ID = jobID
	cp.Queue = queue
	cp.State = job.StateWaiting
	if cp.MaxAttempts <= 0 {
		cp.MaxAttempts = 1
	}
	if cp.Timestamp.IsZero() {
		cp.Timestamp = time.Now().UTC()
	}
	qs.jobs[jobID] = &cp

	if qs.isPaused {
		qs.paused = append(qs.paused, jobID)
	} else {
		qs.wait = append(qs.wait, jobID)
	}
	qs.emit(event.Event{JobID: jobID, To: job.StateWaiting})
	qs.touch()

	return jobID, nil
}

// LeaseNext pops the head of the waiting list and marks it active,
// blocking up to block for a job to appear.
func (m *Store) LeaseNext(ctx context.Context, queue, token string, block time.Duration) (*job.Job, error) {
	deadline := time.Now().Add(block)

	for {
		m.mu.Lock()
		qs := m.queue(queue)

		if len(qs.wait) > 0 {
			jobID := qs.wait[0]
			qs.wait = qs.wait[1:]

			j := qs.jobs[jobID]
			j.State = job.StateActive
			j.AttemptsMade++
			now := time.Now().UTC()
			j.ProcessedOn = &now
			qs.active[jobID] = token
			qs.emit(event.Event{JobID: jobID, From: job.StateWaiting, To: job.StateActive})
			qs.touch()

			cp := *j
			m.mu.Unlock()
			return &cp, nil
		}

		wake := qs.changed
		m.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-wake:
			timer.Stop()
		}
	}
}

// checkLease validates the transition preconditions shared by Complete and
// FailOrRetry. Caller holds the mutex.
func (qs *queueState) checkLease(jobID, token string) error {
	if _, ok := qs.jobs[jobID]; !ok {
		return hornet.ErrJobNotFound
	}
	held, ok := qs.active[jobID]
	if !ok {
		return hornet.ErrJobNotFound
	}
	if held != token {
		return hornet.ErrLockMismatch
	}
	return nil
}

// Complete moves an active job to completed.
func (m *Store) Complete(_ context.Context, queue, jobID, token string, returnValue []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	qs := m.queue(queue)
	if err := qs.checkLease(jobID, token); err != nil {
		return err
	}

	delete(qs.active, jobID)
	j := qs.jobs[jobID]
	j.State = job.StateCompleted
	now := time.Now().UTC()
	j.FinishedOn = &now
	j.ReturnValue = returnValue
	qs.completed = append(qs.completed, jobID)
	qs.emit(event.Event{JobID: jobID, From: job.StateActive, To: job.StateCompleted})
	qs.touch()
	return nil
}

// FailOrRetry records the failure and either re-enqueues the job at the
// tail of the waiting list or marks it terminally failed.
func (m *Store) FailOrRetry(_ context.Context, queue, jobID, token string, cause error) (job.RetryOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	qs := m.queue(queue)
	if err := qs.checkLease(jobID, token); err != nil {
		return 0, err
	}

	delete(qs.active, jobID)
	j := qs.jobs[jobID]
	if cause != nil {
		j.FailedReason = cause.Error()
	}

	if j.AttemptsMade < j.MaxAttempts {
		j.State = job.StateWaiting
		if qs.isPaused {
			qs.paused = append(qs.paused, jobID)
		} else {
			qs.wait = append(qs.wait, jobID)
		}
		qs.emit(event.Event{JobID: jobID, From: job.StateActive, To: job.StateWaiting, FailedReason: j.FailedReason})
		qs.touch()
		return job.Retried, nil
	}

	j.State = job.StateFailed
	now := time.Now().UTC()
	j.FinishedOn = &now
	qs.failed = append(qs.failed, jobID)
	qs.emit(event.Event{JobID: jobID, From: job.StateActive, To: job.StateFailed, FailedReason: j.FailedReason})
	qs.touch()
	return job.ExhaustedRetries, nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, queue, jobID string) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	qs := m.queue(queue)
	j, ok := qs.jobs[jobID]
	if !ok {
		return nil, hornet.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// Counts returns per-state totals for the queue.
func (m *Store) Counts(_ context.Context, queue string) (job.Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	qs := m.queue(queue)
	return job.Counts{
		Waiting:   int64(len(qs.wait)),
		Active:    int64(len(qs.active)),
		Completed: int64(len(qs.completed)),
		Failed:    int64(len(qs.failed)),
		Paused:    int64(len(qs.paused)),
	}, nil
}

// Pause diverts new jobs to the paused list and moves the waiting backlog
// there so no further leases succeed.
func (m *Store) Pause(_ context.Context, queue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	qs := m.queue(queue)
	qs.isPaused = true
	qs.paused = append(qs.paused, qs.wait...)
	qs.wait = nil
	return nil
}

// Resume folds the paused backlog back into the waiting list, preserving
// order, and re-enables leasing.
func (m *Store) Resume(_ context.Context, queue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	qs := m.queue(queue)
	qs.isPaused = false
	qs.wait = append(qs.paused, qs.wait...)
	qs.paused = nil
	qs.touch()
	return nil
}

// ──────────────────────────────────────────────────
// event.Store
// ──────────────────────────────────────────────────

// PublishEvent appends an event to the queue's in-memory stream.
func (m *Store) PublishEvent(_ context.Context, queue string, evt *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	qs := m.queue(queue)
	cp := *evt
	if cp.Timestamp.IsZero() {
		cp.Timestamp = time.Now().UTC()
	}
	qs.events = append(qs.events, &cp)
	qs.touch()
	return nil
}

// NextEvents returns events appended after cursor, blocking up to block.
// The cursor is the stream offset; empty means "from now on".
func (m *Store) NextEvents(ctx context.Context, queue, cursor string, block time.Duration) ([]*event.Event, string, error) {
	deadline := time.Now().Add(block)

	m.mu.Lock()
	qs := m.queue(queue)
	idx := len(qs.events)
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err == nil && parsed >= 0 {
			idx = parsed
		}
	}
	m.mu.Unlock()

	for {
		m.mu.Lock()
		qs = m.queue(queue)
		if idx < len(qs.events) {
			batch := make([]*event.Event, 0, len(qs.events)-idx)
			for _, evt := range qs.events[idx:] {
				cp := *evt
				batch = append(batch, &cp)
			}
			next := strconv.Itoa(len(qs.events))
			m.mu.Unlock()
			return batch, next, nil
		}
		wake := qs.changed
		m.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, strconv.Itoa(idx), nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, strconv.Itoa(idx), ctx.Err()
		case <-timer.C:
			return nil, strconv.Itoa(idx), nil
		case <-wake:
			timer.Stop()
		}
	}
}
