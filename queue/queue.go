package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tavindev/hornet/id"
	"github.com/tavindev/hornet/job"
)

// Queue is a producer handle for one named queue. Safe for concurrent use.
type Queue struct {
	name       string
	store      job.Store
	logger     *slog.Logger
	producerID id.ProducerID
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) { q.logger = logger }
}

// New creates a producer handle for the named queue. The store is shared,
// caller-owned; multiple queues and workers may use the same one.
func New(name string, store job.Store, opts ...Option) *Queue {
	q := &Queue{
		name:       name,
		store:      store,
		logger:     slog.Default(),
		producerID: id.NewProducerID(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Add enqueues a job. The payload is JSON-marshalled unless it is already
// raw bytes ([]byte or json.RawMessage). Returns the store-assigned job ID,
// usable to query status from any process.
func (q *Queue) Add(ctx context.Context, jobName string, payload any, opts ...job.Option) (string, error) {
	data, err := marshalPayload(payload)
	if err != nil {
		return "", fmt.Errorf("queue %s: marshal payload for job %q: %w", q.name, jobName, err)
	}

	o := job.DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	j := &job.Job{
		Name:        jobName,
		Queue:       q.name,
		Payload:     data,
		State:       job.StateWaiting,
		MaxAttempts: o.Attempts,
		Timeout:     o.Timeout,
		Timestamp:   time.Now().UTC(),
	}

	jobID, err := q.store.Enqueue(ctx, q.name, j)
	if err != nil {
		return "", err
	}

	q.logger.Debug("job enqueued",
		slog.String("queue", q.name),
		slog.String("job_id", jobID),
		slog.String("job_name", jobName),
		slog.Int("max_attempts", o.Attempts),
	)
	return jobID, nil
}

// AddDefinition enqueues a typed payload under the definition's name,
// applying the definition's default options first; explicit opts override
// them. Like job.RegisterDefinition, this is a package-level generic
// function because Go does not allow generic methods on non-generic
// receiver types.
func AddDefinition[T any](ctx context.Context, q *Queue, def *job.Definition[T], payload T, opts ...job.Option) (string, error) {
	defaults := []job.Option{
		job.WithAttempts(def.Opts.Attempts),
		job.WithTimeout(def.Opts.Timeout),
	}
	return q.Add(ctx, def.Name, payload, append(defaults, opts...)...)
}

// Job reads a job record and its current state by ID.
func (q *Queue) Job(ctx context.Context, jobID string) (*job.Job, error) {
	return q.store.GetJob(ctx, q.name, jobID)
}

// Counts returns per-state job totals for this queue.
func (q *Queue) Counts(ctx context.Context) (job.Counts, error) {
	return q.store.Counts(ctx, q.name)
}

// Pause diverts new jobs to the paused list and stops workers from leasing
// until Resume. Jobs already active finish normally.
func (q *Queue) Pause(ctx context.Context) error {
	return q.store.Pause(ctx, q.name)
}

// Resume moves the paused backlog back into the waiting list and re-enables
// leasing.
func (q *Queue) Resume(ctx context.Context) error {
	return q.store.Resume(ctx, q.name)
}

func marshalPayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	default:
		return json.Marshal(payload)
	}
}
