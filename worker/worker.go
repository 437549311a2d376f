package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tavindev/hornet"
	"github.com/tavindev/hornet/id"
	"github.com/tavindev/hornet/job"
	"github.com/tavindev/hornet/middleware"
)

// Worker leases jobs from one queue and processes them with bounded
// concurrency. Multiple workers — in one process or many — may run against
// the same queue; the store's atomic lease operation guarantees no job is
// delivered to two of them.
type Worker struct {
	queue        string
	store        job.Store
	executor     *Executor
	concurrency  int64
	blockTimeout time.Duration
	workerID     id.WorkerID
	tokens       *id.TokenSource
	logger       *slog.Logger
	userMW       []middleware.Middleware

	sem *semaphore.Weighted

	stopCh     chan struct{}
	loopCancel context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
	closed     bool

	activeJobs map[string]context.CancelFunc
	activeMu   sync.Mutex
}

// Option configures a Worker.
type Option func(*Worker)

// WithConcurrency sets the number of simultaneous processing slots.
func WithConcurrency(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = int64(n)
		}
	}
}

// WithBlockTimeout sets how long each lease call blocks waiting for a job.
// Shorter values make Stop more responsive; longer values reduce store
// round trips on an idle queue. Non-positive values are ignored: the lease
// loop requires a bounded timeout to stay cancellable.
func WithBlockTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.blockTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

// WithMiddleware appends middleware to the execution chain. The built-in
// panic recovery and per-job timeout middleware always run outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(w *Worker) { w.userMW = append(w.userMW, mws...) }
}

// New creates a worker for the named queue. The handler receives each
// leased job; returning nil completes it, returning an error routes it
// through the retry protocol. A panicking handler is treated identically
// to one returning an error — it can never terminate the worker.
func New(queueName string, store job.Store, handler job.Handler, opts ...Option) *Worker {
	w := &Worker{
		queue:        queueName,
		store:        store,
		concurrency:  1,
		blockTimeout: 5 * time.Second,
		workerID:     id.NewWorkerID(),
		tokens:       id.NewTokenSource(),
		logger:       slog.Default(),
		stopCh:       make(chan struct{}),
		activeJobs:   make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(w)
	}

	mws := append([]middleware.Middleware{
		middleware.Recover(w.logger),
		middleware.Timeout(w.logger),
	}, w.userMW...)
	w.executor = NewExecutor(store, handler, w.logger, mws...)
	w.sem = semaphore.NewWeighted(w.concurrency)

	return w
}

// WorkerID returns the worker's unique identifier.
func (w *Worker) WorkerID() id.WorkerID { return w.workerID }

// Start launches the lease loop. It returns immediately.
// Returns hornet.ErrWorkerClosed after Stop.
func (w *Worker) Start(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return hornet.ErrWorkerClosed
	}
	if w.running {
		return nil
	}
	w.running = true

	loopCtx, cancel := context.WithCancel(context.Background())
	w.loopCancel = cancel

	w.logger.Info("worker starting",
		slog.String("worker_id", w.workerID.String()),
		slog.String("queue", w.queue),
		slog.Int64("concurrency", w.concurrency),
	)

	w.wg.Add(1)
	go w.leaseLoop(loopCtx)

	return nil
}

// Stop signals the worker to stop leasing and waits for in-flight jobs to
// finish. If the context has a deadline, the contexts of still-running
// handlers are cancelled when time runs out; handlers are never interrupted
// non-cooperatively.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.closed = true
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.closed = true
	w.mu.Unlock()

	w.logger.Info("worker stopping", slog.String("worker_id", w.workerID.String()))

	// Stop initiating new leases. Cancelling the loop context unblocks a
	// lease call waiting on the store.
	close(w.stopCh)
	w.loopCancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("worker stopped gracefully")
	case <-ctx.Done():
		w.logger.Warn("worker shutdown timed out, cancelling active jobs")
		w.cancelActiveJobs()
		w.wg.Wait()
	}

	return nil
}

// Run is a convenience for callers that want to own the loop: it starts
// the worker, blocks until ctx is cancelled, then stops with a fresh
// drain deadline.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return w.Stop(stopCtx)
}

// leaseLoop acquires a free slot, leases the next job, and dispatches it.
func (w *Worker) leaseLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		// A slot must be free before we lease, so a leased job is
		// dispatched immediately and never parked worker-side.
		if err := w.sem.Acquire(ctx, 1); err != nil {
			return
		}

		token := w.tokens.Next()
		j, err := w.store.LeaseNext(ctx, w.queue, token, w.blockTimeout)
		if err != nil {
			w.sem.Release(1)
			if ctx.Err() != nil {
				return
			}
			// Store unavailable: back off and retry the lease. Never
			// treat connectivity as a job failure.
			w.logger.Error("lease failed",
				slog.String("queue", w.queue),
				slog.String("error", err.Error()),
			)
			w.sleep(ctx)
			continue
		}
		if j == nil {
			w.sem.Release(1)
			continue
		}

		w.wg.Add(1)
		go w.process(j, token)
	}
}

// process runs one leased job in its own slot.
func (w *Worker) process(j *job.Job, token string) {
	defer w.wg.Done()
	defer w.sem.Release(1)

	// Handler contexts are independent of the lease loop's context so a
	// stopping worker drains in-flight jobs instead of aborting them.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.trackJob(j.ID, cancel)
	defer w.untrackJob(j.ID)

	if err := w.executor.Execute(ctx, j, token); err != nil {
		w.logger.Debug("job outcome not committed",
			slog.String("job_id", j.ID),
			slog.String("job_name", j.Name),
			slog.String("error", err.Error()),
		)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	timer := time.NewTimer(w.blockTimeout)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-w.stopCh:
	}
}

func (w *Worker) trackJob(jobID string, cancel context.CancelFunc) {
	w.activeMu.Lock()
	w.activeJobs[jobID] = cancel
	w.activeMu.Unlock()
}

func (w *Worker) untrackJob(jobID string) {
	w.activeMu.Lock()
	delete(w.activeJobs, jobID)
	w.activeMu.Unlock()
}

func (w *Worker) cancelActiveJobs() {
	w.activeMu.Lock()
	defer w.activeMu.Unlock()
	for jobID, cancel := range w.activeJobs {
		w.logger.Warn("cancelling active job", slog.String("job_id", jobID))
		cancel()
	}
}
