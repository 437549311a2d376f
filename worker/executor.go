// Package worker provides the job execution engine — an Executor that
// invokes the handler through middleware and drives the completion/retry
// protocol, and a Worker that manages concurrent lease-and-process slots.
package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tavindev/hornet"
	"github.com/tavindev/hornet/job"
	"github.com/tavindev/hornet/middleware"
)

// Executor runs a single leased job through middleware and the handler,
// then commits the outcome: complete on success, fail-or-retry on error.
type Executor struct {
	store   job.Store
	handler job.Handler
	mw      middleware.Middleware
	logger  *slog.Logger
}

// NewExecutor creates an Executor. The middleware chain is applied
// outermost-first around the handler on every attempt.
func NewExecutor(store job.Store, handler job.Handler, logger *slog.Logger, mws ...middleware.Middleware) *Executor {
	return &Executor{
		store:   store,
		handler: handler,
		mw:      middleware.Chain(mws...),
		logger:  logger,
	}
}

// Execute runs one processing attempt for a leased job.
//
// On handler success the job is completed; on handler error it is routed
// through FailOrRetry. Losing a transition race (the job was already
// completed, failed, or retried by another actor) is an expected outcome
// under concurrency and is logged, not returned. Only store failures
// propagate to the caller.
func (e *Executor) Execute(ctx context.Context, j *job.Job, token string) error {
	terminal := func(ctx context.Context) error {
		return e.handler(ctx, j)
	}

	err := e.mw(ctx, j, terminal)
	if err != nil {
		return e.commitFailure(ctx, j, token, err)
	}
	return e.commitSuccess(ctx, j, token)
}

func (e *Executor) commitSuccess(ctx context.Context, j *job.Job, token string) error {
	err := e.store.Complete(ctx, j.Queue, j.ID, token, j.ReturnValue)
	if err == nil {
		return nil
	}
	if errors.Is(err, hornet.ErrJobNotFound) || errors.Is(err, hornet.ErrLockMismatch) {
		e.logger.Warn("job already transitioned by another actor",
			slog.String("job_id", j.ID),
			slog.String("job_name", j.Name),
			slog.String("detail", err.Error()),
		)
		return nil
	}
	e.logger.Error("failed to complete job",
		slog.String("job_id", j.ID),
		slog.String("error", err.Error()),
	)
	return err
}

func (e *Executor) commitFailure(ctx context.Context, j *job.Job, token string, handlerErr error) error {
	outcome, err := e.store.FailOrRetry(ctx, j.Queue, j.ID, token, handlerErr)
	if err != nil {
		if errors.Is(err, hornet.ErrJobNotFound) || errors.Is(err, hornet.ErrLockMismatch) {
			e.logger.Warn("job already transitioned by another actor",
				slog.String("job_id", j.ID),
				slog.String("job_name", j.Name),
				slog.String("detail", err.Error()),
			)
			return nil
		}
		e.logger.Error("failed to record job failure",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		return err
	}

	switch outcome {
	case job.Retried:
		e.logger.Info("job re-enqueued for retry",
			slog.String("job_id", j.ID),
			slog.String("job_name", j.Name),
			slog.Int("attempt", j.AttemptsMade),
			slog.Int("max_attempts", j.MaxAttempts),
			slog.String("error", handlerErr.Error()),
		)
	case job.ExhaustedRetries:
		e.logger.Warn("job failed after exhausting attempts",
			slog.String("job_id", j.ID),
			slog.String("job_name", j.Name),
			slog.Int("attempts", j.AttemptsMade),
			slog.String("error", handlerErr.Error()),
		)
	}
	return nil
}
