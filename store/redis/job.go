package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tavindev/hornet"
	"github.com/tavindev/hornet/job"
)

// Enqueue runs the add script: the job receives the next counter ID and
// lands on the waiting list (or the paused list while the queue is paused)
// in one atomic step.
func (s *Store) Enqueue(ctx context.Context, queue string, j *job.Job) (string, error) {
	fields := job.ToFields(j)
	keys := []string{
		waitKey(queue),
		pausedKey(queue),
		metaKey(queue),
		idKey(queue),
		markerKey(queue),
		eventsKey(queue),
	}
	res, err := addScript.Run(ctx, s.client, keys,
		queuePrefix(queue),
		fields["name"],
		fields["data"],
		fields["opts"],
		j.Timestamp.UnixMilli(),
	).Result()
	if err != nil {
		return "", fmt.Errorf("hornet/redis: enqueue: %w", err)
	}

	jobID, err := scriptID(res)
	if err != nil {
		return "", fmt.Errorf("hornet/redis: enqueue: %w", err)
	}
	return jobID, nil
}

// LeaseNext atomically moves the oldest waiting job to the active list under
// the given lease token. When the waiting list is empty it blocks on the
// marker set for up to block, then tries once more. Returns (nil, nil) when
// no job arrived within the window. A non-positive block means a single
// non-blocking attempt; it is never passed to Redis, where a zero timeout
// would block forever.
func (s *Store) LeaseNext(ctx context.Context, queue, token string, block time.Duration) (*job.Job, error) {
	j, err := s.tryLease(ctx, queue, token)
	if err != nil || j != nil || block <= 0 {
		return j, err
	}

	// Nothing waiting. Park on the marker; producers and the retry path
	// ZADD it on every push, so BZPOPMIN returns as soon as work arrives.
	_, err = s.client.BZPopMin(ctx, block, markerKey(queue)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("hornet/redis: lease wait: %w", err)
	}

	return s.tryLease(ctx, queue, token)
}

func (s *Store) tryLease(ctx context.Context, queue, token string) (*job.Job, error) {
	keys := []string{waitKey(queue), activeKey(queue), eventsKey(queue), markerKey(queue)}
	res, err := leaseScript.Run(ctx, s.client, keys,
		queuePrefix(queue),
		token,
		s.lockDuration.Milliseconds(),
		nowMillis(),
	).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("hornet/redis: lease: %w", err)
	}

	jobID, fields, err := scriptJob(res)
	if err != nil {
		return nil, fmt.Errorf("hornet/redis: lease: %w", err)
	}
	j, err := job.FromFields(jobID, queue, job.StateActive, fields)
	if err != nil {
		// Leave the malformed record on the active list for inspection
		// rather than feeding it to a handler.
		s.logger.Error("leased job record is malformed",
			slog.String("queue", queue),
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return j, nil
}

// Complete commits a successful attempt: the job leaves the active list and
// joins the completed set with its return value, provided the caller still
// holds the lease.
func (s *Store) Complete(ctx context.Context, queue, jobID, token string, returnValue []byte) error {
	keys := []string{activeKey(queue), completedKey(queue), eventsKey(queue)}
	res, err := completeScript.Run(ctx, s.client, keys,
		queuePrefix(queue),
		jobID,
		token,
		nowMillis(),
		string(returnValue),
	).Int()
	if err != nil {
		return fmt.Errorf("hornet/redis: complete: %w", err)
	}
	return scriptErr(res, queue, jobID)
}

// FailOrRetry commits a failed attempt. The script itself decides between
// re-enqueueing at the tail of the waiting list and marking the job failed,
// so the attempt budget can never be raced past.
func (s *Store) FailOrRetry(ctx context.Context, queue, jobID, token string, cause error) (job.RetryOutcome, error) {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	keys := []string{
		waitKey(queue),
		activeKey(queue),
		failedKey(queue),
		eventsKey(queue),
		markerKey(queue),
		pausedKey(queue),
		metaKey(queue),
	}
	res, err := failScript.Run(ctx, s.client, keys,
		queuePrefix(queue),
		jobID,
		token,
		reason,
		nowMillis(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("hornet/redis: fail: %w", err)
	}
	if res < 0 {
		return 0, scriptErr(res, queue, jobID)
	}
	if res == 1 {
		return job.Retried, nil
	}
	return job.ExhaustedRetries, nil
}

// GetJob reads a job hash and derives its state from set membership, the way
// the wire protocol defines state.
func (s *Store) GetJob(ctx context.Context, queue, jobID string) (*job.Job, error) {
	fields, err := s.client.HGetAll(ctx, jobKey(queue, jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("hornet/redis: get job: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: job %s in queue %s", hornet.ErrJobNotFound, jobID, queue)
	}

	state, err := s.jobState(ctx, queue, jobID)
	if err != nil {
		return nil, err
	}
	return job.FromFields(jobID, queue, state, fields)
}

// jobState checks the terminal sets first (cheap O(log n) lookups), then the
// active list; anything else is waiting.
func (s *Store) jobState(ctx context.Context, queue, jobID string) (job.State, error) {
	if err := s.client.ZScore(ctx, completedKey(queue), jobID).Err(); err == nil {
		return job.StateCompleted, nil
	} else if !errors.Is(err, goredis.Nil) {
		return "", fmt.Errorf("hornet/redis: job state: %w", err)
	}

	if err := s.client.ZScore(ctx, failedKey(queue), jobID).Err(); err == nil {
		return job.StateFailed, nil
	} else if !errors.Is(err, goredis.Nil) {
		return "", fmt.Errorf("hornet/redis: job state: %w", err)
	}

	if err := s.client.LPos(ctx, activeKey(queue), jobID, goredis.LPosArgs{}).Err(); err == nil {
		return job.StateActive, nil
	} else if !errors.Is(err, goredis.Nil) {
		return "", fmt.Errorf("hornet/redis: job state: %w", err)
	}

	return job.StateWaiting, nil
}

// Counts returns per-state totals in one pipelined round trip.
func (s *Store) Counts(ctx context.Context, queue string) (job.Counts, error) {
	pipe := s.client.Pipeline()
	waiting := pipe.LLen(ctx, waitKey(queue))
	active := pipe.LLen(ctx, activeKey(queue))
	completed := pipe.ZCard(ctx, completedKey(queue))
	failed := pipe.ZCard(ctx, failedKey(queue))
	paused := pipe.LLen(ctx, pausedKey(queue))

	if _, err := pipe.Exec(ctx); err != nil {
		return job.Counts{}, fmt.Errorf("hornet/redis: counts: %w", err)
	}
	return job.Counts{
		Waiting:   waiting.Val(),
		Active:    active.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
		Paused:    paused.Val(),
	}, nil
}

// Pause marks the queue paused and shelters the waiting backlog in the
// paused list. Active jobs are unaffected.
func (s *Store) Pause(ctx context.Context, queue string) error {
	keys := []string{waitKey(queue), pausedKey(queue), metaKey(queue)}
	if err := pauseScript.Run(ctx, s.client, keys).Err(); err != nil {
		return fmt.Errorf("hornet/redis: pause: %w", err)
	}
	return nil
}

// Resume folds the paused backlog back into the waiting list in original
// order and wakes blocked workers.
func (s *Store) Resume(ctx context.Context, queue string) error {
	keys := []string{waitKey(queue), pausedKey(queue), metaKey(queue), markerKey(queue)}
	if err := resumeScript.Run(ctx, s.client, keys, nowMillis()).Err(); err != nil {
		return fmt.Errorf("hornet/redis: resume: %w", err)
	}
	return nil
}

// scriptErr maps the transition scripts' negative return codes to sentinel
// errors. A vanished job and a vanished or foreign lock both mean the caller
// lost a transition race.
func scriptErr(code int, queue, jobID string) error {
	switch code {
	case 0:
		return nil
	case -1:
		return fmt.Errorf("%w: job %s in queue %s", hornet.ErrJobNotFound, jobID, queue)
	case -2:
		return fmt.Errorf("%w: lock for job %s expired or released", hornet.ErrJobNotFound, jobID)
	case -3:
		return fmt.Errorf("%w: job %s not in active list", hornet.ErrJobNotFound, jobID)
	case -6:
		return fmt.Errorf("%w: job %s", hornet.ErrLockMismatch, jobID)
	default:
		return fmt.Errorf("hornet/redis: unexpected script result %d for job %s", code, jobID)
	}
}

// scriptID decodes the add script's integer-or-string job ID reply.
func scriptID(res any) (string, error) {
	switch v := res.(type) {
	case int64:
		return strconv.FormatInt(v, 10), nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("unexpected job id reply type %T", res)
	}
}

// scriptJob decodes the lease script's {jobId, flat field/value array} reply.
func scriptJob(res any) (string, map[string]string, error) {
	pair, ok := res.([]any)
	if !ok || len(pair) != 2 {
		return "", nil, fmt.Errorf("unexpected lease reply shape %T", res)
	}
	jobID, ok := pair[0].(string)
	if !ok {
		return "", nil, fmt.Errorf("unexpected job id type %T in lease reply", pair[0])
	}
	flat, ok := pair[1].([]any)
	if !ok || len(flat)%2 != 0 {
		return "", nil, fmt.Errorf("unexpected field array in lease reply for job %s", jobID)
	}

	fields := make(map[string]string, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		k, kok := flat[i].(string)
		v, vok := flat[i+1].(string)
		if !kok || !vok {
			return "", nil, fmt.Errorf("non-string hash entry in lease reply for job %s", jobID)
		}
		fields[k] = v
	}
	return jobID, fields, nil
}
