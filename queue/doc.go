// Package queue provides the producer side of the engine.
//
// A [Queue] is a named namespace in the store: all keys are derived from
// the queue name, and a per-queue counter assigns monotonically increasing
// job IDs so waiting order matches enqueue order. The Queue itself holds no
// mutable state beyond its name — any number of producers on any number of
// processes may Add to the same queue concurrently.
//
//	q := queue.New("mail", store)
//	id, err := q.Add(ctx, "welcome", WelcomeInput{To: "a@b.c"},
//	    job.WithAttempts(3),
//	)
//
// Pause diverts new jobs and stops dispatch without losing anything;
// Resume folds the paused backlog back into the waiting list.
package queue
