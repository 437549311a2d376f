// Package hornet is a Redis-backed distributed job queue for Go,
// wire-compatible with the BullMQ keyspace. Producers and workers built
// with hornet interoperate with BullMQ producers and workers running
// against the same Redis instance.
//
// Hornet is designed as a library, not a service. Import it, hand it a
// Redis client, and process jobs with ordinary Go functions.
//
// # Quick Start
//
//	rdb := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	store := redis.New(rdb)
//
//	q := queue.New("mail", store)
//	id, err := q.Add(ctx, "welcome", mailPayload{To: "a@b.c"})
//
//	w := worker.New("mail", store, handleMail, worker.WithConcurrency(8))
//	w.Start(ctx)
//	defer w.Stop(ctx)
//
// # Architecture
//
// Every multi-key state transition (waiting → active, active → completed,
// active → waiting/failed) is a single Lua script executed server-side, so
// any number of independent worker processes can contend for the same jobs
// without a coordinator. The job records in Redis are the only source of
// truth; workers hold no recoverable state.
//
// Lifecycle transitions are appended to a per-queue event stream inside the
// same scripts, so observers see transitions in the order they committed.
package hornet
