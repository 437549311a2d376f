// Package redis is the production store: all queue state lives in Redis
// under the shared wire protocol's keyspace, so queues populated by this
// engine interoperate with any other implementation of the protocol.
//
// Per-queue keys (prefix bull:{queue}:):
//
//	wait       List        waiting job IDs, LPUSH in, consumed from the right
//	active     List        job IDs currently leased
//	completed  Sorted Set  finished job IDs scored by completion time
//	failed     Sorted Set  dead job IDs scored by failure time
//	paused     List        jobs parked while the queue is paused
//	meta       Hash        queue flags ("paused")
//	id         String      monotonic job ID counter
//	marker     Sorted Set  wakeup channel for blocked workers
//	events     Stream      lifecycle event log
//	{id}       Hash        one job record per ID
//	{id}:lock  String      lease token, expires after the lock duration
//
// State transitions are Lua scripts (see scripts.go) so every
// read-check-write sequence is atomic against concurrent producers and
// workers in any process.
package redis
