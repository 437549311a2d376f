package redis

// Redis key naming follows the wire protocol: every key for a queue lives
// under "bull:{queue}:". Changing this prefix breaks interoperability.

const keyPrefix = "bull:"

// queuePrefix returns the common prefix for a queue: bull:{queue}:
func queuePrefix(queue string) string { return keyPrefix + queue + ":" }

// jobKey returns the hash key for a job record: bull:{queue}:{id}
func jobKey(queue, jobID string) string { return queuePrefix(queue) + jobID }

// lockKey returns the lease lock key: bull:{queue}:{id}:lock
func lockKey(queue, jobID string) string { return jobKey(queue, jobID) + ":lock" }

// waitKey returns the waiting List: bull:{queue}:wait
// Producers LPUSH; the lease script consumes from the right, so list order
// is FIFO.
func waitKey(queue string) string { return queuePrefix(queue) + "wait" }

// activeKey returns the active List: bull:{queue}:active
func activeKey(queue string) string { return queuePrefix(queue) + "active" }

// completedKey returns the completed Sorted Set (score = finishedOn).
func completedKey(queue string) string { return queuePrefix(queue) + "completed" }

// failedKey returns the failed Sorted Set (score = finishedOn).
func failedKey(queue string) string { return queuePrefix(queue) + "failed" }

// pausedKey returns the List holding jobs added while the queue is paused.
func pausedKey(queue string) string { return queuePrefix(queue) + "paused" }

// metaKey returns the queue metadata Hash (field "paused" marks a paused
// queue).
func metaKey(queue string) string { return queuePrefix(queue) + "meta" }

// idKey returns the job ID counter: bull:{queue}:id
func idKey(queue string) string { return queuePrefix(queue) + "id" }

// markerKey returns the Sorted Set workers block on to learn about new
// waiting jobs: bull:{queue}:marker
func markerKey(queue string) string { return queuePrefix(queue) + "marker" }

// eventsKey returns the lifecycle event Stream: bull:{queue}:events
func eventsKey(queue string) string { return queuePrefix(queue) + "events" }
