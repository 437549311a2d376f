package event

import (
	"context"
	"time"
)

// Store defines the persistence contract for lifecycle events.
//
// The Redis store publishes most events inside the Lua scripts that perform
// the transitions; PublishEvent exists for implementations without scripted
// transitions (the memory store) and for out-of-band publishers. Publishing
// is fire-and-forget: a publish failure must never fail the owning job
// transition.
type Store interface {
	// PublishEvent appends an event to the queue's stream. Best-effort.
	PublishEvent(ctx context.Context, queue string, evt *Event) error

	// NextEvents returns events appended after cursor, blocking up to
	// block for new ones. An empty cursor means "from now on". Returns
	// the batch and the cursor for the next call; the batch is empty on
	// timeout.
	NextEvents(ctx context.Context, queue, cursor string, block time.Duration) ([]*Event, string, error)
}
