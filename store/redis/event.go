package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tavindev/hornet/event"
	"github.com/tavindev/hornet/job"
)

// nextEventsCount caps the batch size per XREAD so a large backlog is
// delivered in chunks instead of one oversized reply.
const nextEventsCount = 128

// PublishEvent appends an event to the queue's stream. The transition
// scripts already publish their own events; this path serves out-of-band
// publishers.
func (s *Store) PublishEvent(ctx context.Context, queue string, evt *event.Event) error {
	values := map[string]any{
		"event": evt.Name(),
		"jobId": evt.JobID,
	}
	if evt.From != "" {
		values["prev"] = string(evt.From)
	}
	if evt.FailedReason != "" {
		values["failedReason"] = evt.FailedReason
	}

	err := s.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: eventsKey(queue),
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("hornet/redis: publish event: %w", err)
	}
	return nil
}

// NextEvents reads the queue's event stream after cursor, blocking up to
// block for new entries. An empty cursor subscribes from now on: it is
// resolved once to the stream's current last ID, so events appended between
// subsequent polls are delivered even before anything else arrives. The
// returned cursor is always concrete.
func (s *Store) NextEvents(ctx context.Context, queue, cursor string, block time.Duration) ([]*event.Event, string, error) {
	if cursor == "" {
		var err error
		cursor, err = s.lastEventID(ctx, queue)
		if err != nil {
			return nil, "", err
		}
	}

	streams, err := s.client.XRead(ctx, &goredis.XReadArgs{
		Streams: []string{eventsKey(queue), cursor},
		Count:   nextEventsCount,
		Block:   block,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, cursor, nil
		}
		if ctx.Err() != nil {
			return nil, cursor, ctx.Err()
		}
		return nil, cursor, fmt.Errorf("hornet/redis: read events: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, cursor, nil
	}

	msgs := streams[0].Messages
	events := make([]*event.Event, 0, len(msgs))
	for _, msg := range msgs {
		evt, decodeErr := decodeEvent(msg)
		if decodeErr != nil {
			// Skip entries this engine does not understand; foreign
			// publishers may write richer event shapes.
			continue
		}
		events = append(events, evt)
	}
	return events, msgs[len(msgs)-1].ID, nil
}

// lastEventID returns the ID of the newest entry in the queue's event
// stream, or "0" when the stream is empty so the first entry ever written
// is delivered.
func (s *Store) lastEventID(ctx context.Context, queue string) (string, error) {
	last, err := s.client.XRevRangeN(ctx, eventsKey(queue), "+", "-", 1).Result()
	if err != nil {
		return "", fmt.Errorf("hornet/redis: anchor event cursor: %w", err)
	}
	if len(last) == 0 {
		return "0", nil
	}
	return last[0].ID, nil
}

// decodeEvent maps one stream entry back to an Event. The entry's stream ID
// carries the commit time in its millisecond prefix.
func decodeEvent(msg goredis.XMessage) (*event.Event, error) {
	name, _ := msg.Values["event"].(string)
	jobID, _ := msg.Values["jobId"].(string)
	if name == "" || jobID == "" {
		return nil, fmt.Errorf("stream entry %s lacks event fields", msg.ID)
	}

	evt := &event.Event{
		JobID:     jobID,
		Timestamp: streamTime(msg.ID),
	}
	if reason, ok := msg.Values["failedReason"].(string); ok {
		evt.FailedReason = reason
	}
	if prev, ok := msg.Values["prev"].(string); ok {
		evt.From = job.State(prev)
	}

	switch name {
	case event.NameAdded:
		evt.To = job.StateWaiting
		evt.From = ""
	case event.NameActive:
		evt.To = job.StateActive
	case event.NameCompleted:
		evt.To = job.StateCompleted
	case event.NameFailed:
		evt.To = job.StateFailed
	case event.NameWaiting:
		evt.To = job.StateWaiting
	default:
		return nil, fmt.Errorf("unknown event name %q in entry %s", name, msg.ID)
	}
	return evt, nil
}

// streamTime extracts the millisecond timestamp from a stream ID ("ms-seq").
func streamTime(id string) time.Time {
	msPart, _, _ := strings.Cut(id, "-")
	ms, err := strconv.ParseInt(msPart, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
