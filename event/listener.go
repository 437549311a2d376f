package event

import (
	"context"
	"log/slog"
	"time"
)

// Listener tails a queue's event stream and invokes a callback per event.
// Delivery is at-most-once: events appended while the listener is down are
// skipped, and a callback failure is not retried.
type Listener struct {
	store  Store
	queue  string
	block  time.Duration
	logger *slog.Logger
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithBlock sets how long each poll blocks waiting for new events.
func WithBlock(d time.Duration) ListenerOption {
	return func(l *Listener) { l.block = d }
}

// WithListenerLogger sets a custom logger.
func WithListenerLogger(logger *slog.Logger) ListenerOption {
	return func(l *Listener) { l.logger = logger }
}

// NewListener creates a listener for the given queue.
func NewListener(store Store, queue string, opts ...ListenerOption) *Listener {
	l := &Listener{
		store:  store,
		queue:  queue,
		block:  5 * time.Second,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Listen blocks, delivering each new event to fn, until ctx is cancelled.
// Read errors are logged and retried after a short pause; they never
// terminate the loop, since the stream is advisory.
func (l *Listener) Listen(ctx context.Context, fn func(Event)) error {
	cursor := ""

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		events, next, err := l.store.NextEvents(ctx, l.queue, cursor, l.block)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Warn("event read failed",
				slog.String("queue", l.queue),
				slog.String("error", err.Error()),
			)
			sleepCtx(ctx, l.block)
			continue
		}
		cursor = next

		for _, evt := range events {
			fn(*evt)
		}
	}
}

// sleepCtx sleeps for the given duration, or returns early if the context
// is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
