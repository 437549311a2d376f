package event_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tavindev/hornet/event"
	"github.com/tavindev/hornet/job"
	"github.com/tavindev/hornet/store/memory"
)

// collector accumulates delivered events behind a mutex.
type collector struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *collector) add(evt event.Event) {
	c.mu.Lock()
	c.events = append(c.events, evt)
	c.mu.Unlock()
}

func (c *collector) snapshot() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Event(nil), c.events...)
}

func TestListenerDeliversTransitionsInOrder(t *testing.T) {
	store := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got collector
	l := event.NewListener(store, "orders", event.WithBlock(100*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		done <- l.Listen(ctx, got.add)
	}()

	// Give the listener a moment to anchor its cursor at "now".
	time.Sleep(50 * time.Millisecond)

	// Drive one job through its full lifecycle: added, active, completed.
	jobID, err := store.Enqueue(ctx, "orders", &job.Job{Name: "ship", MaxAttempts: 1})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	j, err := store.LeaseNext(ctx, "orders", "tok", time.Second)
	if err != nil || j == nil {
		t.Fatalf("lease: job=%v err=%v", j, err)
	}
	if err := store.Complete(ctx, "orders", j.ID, "tok", nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(got.snapshot()) >= 3 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	events := got.snapshot()
	if len(events) < 3 {
		t.Fatalf("received %d events, want 3", len(events))
	}

	wantNames := []string{event.NameAdded, event.NameActive, event.NameCompleted}
	for i, want := range wantNames {
		if events[i].JobID != jobID {
			t.Errorf("event %d job = %s, want %s", i, events[i].JobID, jobID)
		}
		if events[i].Name() != want {
			t.Errorf("event %d = %q, want %q", i, events[i].Name(), want)
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("listen returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop on cancel")
	}
}

func TestListenerKeepsCursorAcrossIdlePolls(t *testing.T) {
	store := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got collector
	l := event.NewListener(store, "orders", event.WithBlock(30*time.Millisecond))
	go l.Listen(ctx, got.add) //nolint:errcheck

	// Let several polls time out before any event exists. The cursor must
	// stay anchored where the listener started, not re-anchor to "now" on
	// every empty poll.
	time.Sleep(150 * time.Millisecond)

	jobID, err := store.Enqueue(ctx, "orders", &job.Job{Name: "ship", MaxAttempts: 1})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		for _, evt := range got.snapshot() {
			if evt.JobID == jobID && evt.Name() == event.NameAdded {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("event published between polls was never delivered")
}

func TestListenerReportsFailureReason(t *testing.T) {
	store := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got collector
	l := event.NewListener(store, "orders", event.WithBlock(100*time.Millisecond))
	go l.Listen(ctx, got.add) //nolint:errcheck

	time.Sleep(50 * time.Millisecond)

	if _, err := store.Enqueue(ctx, "orders", &job.Job{Name: "flaky", MaxAttempts: 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	j, err := store.LeaseNext(ctx, "orders", "tok", time.Second)
	if err != nil || j == nil {
		t.Fatalf("lease: job=%v err=%v", j, err)
	}
	if _, err := store.FailOrRetry(ctx, "orders", j.ID, "tok", errors.New("boom")); err != nil {
		t.Fatalf("fail: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		for _, evt := range got.snapshot() {
			if evt.Name() == event.NameFailed {
				if evt.FailedReason != "boom" {
					t.Errorf("failedReason = %q, want %q", evt.FailedReason, "boom")
				}
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("failed event never delivered")
}
