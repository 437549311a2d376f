package redis

import (
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tavindev/hornet"
	"github.com/tavindev/hornet/event"
	"github.com/tavindev/hornet/job"
)

func TestKeyLayout(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{waitKey("orders"), "bull:orders:wait"},
		{activeKey("orders"), "bull:orders:active"},
		{completedKey("orders"), "bull:orders:completed"},
		{failedKey("orders"), "bull:orders:failed"},
		{pausedKey("orders"), "bull:orders:paused"},
		{metaKey("orders"), "bull:orders:meta"},
		{idKey("orders"), "bull:orders:id"},
		{markerKey("orders"), "bull:orders:marker"},
		{eventsKey("orders"), "bull:orders:events"},
		{jobKey("orders", "42"), "bull:orders:42"},
		{lockKey("orders", "42"), "bull:orders:42:lock"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("key = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestScriptErrMapping(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{0, nil},
		{-1, hornet.ErrJobNotFound},
		{-2, hornet.ErrJobNotFound},
		{-3, hornet.ErrJobNotFound},
		{-6, hornet.ErrLockMismatch},
	}
	for _, tt := range tests {
		err := scriptErr(tt.code, "orders", "42")
		if tt.want == nil {
			if err != nil {
				t.Errorf("code %d: got %v, want nil", tt.code, err)
			}
			continue
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("code %d: got %v, want %v", tt.code, err, tt.want)
		}
	}

	if err := scriptErr(-99, "orders", "42"); err == nil {
		t.Error("unknown code should error")
	}
}

func TestScriptIDDecoding(t *testing.T) {
	if id, err := scriptID(int64(7)); err != nil || id != "7" {
		t.Errorf("int64 reply: id=%q err=%v", id, err)
	}
	if id, err := scriptID("7"); err != nil || id != "7" {
		t.Errorf("string reply: id=%q err=%v", id, err)
	}
	if _, err := scriptID(3.14); err == nil {
		t.Error("float reply should be rejected")
	}
}

func TestScriptJobDecoding(t *testing.T) {
	reply := []any{
		"42",
		[]any{
			"name", "ship",
			"data", `{"address":"pier 4"}`,
			"opts", `{"attempts":3}`,
			"timestamp", "1700000000000",
			"atm", "1",
		},
	}

	jobID, fields, err := scriptJob(reply)
	if err != nil {
		t.Fatalf("scriptJob: %v", err)
	}
	if jobID != "42" {
		t.Errorf("jobID = %q, want 42", jobID)
	}

	j, err := job.FromFields(jobID, "orders", job.StateActive, fields)
	if err != nil {
		t.Fatalf("FromFields: %v", err)
	}
	if j.Name != "ship" || j.MaxAttempts != 3 || j.AttemptsMade != 1 {
		t.Errorf("decoded job = %+v", j)
	}

	if _, _, err := scriptJob("not a pair"); err == nil {
		t.Error("malformed reply should be rejected")
	}
	if _, _, err := scriptJob([]any{"42", []any{"odd"}}); err == nil {
		t.Error("odd field array should be rejected")
	}
}

func TestDecodeEvent(t *testing.T) {
	msg := goredis.XMessage{
		ID: "1700000000000-0",
		Values: map[string]any{
			"event":        "failed",
			"jobId":        "42",
			"prev":         "active",
			"failedReason": "boom",
		},
	}

	evt, err := decodeEvent(msg)
	if err != nil {
		t.Fatalf("decodeEvent: %v", err)
	}
	if evt.JobID != "42" || evt.To != job.StateFailed || evt.From != job.StateActive {
		t.Errorf("decoded event = %+v", evt)
	}
	if evt.FailedReason != "boom" {
		t.Errorf("failedReason = %q", evt.FailedReason)
	}
	if evt.Name() != event.NameFailed {
		t.Errorf("round-trip name = %q", evt.Name())
	}
	if want := time.UnixMilli(1700000000000).UTC(); !evt.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", evt.Timestamp, want)
	}

	// "added" events carry no prior state even if a prev field sneaks in.
	msg.Values = map[string]any{"event": "added", "jobId": "42", "prev": "active"}
	evt, err = decodeEvent(msg)
	if err != nil {
		t.Fatalf("decodeEvent added: %v", err)
	}
	if evt.From != "" || evt.To != job.StateWaiting {
		t.Errorf("added event = %+v", evt)
	}

	if _, err := decodeEvent(goredis.XMessage{ID: "1-0", Values: map[string]any{"event": "added"}}); err == nil {
		t.Error("entry without jobId should be rejected")
	}
	if _, err := decodeEvent(goredis.XMessage{ID: "1-0", Values: map[string]any{"event": "exotic", "jobId": "1"}}); err == nil {
		t.Error("unknown event name should be rejected")
	}
}
