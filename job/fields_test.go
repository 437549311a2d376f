package job_test

import (
	"errors"
	"testing"
	"time"

	"github.com/tavindev/hornet"
	"github.com/tavindev/hornet/job"
)

func TestToFieldsWireLayout(t *testing.T) {
	ts := time.UnixMilli(1700000000000).UTC()
	j := &job.Job{
		ID:          "42",
		Name:        "welcome",
		Queue:       "mail",
		Payload:     []byte(`{"name":"john","age":12}`),
		MaxAttempts: 3,
		Timestamp:   ts,
	}

	m := job.ToFields(j)

	if m["name"] != "welcome" {
		t.Errorf("name = %v, want welcome", m["name"])
	}
	if m["data"] != `{"name":"john","age":12}` {
		t.Errorf("data = %v", m["data"])
	}
	if m["timestamp"] != "1700000000000" {
		t.Errorf("timestamp = %v, want 1700000000000", m["timestamp"])
	}
	if m["opts"] != `{"attempts":3}` {
		t.Errorf("opts = %v, want {\"attempts\":3}", m["opts"])
	}
	// Protocol fields this engine does not use are written with neutral
	// values so other implementations can decode the record.
	if m["delay"] != "0" || m["priority"] != "0" {
		t.Errorf("delay/priority = %v/%v, want 0/0", m["delay"], m["priority"])
	}
	if _, ok := m["state"]; ok {
		t.Error("state must not be stored as a hash field")
	}
}

func TestFromFieldsDecodesRecord(t *testing.T) {
	m := map[string]string{
		"name":        "welcome",
		"data":        `{"to":"a@b.c"}`,
		"opts":        `{"attempts":3,"backoff":{"type":"exponential"}}`,
		"timestamp":   "1700000000000",
		"atm":         "2",
		"processedOn": "1700000001000",
		"delay":       "0",
		"priority":    "0",
	}

	j, err := job.FromFields("7", "mail", job.StateActive, m)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if j.ID != "7" || j.Queue != "mail" || j.State != job.StateActive {
		t.Errorf("identity = %s/%s/%s", j.ID, j.Queue, j.State)
	}
	if j.AttemptsMade != 2 {
		t.Errorf("AttemptsMade = %d, want 2", j.AttemptsMade)
	}
	// Unknown opts keys ("backoff") must be tolerated.
	if j.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", j.MaxAttempts)
	}
	if j.ProcessedOn == nil || j.ProcessedOn.UnixMilli() != 1700000001000 {
		t.Errorf("ProcessedOn = %v", j.ProcessedOn)
	}
	if j.Timestamp.UnixMilli() != 1700000000000 {
		t.Errorf("Timestamp = %v", j.Timestamp)
	}
}

func TestFromFieldsDefaults(t *testing.T) {
	m := map[string]string{
		"name":      "noop",
		"timestamp": "1700000000000",
	}

	j, err := job.FromFields("1", "q", job.StateWaiting, m)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if j.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want default 1", j.MaxAttempts)
	}
	if j.AttemptsMade != 0 {
		t.Errorf("AttemptsMade = %d, want 0", j.AttemptsMade)
	}
}

func TestFromFieldsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"empty record", map[string]string{}},
		{"missing name", map[string]string{"timestamp": "1"}},
		{"missing timestamp", map[string]string{"name": "x"}},
		{"bad timestamp", map[string]string{"name": "x", "timestamp": "soon"}},
		{"bad atm", map[string]string{"name": "x", "timestamp": "1", "atm": "two"}},
		{"bad opts json", map[string]string{"name": "x", "timestamp": "1", "opts": "{"}},
		{"bad processedOn", map[string]string{"name": "x", "timestamp": "1", "processedOn": "later"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := job.FromFields("1", "q", job.StateWaiting, tt.fields)
			if !errors.Is(err, hornet.ErrMalformedJob) {
				t.Errorf("err = %v, want ErrMalformedJob", err)
			}
		})
	}
}

func TestFromFieldsIgnoresUnknownFields(t *testing.T) {
	m := map[string]string{
		"name":      "x",
		"timestamp": "1700000000000",
		"stalled":   "1",
		"delay":     "5000",
		"priority":  "3",
		"parentKey": "bull:other:9",
	}

	if _, err := job.FromFields("1", "q", job.StateWaiting, m); err != nil {
		t.Fatalf("unknown protocol fields must not fail decode: %v", err)
	}
}
