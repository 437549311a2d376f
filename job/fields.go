package job

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/tavindev/hornet"
)

// wireOpts is the opts hash field: a JSON blob in the protocol's schema.
// Extra keys written by other implementations round-trip untouched because
// the engine only ever rewrites opts at creation time.
type wireOpts struct {
	Attempts int   `json:"attempts"`
	Timeout  int64 `json:"timeout,omitempty"` // milliseconds
}

// ToFields converts a Job into the hash field/value mapping of the wire
// protocol. State is deliberately absent: the protocol tracks state via
// set membership, not a hash field.
func ToFields(j *Job) map[string]any {
	opts, _ := json.Marshal(wireOpts{ //nolint:errcheck // fixed schema cannot fail to marshal
		Attempts: j.MaxAttempts,
		Timeout:  j.Timeout.Milliseconds(),
	})

	m := map[string]any{
		"name":      j.Name,
		"data":      string(j.Payload),
		"opts":      string(opts),
		"timestamp": strconv.FormatInt(j.Timestamp.UnixMilli(), 10),
		"delay":     "0",
		"priority":  "0",
		"atm":       strconv.Itoa(j.AttemptsMade),
		"ats":       strconv.Itoa(j.AttemptsMade),
	}
	if j.ProcessedOn != nil {
		m["processedOn"] = strconv.FormatInt(j.ProcessedOn.UnixMilli(), 10)
	}
	if j.FinishedOn != nil {
		m["finishedOn"] = strconv.FormatInt(j.FinishedOn.UnixMilli(), 10)
	}
	if j.FailedReason != "" {
		m["failedReason"] = j.FailedReason
	}
	if len(j.ReturnValue) > 0 {
		m["returnvalue"] = string(j.ReturnValue)
	}
	return m
}

// FromFields decodes a job hash read from the store. The ID comes from the
// key, the state from the set the caller found the ID in. Returns
// hornet.ErrMalformedJob when required fields are missing or numeric
// fields have the wrong shape; fields this engine does not use are ignored.
func FromFields(jobID, queue string, state State, m map[string]string) (*Job, error) {
	if len(m) == 0 {
		return nil, fmt.Errorf("%w: empty record for job %s", hornet.ErrMalformedJob, jobID)
	}
	name, ok := m["name"]
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: job %s missing field %q", hornet.ErrMalformedJob, jobID, "name")
	}

	tsMilli, err := requiredInt(m, "timestamp", jobID)
	if err != nil {
		return nil, err
	}
	attemptsMade, err := optionalInt(m, "atm", jobID)
	if err != nil {
		return nil, err
	}

	var opts wireOpts
	if raw, exists := m["opts"]; exists && raw != "" {
		if jsonErr := json.Unmarshal([]byte(raw), &opts); jsonErr != nil {
			return nil, fmt.Errorf("%w: job %s opts: %v", hornet.ErrMalformedJob, jobID, jsonErr)
		}
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}

	j := &Job{
		ID:           jobID,
		Name:         name,
		Queue:        queue,
		Payload:      []byte(m["data"]),
		State:        state,
		AttemptsMade: int(attemptsMade),
		MaxAttempts:  opts.Attempts,
		FailedReason: m["failedReason"],
		Timeout:      time.Duration(opts.Timeout) * time.Millisecond,
		Timestamp:    time.UnixMilli(tsMilli).UTC(),
	}
	if v := m["returnvalue"]; v != "" {
		j.ReturnValue = []byte(v)
	}
	if v, exists := m["processedOn"]; exists && v != "" {
		ms, parseErr := strconv.ParseInt(v, 10, 64)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: job %s field %q: %v", hornet.ErrMalformedJob, jobID, "processedOn", parseErr)
		}
		t := time.UnixMilli(ms).UTC()
		j.ProcessedOn = &t
	}
	if v, exists := m["finishedOn"]; exists && v != "" {
		ms, parseErr := strconv.ParseInt(v, 10, 64)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: job %s field %q: %v", hornet.ErrMalformedJob, jobID, "finishedOn", parseErr)
		}
		t := time.UnixMilli(ms).UTC()
		j.FinishedOn = &t
	}
	return j, nil
}

func requiredInt(m map[string]string, field, jobID string) (int64, error) {
	v, ok := m[field]
	if !ok || v == "" {
		return 0, fmt.Errorf("%w: job %s missing field %q", hornet.ErrMalformedJob, jobID, field)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: job %s field %q: %v", hornet.ErrMalformedJob, jobID, field, err)
	}
	return n, nil
}

func optionalInt(m map[string]string, field, jobID string) (int64, error) {
	v, ok := m[field]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: job %s field %q: %v", hornet.ErrMalformedJob, jobID, field, err)
	}
	return n, nil
}
