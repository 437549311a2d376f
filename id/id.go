// Package id defines identity types for hornet workers and leases.
//
// Worker identities are TypeIDs — prefix-qualified, K-sortable,
// UUIDv7-based identifiers in the format "wkr_suffix". Job identifiers are
// NOT TypeIDs: the wire protocol assigns jobs monotonically increasing
// numeric IDs from a per-queue counter, so jobs are identified by plain
// strings throughout the module.
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for hornet entity types.
const (
	PrefixWorker   Prefix = "wkr"
	PrefixProducer Prefix = "prd"
)

// ID wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// WorkerID is a type-safe identifier for workers (prefix: "wkr").
type WorkerID = ID

// ProducerID is a type-safe identifier for queue producers (prefix: "prd").
type ProducerID = ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// NewWorkerID generates a new unique worker ID.
func NewWorkerID() ID { return New(PrefixWorker) }

// NewProducerID generates a new unique producer ID.
func NewProducerID() ID { return New(PrefixProducer) }

// Parse parses a TypeID string (e.g., "wkr_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWorkerID parses a string and validates the "wkr" prefix.
func ParseWorkerID(s string) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if parsed.Prefix() != PrefixWorker {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", PrefixWorker, parsed.Prefix())
	}
	return parsed, nil
}

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool { return !i.valid }
