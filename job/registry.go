package job

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Handler processes one leased job. Returning nil completes the job;
// returning an error routes it through the retry protocol. Handlers run
// concurrently and must be safe for concurrent use.
type Handler func(ctx context.Context, j *Job) error

// Registry maps job names to handlers. It is safe for concurrent use.
//
// The engine's worker takes a single Handler and never routes by name
// itself; Registry is the optional routing layer for callers that process
// several job types on one queue.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register registers a handler for the given job name, replacing any
// previous registration.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Get returns the handler for the given job name.
// Returns false if no handler is registered.
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns all registered job names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Route returns a Handler that dispatches by job name. Jobs with no
// registered handler fail with an error, which sends them through the
// normal retry protocol.
func (r *Registry) Route() Handler {
	return func(ctx context.Context, j *Job) error {
		h, ok := r.Get(j.Name)
		if !ok {
			return fmt.Errorf("no handler registered for job %q", j.Name)
		}
		return h(ctx, j)
	}
}

// RegisterDefinition registers a typed job definition. The generic handler
// is wrapped in a closure that JSON-unmarshals the payload into T before
// calling the typed handler.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func RegisterDefinition[T any](r *Registry, def *Definition[T]) {
	r.Register(def.Name, func(ctx context.Context, j *Job) error {
		var t T
		if len(j.Payload) > 0 {
			if err := json.Unmarshal(j.Payload, &t); err != nil {
				return fmt.Errorf("unmarshal payload for job %q: %w", def.Name, err)
			}
		}
		return def.Handler(ctx, t)
	})
}
