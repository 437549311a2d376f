package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tavindev/hornet/event"
	"github.com/tavindev/hornet/job"
)

// Compile-time interface checks.
var (
	_ job.Store   = (*Store)(nil)
	_ event.Store = (*Store)(nil)
)

const defaultLockDuration = 30 * time.Second

// Store implements the job and event store contracts on Redis, speaking the
// shared wire protocol. All state transitions run as Lua scripts, so any
// number of producers and workers in any process can share one queue safely.
type Store struct {
	client       goredis.UniversalClient
	logger       *slog.Logger
	lockDuration time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithLockDuration sets the TTL written on each lease lock. A worker must
// commit a job's outcome within this window; after it lapses the lock expires
// and the commit is rejected with a lock error.
func WithLockDuration(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockDuration = d
		}
	}
}

// New creates a Store on an existing Redis client. The client is
// caller-owned and may be shared; Close releases it.
func New(client goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client:       client,
		logger:       slog.Default(),
		lockDuration: defaultLockDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("hornet/redis: ping: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close(_ context.Context) error {
	return s.client.Close()
}

// nowMillis returns the current time as a Unix millisecond count, the unit
// the wire protocol uses for every timestamp field and score.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
