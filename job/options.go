package job

import "time"

// Options configures per-job behavior at enqueue time.
type Options struct {
	// Attempts is the total number of processing attempts the job is
	// allowed. 1 means no retry.
	Attempts int

	// Timeout bounds a single handler invocation. Zero means unlimited.
	Timeout time.Duration
}

// DefaultOptions returns the protocol defaults: a single attempt, no timeout.
func DefaultOptions() Options {
	return Options{Attempts: 1}
}

// Option is a functional option for configuring a job at enqueue time.
type Option func(*Options)

// WithAttempts sets the total number of processing attempts.
func WithAttempts(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Attempts = n
		}
	}
}

// WithTimeout sets the maximum execution duration per attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}
