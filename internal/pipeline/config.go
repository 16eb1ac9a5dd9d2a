package pipeline

import "time"

// Config holds the engine's concurrency and failure-policy constants.
// The retry ceiling and backoff curve are deliberate configuration, not
// hard-coded: deployments tune them per inference backend.
type Config struct {
	// Workers is the number of concurrent stage executions across all
	// documents. Per-document mutual exclusion still applies.
	Workers int
	// QueueSize bounds the pending task queue.
	QueueSize int
	// MaxAttempts caps executor invocations per stage entry, including
	// the first. Exceeding it moves the document to failed.
	MaxAttempts int
	// BackoffBase is the first retry delay; each retry doubles it up to
	// BackoffCap.
	BackoffBase time.Duration
	BackoffCap  time.Duration
	// StageTimeout bounds a single executor invocation. An exceeded
	// deadline counts as a retryable timeout failure.
	StageTimeout time.Duration
	// WatchdogInterval is how often stale executions are scanned for.
	WatchdogInterval time.Duration
	// StaleAfter is how long a document may sit in_progress without a
	// commit before the watchdog reconciles it.
	StaleAfter time.Duration
	// CASRetries bounds transparent reload-and-retry cycles on version
	// conflicts before surfacing a non-retryable failure.
	CASRetries int
}

// DefaultConfig returns the documented default failure policy.
func DefaultConfig() Config {
	return Config{
		Workers:          4,
		QueueSize:        256,
		MaxAttempts:      4,
		BackoffBase:      500 * time.Millisecond,
		BackoffCap:       30 * time.Second,
		StageTimeout:     2 * time.Minute,
		WatchdogInterval: 30 * time.Second,
		StaleAfter:       5 * time.Minute,
		CASRetries:       3,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()

	if c.Workers < 1 {
		c.Workers = defaults.Workers
	}
	if c.QueueSize < 1 {
		c.QueueSize = defaults.QueueSize
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = defaults.MaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaults.BackoffBase
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = defaults.BackoffCap
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = defaults.StageTimeout
	}
	if c.WatchdogInterval <= 0 {
		c.WatchdogInterval = defaults.WatchdogInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = defaults.StaleAfter
	}
	if c.CASRetries < 1 {
		c.CASRetries = defaults.CASRetries
	}

	return c
}

// backoff returns the delay before retry number attempt (1-based count
// of completed attempts), doubling from BackoffBase up to BackoffCap.
func (c Config) backoff(attempt int) time.Duration {
	delay := c.BackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.BackoffCap {
			return c.BackoffCap
		}
	}
	if delay > c.BackoffCap {
		return c.BackoffCap
	}
	return delay
}
