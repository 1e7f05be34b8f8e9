// Package retry provides bounded exponential-backoff retry for transient
// collaborator failures. It lives at the call boundary; core store and
// selection logic never retries internally.
package retry

import (
	"context"
	"time"
)

// Config controls the retry behaviour.
type Config struct {
	// Attempts is the total number of attempts, including the first.
	// Zero or negative means a single attempt.
	Attempts int
	// Delay is the wait before the second attempt; each subsequent wait
	// doubles, capped at MaxDelay.
	Delay time.Duration
	// MaxDelay caps the per-attempt wait.
	MaxDelay time.Duration
	// Retryable classifies errors; nil retries every non-nil error.
	Retryable func(err error) bool
}

// Default is tuned for short-lived local-network store calls.
var Default = Config{
	Attempts: 2,
	Delay:    100 * time.Millisecond,
	MaxDelay: time.Second,
}

// Do calls fn until it succeeds, the attempts are exhausted, or ctx is
// cancelled. The last attempt's error is returned.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.Delay <= 0 {
		cfg.Delay = Default.Delay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = Default.MaxDelay
	}

	delay := cfg.Delay
	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if cfg.Retryable != nil && !cfg.Retryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}
