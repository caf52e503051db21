package retry

import (
	"context"
	"time"
)

// Config defines bounded exponential backoff.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
}

// AIConfig matches the mapping engine's contract with the AI provider:
// base 2s delay, doubling, up to 3 retries.
func AIConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: 2 * time.Second,
		Multiplier:   2.0,
	}
}

// DoWithResult executes fn until it succeeds or retries are exhausted,
// sleeping between attempts and respecting context cancellation.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = AIConfig()
	}

	var result T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		lastErr = err

		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * cfg.Multiplier)
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
	}
	return result, lastErr
}
