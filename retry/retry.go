// Package retry runs external calls with bounded attempts, a per-attempt
// timeout and exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"
)

// Config bounds a retried call.
type Config struct {
	// MaxAttempts is the total number of tries, including the first. Default: 3.
	MaxAttempts int

	// Timeout applies to each attempt individually. Zero means no per-attempt deadline.
	Timeout time.Duration

	// BaseDelay is the wait before the second attempt; it doubles afterwards. Default: 500ms.
	BaseDelay time.Duration

	// MaxDelay caps the backoff. Default: 8s.
	MaxDelay time.Duration
}

// DefaultConfig suits remote APIs that answer within a few seconds.
var DefaultConfig = Config{
	MaxAttempts: 3,
	Timeout:     20 * time.Second,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    8 * time.Second,
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultConfig.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultConfig.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultConfig.MaxDelay
	}
	return c
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do calls fn until it succeeds, returns a permanent error, the parent context
// ends, or the attempts run out. The last error is returned.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		result, err := attemptOnce(ctx, cfg.Timeout, fn)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if IsPermanent(err) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return zero, err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return zero, lastErr
}

func attemptOnce[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}
