// Package retry provides a bounded retry executor with exponential
// backoff and jitter. Pipeline stages wrap their external calls
// (classifier, vector index, transcriber) in retry.Do so that
// transient failures are absorbed and permanent ones fail fast.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/atelier-labs/corpora-cli/internal/logger"
)

// Config controls the backoff schedule.
// Zero fields fall back to the defaults from DefaultConfig.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the backoff before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the backoff between attempts.
	MaxDelay time.Duration

	// Multiplier scales the delay after each failed attempt.
	Multiplier float64

	// Jitter is the fraction of the delay randomised in each
	// direction, to avoid workers retrying in lockstep.
	Jitter float64
}

// DefaultConfig returns the standard schedule: three attempts with
// exponential backoff between two and ten seconds.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = def.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.Multiplier <= 0 {
		c.Multiplier = def.Multiplier
	}
	if c.Jitter < 0 {
		c.Jitter = def.Jitter
	}
	return c
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do returns it immediately without further
// attempts. Use for errors retrying cannot fix: malformed responses,
// invalid credentials, bad input.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// ExhaustedError is returned by Do when every attempt failed.
// It carries the last error so callers can distinguish "ran out of
// attempts" from a direct failure and still inspect the cause.
type ExhaustedError struct {
	// Op is the name passed to Do.
	Op string

	// Attempts is how many times the operation ran.
	Attempts int

	// Err is the error from the final attempt.
	Err error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: all %d attempts failed: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsExhausted reports whether err is an ExhaustedError.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}

// Do runs fn up to cfg.MaxAttempts times with exponential backoff.
// Errors are retried unless marked with Permanent. Context
// cancellation aborts immediately, between attempts and during
// backoff, returning the context error.
func Do(ctx context.Context, name string, cfg Config, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: aborted: %w", name, err)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("%s succeeded on attempt %d", name, attempt)
			}
			return nil
		}

		var pe *permanentError
		if errors.As(lastErr, &pe) {
			logger.Debug("%s failed permanently: %v", name, pe.err)
			return pe.err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := backoff(attempt, cfg)
		logger.Warn("%s failed (attempt %d/%d), retrying in %s: %v",
			name, attempt, cfg.MaxAttempts, delay, lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: aborted during backoff: %w", name, ctx.Err())
		case <-timer.C:
		}
	}

	return &ExhaustedError{Op: name, Attempts: cfg.MaxAttempts, Err: lastErr}
}

// backoff computes the delay before the next attempt.
func backoff(attempt int, cfg Config) time.Duration {
	d := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.Jitter > 0 {
		d += d * cfg.Jitter * (2*rand.Float64() - 1)
	}
	if d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	if d < 0 {
		d = float64(cfg.InitialDelay)
	}
	return time.Duration(d)
}
