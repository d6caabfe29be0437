// Package retry provides exponential backoff with jitter for calls that can
// fail transiently, such as assistant endpoints and database connections.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Config controls how many times an operation is retried and how long the
// loop waits between attempts.
type Config struct {
	MaxRetries       int
	InitialDelay     time.Duration
	MaxDelay         time.Duration
	Multiplier       float64
	JitterFactor     float64 // fraction of the delay randomized in both directions
	MaxSameErrorType int     // consecutive errors of one class before giving up early, 0 disables
}

// DefaultConfig is the policy used when callers pass a nil Config: three
// retries starting at 100ms and doubling up to a 5s cap, with 10% jitter.
// Five consecutive errors of the same class abort the loop early.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:       3,
		InitialDelay:     100 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.1,
		MaxSameErrorType: 5,
	}
}

// backoff tracks the growing delay across one retry loop.
type backoff struct {
	cfg   *Config
	delay time.Duration
}

func newBackoff(cfg *Config) *backoff {
	return &backoff{cfg: cfg, delay: cfg.InitialDelay}
}

// wait blocks for the current delay plus jitter, then grows the delay for the
// next round. Returns the context error if ctx is done first.
func (b *backoff) wait(ctx context.Context) error {
	select {
	case <-time.After(withJitter(b.delay, b.cfg.JitterFactor)):
	case <-ctx.Done():
		return ctx.Err()
	}

	b.delay = time.Duration(float64(b.delay) * b.cfg.Multiplier)
	if b.delay > b.cfg.MaxDelay {
		b.delay = b.cfg.MaxDelay
	}
	return nil
}

// withJitter spreads a delay by +/- factor so that concurrent callers do not
// wake up in lockstep.
func withJitter(delay time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return delay
	}
	jitter := float64(delay) * factor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// Do runs fn until it succeeds or the retries are spent, waiting with
// exponential backoff in between. The wait is cut short when ctx is done.
// Returns nil on success, otherwise the last error from fn.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	b := newBackoff(cfg)
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxRetries {
			break
		}
		if err := b.wait(ctx); err != nil {
			return err
		}
	}

	return lastErr
}

// DoWithResult is Do for functions that return a value, such as opening a
// connection pool. On failure the value of the last attempt is returned
// alongside the error.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	b := newBackoff(cfg)
	var result T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if result, lastErr = fn(); lastErr == nil {
			return result, nil
		}
		if attempt == cfg.MaxRetries {
			break
		}
		if err := b.wait(ctx); err != nil {
			return result, err
		}
	}

	return result, lastErr
}

// DoIfRetryable runs fn like Do but gives up immediately on errors that are
// not transient, so a bad API key or a missing model fails on the first
// attempt instead of burning through the whole backoff schedule. When the
// same class of error comes back MaxSameErrorType times in a row the loop
// also stops, wrapping the last error with the repeat count.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	b := newBackoff(cfg)
	var lastErr error
	var lastClass string
	repeats := 0

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if !IsRetryable(lastErr) {
			return lastErr
		}

		class := errorClass(lastErr)
		if class == lastClass {
			repeats++
			if cfg.MaxSameErrorType > 0 && repeats >= cfg.MaxSameErrorType {
				return fmt.Errorf("giving up after %d consecutive %s errors: %w", repeats, class, lastErr)
			}
		} else {
			repeats = 1
			lastClass = class
		}

		if attempt == cfg.MaxRetries {
			break
		}
		if err := b.wait(ctx); err != nil {
			return err
		}
	}

	return lastErr
}

// RetryableError lets an error declare its own retryability instead of
// relying on message patterns. Classified assistant errors implement it.
type RetryableError interface {
	error
	IsRetryable() bool
}

// transientPatterns matches error text from the drivers and HTTP clients this
// package retries around. The interface check in IsRetryable takes
// precedence, so these only see errors that were never classified.
var transientPatterns = []string{
	// socket and dial failures
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"timeout",
	"timed out",
	"temporary failure",
	"network is unreachable",
	// database contention
	"too many connections",
	"deadlock",
	// HTTP status codes surfaced in error text
	"429",
	"500",
	"502",
	"503",
	"504",
	// throttling and overload messages
	"rate limit",
	"service busy",
	"service unavailable",
	"too many requests",
	// local inference servers under memory pressure
	"cuda error",
	"gpu error",
	"out of memory",
}

// IsRetryable reports whether an error is worth another attempt. Errors that
// implement RetryableError anywhere in their chain answer for themselves;
// everything else is matched against known transient failure text. Permanent
// failures like bad credentials never match.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var r RetryableError
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// errorClass buckets an error message so consecutive failures of one kind can
// be recognized. An endpoint that answers 503 on every attempt is down, not
// flaky, and DoIfRetryable stops early when the class keeps repeating.
func errorClass(err error) string {
	if err == nil {
		return "nil"
	}

	msg := strings.ToLower(err.Error())

	for _, code := range []string{"503", "502", "504", "500", "429", "404", "403", "401", "400"} {
		if strings.Contains(msg, code) {
			return code
		}
	}

	switch {
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"):
		return "connection"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return "timeout"
	case strings.Contains(msg, "broken pipe"):
		return "broken_pipe"
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return "rate_limit"
	case strings.Contains(msg, "cuda"), strings.Contains(msg, "gpu"):
		return "gpu"
	case strings.Contains(msg, "out of memory"):
		return "oom"
	}

	return "unknown"
}
