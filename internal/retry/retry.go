// package retry wraps remote calls in an exponential-backoff policy.
//
// Every Sheets/Drive call the pipeline makes goes through [Do]; the merge
// logic depends on those calls being idempotent and eventually completing
// despite rate limiting and other transient failures. The policy is isolated
// from any one transport by the [Classifier] interface.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/setsum/internal/shared"
)

// Default policy values, matching the Sheets API rate-limit guidance the
// pipeline was tuned against.
const (
	DefaultMaxAttempts = 8
	DefaultBaseDelay   = 1500 * time.Millisecond
	DefaultMaxDelay    = 90 * time.Second
)

// Classifier decides whether an error is worth retrying and extracts an
// optional server-supplied retry-after hint from it.
type Classifier interface {
	// IsRetryable reports whether the operation may be attempted again.
	IsRetryable(err error) bool
	// RetryAfter returns a server-supplied wait hint, if the error carries one.
	RetryAfter(err error) (time.Duration, bool)
}

// Options tunes the backoff policy.
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Sleep is overridable for tests; nil means a context-aware real sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.Sleep == nil {
		o.Sleep = sleep
	}
	return o
}

// Do invokes fn, retrying classified-retryable failures with exponential
// backoff, a server retry-after override, and jitter. A non-retryable failure
// returns the last error as-is; running out of attempts wraps it in
// [shared.ErrRetriesExhausted]. Context cancellation during the backoff sleep
// is terminal.
func Do[T any](ctx context.Context, logger *log.Logger, desc string, c Classifier, opts Options, fn func() (T, error)) (T, error) {
	opts = opts.withDefaults()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !c.IsRetryable(err) {
			return zero, lastErr
		}
		if attempt == opts.MaxAttempts {
			return zero, fmt.Errorf("%w: %s: %w", shared.ErrRetriesExhausted, desc, lastErr)
		}

		backoff := opts.BaseDelay << (attempt - 1)
		if backoff > opts.MaxDelay || backoff <= 0 {
			backoff = opts.MaxDelay
		}
		if hint, ok := c.RetryAfter(err); ok && hint > backoff {
			backoff = hint
		}

		wait := backoff + jitter(backoff)
		if logger != nil {
			logger.Warn("retryable error",
				"op", desc,
				"err", err,
				"attempt", attempt,
				"max_attempts", opts.MaxAttempts,
				"sleep", wait,
			)
		}

		if err := opts.Sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}

// jitter returns a uniform random delay up to the lesser of one second or a
// third of the backoff.
func jitter(backoff time.Duration) time.Duration {
	limit := backoff / 3
	if limit > time.Second {
		limit = time.Second
	}
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(limit)))
}

// sleep waits for d or until the context is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
