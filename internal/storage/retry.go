package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryOptions bound the retry loop of a RetryingSink.
type RetryOptions struct {
	MaxRetries      int           // retries after the first attempt
	InitialInterval time.Duration // first backoff delay
	MaxInterval     time.Duration // backoff ceiling
	AttemptTimeout  time.Duration // per-attempt deadline, 0 = none
}

// DefaultRetryOptions returns the settings used by the CLI.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		AttemptTimeout:  2 * time.Minute,
	}
}

// AttemptObserver is notified after every failed attempt.
type AttemptObserver func(attempt int, err error, retrying bool)

// RetryingSink retries transient failures of the wrapped sink with bounded
// exponential backoff. Permanent failures return immediately.
type RetryingSink struct {
	next     StatisticsSink
	opts     RetryOptions
	logger   *log.Logger
	observer AttemptObserver
}

var _ StatisticsSink = (*RetryingSink)(nil)

// NewRetryingSink wraps next.
func NewRetryingSink(next StatisticsSink, opts RetryOptions, logger *log.Logger, observer AttemptObserver) *RetryingSink {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &RetryingSink{next: next, opts: opts, logger: logger, observer: observer}
}

// ReplaceScope forwards to the wrapped sink. Exhaustion or a permanent error
// is reported as *SinkWriteFailure.
func (s *RetryingSink) ReplaceScope(ctx context.Context, scope Scope, batch Batch) error {
	if err := batch.Validate(scope); err != nil {
		return &SinkWriteFailure{Scope: scope, Attempts: 0, Err: err}
	}

	eb := backoff.NewExponentialBackOff()
	if s.opts.InitialInterval > 0 {
		eb.InitialInterval = s.opts.InitialInterval
	}
	if s.opts.MaxInterval > 0 {
		eb.MaxInterval = s.opts.MaxInterval
	}
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.opts.MaxRetries)), ctx)

	attempts := 0
	op := func() error {
		attempts++
		err := s.attempt(ctx, scope, batch)
		if err == nil {
			return nil
		}
		retrying := IsTransient(err) && attempts <= s.opts.MaxRetries && ctx.Err() == nil
		if s.observer != nil {
			s.observer(attempts, err, retrying)
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		if s.logger != nil {
			s.logger.Printf("write %s failed (attempt %d): %v; retrying in %s", scope, attempts, err, wait.Round(time.Millisecond))
		}
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return &SinkWriteFailure{Scope: scope, Attempts: attempts, Err: err}
	}
	return nil
}

func (s *RetryingSink) attempt(ctx context.Context, scope Scope, batch Batch) error {
	if s.opts.AttemptTimeout <= 0 {
		return s.next.ReplaceScope(ctx, scope, batch)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, s.opts.AttemptTimeout)
	defer cancel()

	err := s.next.ReplaceScope(attemptCtx, scope, batch)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: attempt timed out after %s: %v", ErrTransient, s.opts.AttemptTimeout, err)
	}
	return err
}
