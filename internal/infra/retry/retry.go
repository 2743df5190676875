// Package retry runs an operation with exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Policy configures Do. The wait after the n-th failed attempt (0-based) is BaseDelay * 2^n.
// There is no wait after the final attempt.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// OnRetry, if set, is called before each wait with the 1-based number of the failed attempt.
	OnRetry func(attempt int, err error, wait time.Duration)
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns it unwrapped immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// wait blocks for d or until ctx is done. Replaced in tests.
var wait = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do executes op until it succeeds or the policy's attempts are used up, and returns
// the last error. A cancelled ctx stops the backoff early.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}
		d := p.BaseDelay * time.Duration(1<<attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err, d)
		}
		if werr := wait(ctx, d); werr != nil {
			return zero, errors.Join(lastErr, werr)
		}
	}
	return zero, lastErr
}

// LogRetries returns an OnRetry hook that logs each failed attempt at debug level.
func LogRetries(logger *logrus.Entry) func(attempt int, err error, wait time.Duration) {
	return func(attempt int, err error, wait time.Duration) {
		logger.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"wait":    wait.String(),
		}).Debug("Attempt failed, retrying")
	}
}
