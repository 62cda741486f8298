package httputil

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/matzehuels/pipecheck/pkg/errors"
)

// Backoff is a retry schedule: at most Attempts calls, waiting Delay after
// the first failure and twice as long after each later one.
type Backoff struct {
	Attempts int
	Delay    time.Duration
}

// DefaultBackoff is the schedule used by [RetryWithBackoff] for submitting
// pipelines and for connecting to shared cache backends.
var DefaultBackoff = Backoff{Attempts: 3, Delay: time.Second}

// RetryableError marks a transient failure, such as a refused connection or
// a 5xx response, that [Backoff.Do] may attempt again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable marks err as transient. It returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err was marked with [Retryable].
func IsRetryable(err error) bool {
	return stderrors.As(err, new(*RetryableError))
}

// Do calls fn until it succeeds, returns an error not marked retryable, or
// the attempts run out. A zero Attempts still calls fn once.
//
// When the attempts run out, the last failure is returned without its
// retryable mark. A failure that carries no error code is classified as
// NETWORK_ERROR, since only transport failures are marked retryable.
// Cancelling ctx during a wait returns ctx.Err().
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	attempts := max(b.Attempts, 1)
	delay := b.Delay
	var lastErr error

	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err
		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			delay *= 2
		}
	}
	return exhausted(lastErr, attempts)
}

func exhausted(err error, attempts int) error {
	var re *RetryableError
	if stderrors.As(err, &re) {
		err = re.Err
	}
	if errors.GetCode(err) == errors.ErrCodeInternal {
		return errors.Wrap(errors.ErrCodeNetwork, err, "giving up after %d attempts", attempts)
	}
	return err
}

// Retry runs fn under a [Backoff] of the given attempts and initial delay.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	return Backoff{Attempts: attempts, Delay: delay}.Do(ctx, fn)
}

// RetryWithBackoff runs fn under [DefaultBackoff].
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return DefaultBackoff.Do(ctx, fn)
}
