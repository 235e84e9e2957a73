package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"productstudio/internal/domain"
)

// QuotaExceededError replaces the underlying error when the provider reports
// an exhausted quota. It matches domain.ErrQuotaExceeded via errors.Is.
type QuotaExceededError struct {
	Cause error
}

func (e *QuotaExceededError) Error() string { return domain.ErrQuotaExceeded.Error() }

func (e *QuotaExceededError) Unwrap() []error { return []error{domain.ErrQuotaExceeded, e.Cause} }

// Policy configures Do. The zero value retries three times using real sleeps.
type Policy struct {
	MaxAttempts int
	// Sleep waits for d or until ctx is done. Tests inject a recorder.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry, when set, runs before each backoff wait.
	OnRetry func(attempt int, kind domain.ErrorKind, delay time.Duration, err error)
}

// DefaultMaxAttempts is used when Policy.MaxAttempts is not positive.
const DefaultMaxAttempts = 3

// Backoff returns the wait before the next attempt after a failure of kind on
// the given 1-based attempt.
func Backoff(kind domain.ErrorKind, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	switch kind {
	case domain.KindRateLimit:
		return time.Duration(attempt) * 30 * time.Second
	case domain.KindNetwork:
		return time.Duration(attempt) * 2 * time.Second
	default:
		return 5 * time.Second * time.Duration(1<<(attempt-1))
	}
}

// Do runs op until it succeeds, the attempts are exhausted or a failure is
// not worth retrying. On the final attempt the original error is returned
// unchanged.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = DefaultMaxAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		if errors.Is(err, domain.ErrCircuitOpen) {
			return zero, err
		}

		kind := Classify(err)
		if kind == domain.KindQuotaExceeded {
			return zero, &QuotaExceededError{Cause: err}
		}
		if attempt >= attempts || !kind.Retryable() {
			return zero, err
		}

		delay := Backoff(kind, attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, kind, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("retry wait interrupted: %w", err)
		}
	}
}

// Run is Do for operations with no result.
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
