package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productstudio/internal/domain"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 30*time.Second, Backoff(domain.KindRateLimit, 1))
	assert.Equal(t, 60*time.Second, Backoff(domain.KindRateLimit, 2))
	assert.Equal(t, 2*time.Second, Backoff(domain.KindNetwork, 1))
	assert.Equal(t, 4*time.Second, Backoff(domain.KindNetwork, 2))
	assert.Equal(t, 5*time.Second, Backoff(domain.KindUnknown, 1))
	assert.Equal(t, 10*time.Second, Backoff(domain.KindUnknown, 2))
	assert.Equal(t, 20*time.Second, Backoff(domain.KindUnknown, 3))
}

func TestDoNetworkErrorExhaustsAttempts(t *testing.T) {
	rec := &sleepRecorder{}
	original := errors.New("network unreachable")
	calls := 0
	var observed []int

	_, err := Do(context.Background(), Policy{
		MaxAttempts: 3,
		Sleep:       rec.sleep,
		OnRetry: func(attempt int, kind domain.ErrorKind, _ time.Duration, _ error) {
			assert.Equal(t, domain.KindNetwork, kind)
			observed = append(observed, attempt)
		},
	}, func(context.Context) (string, error) {
		calls++
		return "", original
	})

	require.Error(t, err)
	assert.Same(t, original, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.delays)
	assert.Equal(t, []int{1, 2}, observed)
}

func TestDoQuotaAbortsImmediately(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0

	_, err := Do(context.Background(), Policy{MaxAttempts: 3, Sleep: rec.sleep}, func(context.Context) (int, error) {
		calls++
		return 0, statusErr{403, "permission denied"}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestDoRecoversAfterTransientFailure(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0

	v, err := Do(context.Background(), Policy{Sleep: rec.sleep}, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", statusErr{429, "slow down"}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, []time.Duration{30 * time.Second}, rec.delays)
}

func TestDoStopsOnStructuralAndCircuitErrors(t *testing.T) {
	for _, sentinel := range []error{domain.ErrCircuitOpen, domain.ErrContentBlocked, domain.ErrParse} {
		rec := &sleepRecorder{}
		calls := 0
		err := Run(context.Background(), Policy{Sleep: rec.sleep}, func(context.Context) error {
			calls++
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, calls, sentinel.Error())
		assert.Empty(t, rec.delays)
	}
}

func TestDoHonoursCancellationDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Run(ctx, Policy{Sleep: func(ctx context.Context, _ time.Duration) error {
		cancel()
		return SleepContext(ctx, time.Hour)
	}}, func(context.Context) error {
		calls++
		return errors.New("boom")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
