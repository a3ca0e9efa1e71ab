package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-wallet/retry"
)

var fast = retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	got, err := retry.Do(context.Background(), fast, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	calls := 0
	_, err := retry.Do(context.Background(), fast, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("down")
	})

	require.EqualError(t, err, "down")
	assert.Equal(t, 3, calls)
}

func TestDoDoesNotRetryPermanent(t *testing.T) {
	calls := 0
	_, err := retry.Do(context.Background(), fast, func(ctx context.Context) (int, error) {
		calls++
		return 0, retry.Permanent(errors.New("bad request"))
	})

	require.Error(t, err)
	assert.True(t, retry.IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestDoAppliesPerAttemptTimeout(t *testing.T) {
	cfg := fast
	cfg.Timeout = 5 * time.Millisecond

	calls := 0
	_, err := retry.Do(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 3, calls)
}

func TestDoHonorsParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := retry.Do(ctx, fast, func(ctx context.Context) (int, error) {
		calls++
		return 0, nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
