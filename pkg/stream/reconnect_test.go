package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBackoff_GrowsAndCaps(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     300 * time.Millisecond,
		Multiplier:   2,
	}, zap.NewNop())

	assert.Equal(t, 100*time.Millisecond, b.Next())
	b.grow()
	assert.Equal(t, 200*time.Millisecond, b.Next())
	b.grow()
	assert.Equal(t, 300*time.Millisecond, b.Next())
	b.grow()
	assert.Equal(t, 300*time.Millisecond, b.Next())

	b.Reset()
	assert.Equal(t, 100*time.Millisecond, b.Next())
}

func TestBackoff_JitterBounds(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2,
		Jitter:       0.2,
	}, zap.NewNop())

	for range 50 {
		d := b.Next()
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 120*time.Millisecond)
	}
}

func TestBackoff_ConfigNormalized(t *testing.T) {
	b := NewBackoff(BackoffConfig{InitialDelay: time.Second, MaxDelay: time.Millisecond}, zap.NewNop())
	assert.Equal(t, float64(1), b.cfg.Multiplier)
	assert.Equal(t, time.Second, b.cfg.MaxDelay)
}

func TestBackoff_RetryUntilSuccess(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}, zap.NewNop())

	calls := 0
	err := b.Retry(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, time.Millisecond, b.Next(), "success resets the delay")
}

func TestBackoff_RetryStopsOnCancel(t *testing.T) {
	b := NewBackoff(BackoffConfig{InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := b.Retry(ctx, func(context.Context) error {
		t.Fatal("dial must not run before the delay elapses")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
