package stream

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BackoffConfig controls reconnection delays.
type BackoffConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64 // fraction added on top, 0.2 = up to 20%
}

// Backoff retries a dial function with growing, jittered delays.
type Backoff struct {
	cfg     BackoffConfig
	logger  *zap.Logger
	mu      sync.Mutex
	current time.Duration
}

// NewBackoff creates a Backoff starting at cfg.InitialDelay.
func NewBackoff(cfg BackoffConfig, logger *zap.Logger) *Backoff {
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}
	return &Backoff{cfg: cfg, logger: logger, current: cfg.InitialDelay}
}

// Retry calls dial until it succeeds or ctx is done.
func (b *Backoff) Retry(ctx context.Context, dial func(context.Context) error) error {
	for {
		delay := b.Next()
		b.logger.Info("attempting-reconnection", zap.Duration("backoff", delay))
		ReconnectAttemptsTotal.Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		err := dial(ctx)
		if err == nil {
			b.Reset()
			b.logger.Info("reconnection-successful")
			return nil
		}

		ReconnectFailuresTotal.Inc()
		b.logger.Warn("reconnection-failed", zap.Error(err))
		b.grow()
	}
}

// Next returns the current delay with jitter applied.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Duration(float64(b.current) * (1 + rand.Float64()*b.cfg.Jitter))
}

// Reset returns the delay to its initial value.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.cfg.InitialDelay
}

func (b *Backoff) grow() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = min(time.Duration(float64(b.current)*b.cfg.Multiplier), b.cfg.MaxDelay)
}
