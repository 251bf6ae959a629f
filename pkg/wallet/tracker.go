package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BalanceFetcher is implemented by Client and test fakes.
type BalanceFetcher interface {
	GetBalances(ctx context.Context, owner, token, spender common.Address) (*Balances, error)
}

// Tracker periodically fetches the maker's balances and updates Prometheus metrics.
type Tracker struct {
	fetcher       BalanceFetcher
	address       common.Address
	token         common.Address
	spender       common.Address
	tokenDecimals int32
	pollInterval  time.Duration
	logger        *zap.Logger
}

// Config holds tracker configuration.
type Config struct {
	Fetcher       BalanceFetcher
	Address       common.Address
	PaymentToken  common.Address
	Spender       common.Address
	TokenDecimals int32
	PollInterval  time.Duration
	Logger        *zap.Logger
}

// New creates a new wallet tracker.
func New(cfg *Config) (t *Tracker, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Fetcher == nil {
		return nil, errors.New("balance fetcher cannot be nil")
	}

	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	tracker := &Tracker{
		fetcher:       cfg.Fetcher,
		address:       cfg.Address,
		token:         cfg.PaymentToken,
		spender:       cfg.Spender,
		tokenDecimals: cfg.TokenDecimals,
		pollInterval:  cfg.PollInterval,
		logger:        cfg.Logger,
	}

	return tracker, nil
}

// Run starts the tracker polling loop (blocking).
func (t *Tracker) Run(ctx context.Context) (err error) {
	t.logger.Info("wallet-tracker-starting",
		zap.Duration("poll-interval", t.pollInterval),
		zap.String("address", t.address.Hex()),
		zap.String("payment-token", t.token.Hex()))

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	// Initial poll
	pollErr := t.poll(ctx)
	if pollErr != nil {
		t.logger.Error("initial-poll-failed", zap.Error(pollErr))
		UpdateErrorsTotal.Inc()
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("wallet-tracker-stopping")
			return ctx.Err()
		case <-ticker.C:
			pollErr = t.poll(ctx)
			if pollErr != nil {
				t.logger.Error("poll-failed", zap.Error(pollErr))
				UpdateErrorsTotal.Inc()
			}
		}
	}
}

// poll performs a single polling cycle.
func (t *Tracker) poll(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		UpdateDuration.Observe(time.Since(start).Seconds())
	}()

	balCtx, balCancel := context.WithTimeout(ctx, 15*time.Second)
	defer balCancel()

	balances, err := t.fetcher.GetBalances(balCtx, t.address, t.token, t.spender)
	if err != nil {
		return fmt.Errorf("get balances: %w", err)
	}

	t.updateMetrics(balances)
	LastUpdateTimestamp.Set(float64(time.Now().Unix()))

	t.logger.Debug("poll-complete", zap.Duration("duration", time.Since(start)))

	return nil
}

// updateMetrics updates Prometheus gauges with wallet data.
func (t *Tracker) updateMetrics(balances *Balances) {
	NativeBalance.Set(wholeUnits(balances.Native, 18))
	PaymentTokenBalance.Set(wholeUnits(balances.Token, t.tokenDecimals))
	PaymentTokenAllowance.Set(wholeUnits(balances.TokenAllowance, t.tokenDecimals))
}

func wholeUnits(v *big.Int, decimals int32) float64 {
	if v == nil {
		return 0
	}
	f, _ := decimal.NewFromBigInt(v, -decimals).Float64()
	return f
}
