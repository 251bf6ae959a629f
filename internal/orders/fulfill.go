package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/nft-orders/pkg/types"
	"go.uber.org/zap"
)

const defaultMatchRetryDelay = 500 * time.Millisecond

// MatchValidator checks that a buy/sell pair can settle.
type MatchValidator interface {
	Validate(ctx context.Context, buy, sell *types.Order) error
}

// FulfillerConfig holds fulfiller collaborators.
type FulfillerConfig struct {
	Builder    *Builder
	Validator  MatchValidator
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Fulfiller prepares the counter order that fills an existing order.
type Fulfiller struct {
	builder    *Builder
	validator  MatchValidator
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewFulfiller creates a fulfiller.
func NewFulfiller(cfg *FulfillerConfig) (*Fulfiller, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Builder == nil {
		return nil, fmt.Errorf("builder cannot be nil")
	}
	if cfg.Validator == nil {
		return nil, fmt.Errorf("validator cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultMatchRetryDelay
	}

	return &Fulfiller{
		builder:    cfg.Builder,
		validator:  cfg.Validator,
		retryDelay: delay,
		logger:     cfg.Logger,
	}, nil
}

// Fulfill builds the matching order for account and returns the validated
// (buy, sell) pair ready for settlement. A null recipient means account.
func (f *Fulfiller) Fulfill(ctx context.Context, order *types.Order, account, recipient common.Address) (buy, sell *types.Order, err error) {
	if order.Cancelled {
		FulfillmentsTotal.WithLabelValues("cancelled").Inc()
		return nil, nil, fmt.Errorf("fulfill order %s: %w", order.Hash.Hex(), types.ErrOrderCancelled)
	}
	if order.Finalized {
		FulfillmentsTotal.WithLabelValues("finalized").Inc()
		return nil, nil, fmt.Errorf("fulfill order %s: %w", order.Hash.Hex(), types.ErrOrderFinalized)
	}

	if recipient == types.NullAddress {
		recipient = account
	}

	matching, err := f.builder.BuildMatchingOrder(order, account, recipient)
	if err != nil {
		FulfillmentsTotal.WithLabelValues("error").Inc()
		return nil, nil, fmt.Errorf("build matching order: %w", err)
	}

	buy, sell = AssignSides(order, matching)

	err = f.validateWithRetry(ctx, buy, sell)
	if err != nil {
		FulfillmentsTotal.WithLabelValues("rejected").Inc()
		return nil, nil, fmt.Errorf("validate match for %s: %w", order.Hash.Hex(), err)
	}

	FulfillmentsTotal.WithLabelValues("matched").Inc()
	f.logger.Info("order-matched",
		zap.String("order-hash", order.Hash.Hex()),
		zap.String("matching-hash", matching.Hash.Hex()),
		zap.String("account", account.Hex()))

	return buy, sell, nil
}

// validateWithRetry allows one retry after a fixed delay, which absorbs clock
// skew around freshly listed orders.
func (f *Fulfiller) validateWithRetry(ctx context.Context, buy, sell *types.Order) error {
	err := f.validator.Validate(ctx, buy, sell)
	if err == nil {
		return nil
	}

	f.logger.Warn("match-validation-retry",
		zap.Error(err),
		zap.Duration("delay", f.retryDelay))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.retryDelay):
	}

	return f.validator.Validate(ctx, buy, sell)
}
