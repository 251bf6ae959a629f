// Package matching decides whether a buy order and a sell order can be settled
// against each other on the exchange.
package matching

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/mselser95/nft-orders/pkg/wyvern"
)

// CalldataMatcher checks byte-level calldata compatibility modulo replacement patterns.
type CalldataMatcher interface {
	CalldataCanMatch(ctx context.Context, buyCalldata, buyPattern, sellCalldata, sellPattern []byte) (bool, error)
}

// ChainMatcher asks the exchange contract itself whether two orders match.
type ChainMatcher interface {
	OrdersCanMatch(ctx context.Context, buy, sell *types.Order) (bool, error)
}

// Config holds validator collaborators. Zero values fall back to the local
// calldata matcher and the wall clock.
type Config struct {
	CalldataMatcher CalldataMatcher
	ChainMatcher    ChainMatcher
	Now             func() time.Time
}

// Validator runs the match rules against buy/sell pairs.
type Validator struct {
	calldata CalldataMatcher
	chain    ChainMatcher
	now      func() time.Time
}

// New creates a validator.
func New(cfg Config) *Validator {
	v := &Validator{
		calldata: cfg.CalldataMatcher,
		chain:    cfg.ChainMatcher,
		now:      cfg.Now,
	}
	if v.calldata == nil {
		v.calldata = wyvern.LocalCalldataMatcher{}
	}
	if v.now == nil {
		v.now = time.Now
	}
	return v
}

// Validate returns nil when buy and sell can be matched, or a *MatchError for
// the first violated rule. Collaborator failures are returned wrapped, not as
// match errors.
func (v *Validator) Validate(ctx context.Context, buy, sell *types.Order) error {
	MatchChecksTotal.Inc()

	if buy.Side != types.SideBuy || sell.Side != types.SideSell {
		return reject(RuleSide, ErrSameSide)
	}
	if buy.FeeMethod != sell.FeeMethod {
		return reject(RuleFeeMethod, ErrFeeMethodMismatch)
	}
	if buy.PaymentToken != sell.PaymentToken {
		return reject(RulePaymentToken, ErrPaymentToken)
	}
	if sell.Taker != types.NullAddress && sell.Taker != buy.Maker {
		return reject(RuleSellTaker, ErrSellTaker)
	}
	if buy.Taker != types.NullAddress && buy.Taker != sell.Maker {
		return reject(RuleBuyTaker, ErrBuyTaker)
	}
	buyHasRecipient := buy.FeeRecipient != types.NullAddress
	sellHasRecipient := sell.FeeRecipient != types.NullAddress
	if buyHasRecipient == sellHasRecipient {
		return reject(RuleFeeRecipient, ErrFeeRecipient)
	}
	if buy.Target != sell.Target {
		return reject(RuleTarget, ErrTarget)
	}
	if buy.HowToCall != sell.HowToCall {
		return reject(RuleHowToCall, ErrHowToCall)
	}

	now := v.now().Unix()
	if !canSettleOrder(buy.ListingTime, buy.ExpirationTime, now) {
		return reject(RuleBuyTime, ErrBuyNotSettleable)
	}
	if !canSettleOrder(sell.ListingTime, sell.ExpirationTime, now) {
		return reject(RuleSellTime, ErrSellNotSettleable)
	}

	ok, err := v.calldata.CalldataCanMatch(ctx, buy.Calldata, buy.ReplacementPattern, sell.Calldata, sell.ReplacementPattern)
	if err != nil {
		return fmt.Errorf("check calldata match: %w", err)
	}
	if !ok {
		return reject(RuleCalldata, ErrCalldata)
	}

	if !saleKindSupported(&buy.UnhashedOrder) || !saleKindSupported(&sell.UnhashedOrder) {
		return reject(RuleSaleKind, ErrUnmatchable)
	}

	if v.chain != nil {
		ok, err = v.chain.OrdersCanMatch(ctx, buy, sell)
		if err != nil {
			return fmt.Errorf("check on-chain match: %w", err)
		}
		if !ok {
			return reject(RuleSaleKind, ErrUnmatchable)
		}
	}

	return nil
}

// CanMatch is Validate as a boolean. Only collaborator failures are returned as errors.
func (v *Validator) CanMatch(ctx context.Context, buy, sell *types.Order) (bool, error) {
	err := v.Validate(ctx, buy, sell)
	if err == nil {
		return true, nil
	}
	var me *MatchError
	if errors.As(err, &me) {
		return false, nil
	}
	return false, err
}

// ValidateOrderParameters checks a single order's sale-kind parameters and that
// it is settleable at the validator's current time.
func (v *Validator) ValidateOrderParameters(o *types.Order) error {
	if o.SaleKind == types.SaleKindDutchAuction {
		if o.Side == types.SideBuy {
			return types.NewValidationError("saleKind", "Buy-side Dutch auctions are not supported.")
		}
		if o.ExpirationTime == nil || o.ExpirationTime.Sign() == 0 {
			return types.NewValidationError("expirationTime", "Dutch auctions must have an expiration time.")
		}
		if endsBelowZero(&o.UnhashedOrder) {
			return types.NewValidationError("extra", "Dutch auction end price must be a number >= 0")
		}
	}
	if !canSettleOrder(o.ListingTime, o.ExpirationTime, v.now().Unix()) {
		if o.Side == types.SideBuy {
			return reject(RuleBuyTime, ErrBuyNotSettleable)
		}
		return reject(RuleSellTime, ErrSellNotSettleable)
	}
	return nil
}

// canSettleOrder mirrors the exchange check: listed strictly before now and not yet expired.
func canSettleOrder(listing, expiration *big.Int, now int64) bool {
	n := big.NewInt(now)
	if listing == nil || listing.Cmp(n) >= 0 {
		return false
	}
	return expiration == nil || expiration.Sign() == 0 || n.Cmp(expiration) < 0
}

// saleKindSupported rejects Dutch auctions the exchange cannot price: those
// without an expiration, those on the buy side and those that decay below zero.
func saleKindSupported(o *types.UnhashedOrder) bool {
	if o.SaleKind != types.SaleKindDutchAuction {
		return true
	}
	if o.Side == types.SideBuy || endsBelowZero(o) {
		return false
	}
	return o.ExpirationTime != nil && o.ExpirationTime.Sign() > 0
}

// endsBelowZero reports whether a Dutch sell's final price basePrice-extra is negative.
func endsBelowZero(o *types.UnhashedOrder) bool {
	return o.Extra != nil && o.BasePrice != nil && o.Extra.Cmp(o.BasePrice) > 0
}
