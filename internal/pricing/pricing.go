// Package pricing resolves order time windows and price fields, and estimates the
// current settlement price of fixed-price and Dutch-auction orders.
package pricing

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/shopspring/decimal"
)

const (
	// OrderMatchingLatencySeconds is how long an English auction stays open for
	// the matching infrastructure after bidding ends.
	OrderMatchingLatencySeconds = 7 * 24 * 60 * 60

	MinExpirationSeconds = 10

	// DefaultBacktrackSeconds tolerates clock skew between the client and the chain.
	DefaultBacktrackSeconds = 30

	// ListingTimeOffsetSeconds backdates default listing times to absorb latency.
	ListingTimeOffsetSeconds = 100
)

const inverseBasisPoint = 10000

// TimeParameters resolves the listing and expiration timestamps of a new order.
// A zero listing means "not specified"; a zero expiration means "never expires".
func TimeParameters(now, expiration, listing int64, waitForHighestBid bool) (int64, int64, error) {
	if expiration != 0 && expiration-now <= MinExpirationSeconds {
		return 0, 0, types.NewValidationError("expirationTime",
			"Expiration time must be at least %d seconds from now, or zero (non-expiring).", MinExpirationSeconds)
	}
	if listing != 0 && listing < now {
		return 0, 0, types.NewValidationError("listingTime", "Listing time cannot be in the past.")
	}
	if listing != 0 && expiration != 0 && listing >= expiration {
		return 0, 0, types.NewValidationError("listingTime", "Listing time must be before the expiration time.")
	}

	if waitForHighestBid {
		if expiration == 0 {
			return 0, 0, types.NewValidationError("expirationTime", "English auctions must have an expiration time.")
		}
		if listing != 0 {
			return 0, 0, types.NewValidationError("listingTime", "Cannot schedule an English auction for the future.")
		}
		// The order only becomes settleable once bidding has closed.
		return expiration, expiration + OrderMatchingLatencySeconds, nil
	}

	if listing == 0 {
		listing = now - ListingTimeOffsetSeconds
	}
	if expiration != 0 && expiration <= listing+MinExpirationSeconds {
		return 0, 0, types.NewValidationError("expirationTime",
			"Expiration time must be at least %d seconds after the listing time.", MinExpirationSeconds)
	}
	return listing, expiration, nil
}

// PriceParams is the input to PriceParameters. Amounts are in whole token units.
type PriceParams struct {
	Side              types.Side
	PaymentToken      common.Address
	WrappedNative     common.Address
	Decimals          int32
	ExpirationTime    int64
	StartAmount       decimal.Decimal
	EndAmount         *decimal.Decimal
	WaitForHighestBid bool
	ReservePrice      *decimal.Decimal
}

// PriceResult holds the price fields for an order, in the token's smallest unit.
type PriceResult struct {
	BasePrice    *big.Int
	Extra        *big.Int
	SaleKind     types.SaleKind
	ReservePrice *big.Int
}

// PriceParameters validates a price intent and scales it into base units.
func PriceParameters(p PriceParams) (*PriceResult, error) {
	isNative := p.PaymentToken == types.NullAddress

	priceDiff := decimal.Zero
	if p.EndAmount != nil {
		priceDiff = p.StartAmount.Sub(*p.EndAmount)
	}

	if p.StartAmount.IsNegative() {
		return nil, types.NewValidationError("startAmount", "Starting price must be a number >= 0")
	}
	if p.WaitForHighestBid && (isNative || p.PaymentToken != p.WrappedNative) {
		return nil, types.NewValidationError("paymentToken", "English auctions must use wrapped ETH.")
	}
	if isNative && p.Side == types.SideBuy {
		return nil, types.NewValidationError("paymentToken", "Offers must use wrapped ETH or an ERC-20 token.")
	}
	if p.EndAmount != nil && p.EndAmount.IsNegative() {
		return nil, types.NewValidationError("endAmount", "End price must be a number >= 0")
	}
	if priceDiff.IsNegative() {
		return nil, types.NewValidationError("endAmount", "End price must be less than or equal to the start price.")
	}
	if priceDiff.IsPositive() && p.ExpirationTime == 0 {
		return nil, types.NewValidationError("expirationTime", "Expiration time must be set if order will change in price.")
	}
	if p.ReservePrice != nil && !p.WaitForHighestBid {
		return nil, types.NewValidationError("reservePrice", "Reserve prices may only be set on English auctions.")
	}
	if p.ReservePrice != nil && p.ReservePrice.LessThan(p.StartAmount) {
		return nil, types.NewValidationError("reservePrice", "Reserve price must be greater than or equal to the start amount.")
	}
	if p.WaitForHighestBid && p.ExpirationTime == 0 {
		return nil, types.NewValidationError("expirationTime", "English auctions must have an expiration time.")
	}

	basePrice, err := ToBaseUnits(p.StartAmount, p.Decimals)
	if err != nil {
		return nil, err
	}
	extra, err := ToBaseUnits(priceDiff, p.Decimals)
	if err != nil {
		return nil, err
	}

	result := &PriceResult{
		BasePrice: basePrice,
		Extra:     extra,
		SaleKind:  types.SaleKindFixedPrice,
	}
	if extra.Sign() > 0 {
		result.SaleKind = types.SaleKindDutchAuction
	}
	if p.ReservePrice != nil {
		result.ReservePrice, err = ToBaseUnits(*p.ReservePrice, p.Decimals)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// ToBaseUnits scales amount by 10^decimals. Amounts with more fractional digits
// than the token supports are rejected rather than truncated.
func ToBaseUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	scaled := amount.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, types.NewValidationError("amount",
			"Amount %s has more decimal places than the token supports (%d).", amount.String(), decimals)
	}
	return scaled.BigInt(), nil
}

// FromBaseUnits converts a base-unit integer back into whole token units.
func FromBaseUnits(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}

// CurrentPrice estimates the price an order settles at, in base units. Dutch
// auctions interpolate linearly between listing and expiration; the elapsed time
// is clamped so the price never leaves the [start, end] range.
func CurrentPrice(o *types.UnhashedOrder, now time.Time, backtrack time.Duration, roundUp bool) decimal.Decimal {
	price := intDecimal(o.BasePrice)

	if o.SaleKind == types.SaleKindDutchAuction {
		price = price.Add(dutchDelta(o, now, backtrack))
	}

	if roundUp {
		return price.Ceil()
	}
	return price
}

// CurrentPriceWithFees adds the taker relayer fee a buyer pays on top of a
// listing. Orders waiting for the best counter order are filled by the seller,
// so their price is returned unchanged.
func CurrentPriceWithFees(o *types.UnhashedOrder, now time.Time, backtrack time.Duration, roundUp bool) decimal.Decimal {
	price := CurrentPrice(o, now, backtrack, false)

	if o.Side == types.SideSell && !o.WaitingForBestCounterOrder {
		fee := intDecimal(o.TakerRelayerFee)
		multiplier := decimal.NewFromInt(1).Add(fee.Div(decimal.NewFromInt(inverseBasisPoint)))
		price = price.Mul(multiplier)
	}

	if roundUp {
		return price.Ceil()
	}
	return price
}

// dutchDelta is the signed price movement since listing: negative for sells,
// positive for buys.
func dutchDelta(o *types.UnhashedOrder, now time.Time, backtrack time.Duration) decimal.Decimal {
	listing := intDecimal(o.ListingTime)
	expiration := intDecimal(o.ExpirationTime)
	duration := expiration.Sub(listing)
	if !duration.IsPositive() {
		return decimal.Zero
	}

	at := decimal.NewFromInt(now.Add(-backtrack).Unix())
	elapsed := at.Sub(listing)
	if elapsed.IsNegative() {
		elapsed = decimal.Zero
	}
	if elapsed.GreaterThan(duration) {
		elapsed = duration
	}

	delta := intDecimal(o.Extra).Mul(elapsed).Div(duration)
	if o.Side == types.SideSell {
		return delta.Neg()
	}
	return delta
}

func intDecimal(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, 0)
}
