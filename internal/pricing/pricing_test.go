package pricing

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var weth = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestTimeParameters(t *testing.T) {
	t.Parallel()

	const now = int64(1_700_000_000)

	tests := []struct {
		name        string
		expiration  int64
		listing     int64
		english     bool
		wantListing int64
		wantExpiry  int64
		errPart     string
	}{
		{
			name:        "defaults",
			wantListing: now - ListingTimeOffsetSeconds,
		},
		{
			name:        "explicit-window",
			expiration:  now + 3600,
			listing:     now + 60,
			wantListing: now + 60,
			wantExpiry:  now + 3600,
		},
		{
			name:       "expiration-too-soon",
			expiration: now + 5,
			errPart:    "Expiration time must be at least 10 seconds from now, or zero (non-expiring).",
		},
		{
			name:       "expiration-exactly-at-floor",
			expiration: now + MinExpirationSeconds,
			errPart:    "Expiration time must be at least 10 seconds from now, or zero (non-expiring).",
		},
		{
			name:       "window-too-short-after-listing",
			expiration: now + 105,
			listing:    now + 100,
			errPart:    "Expiration time must be at least 10 seconds after the listing time.",
		},
		{
			name:       "window-at-floor-after-listing",
			expiration: now + 110,
			listing:    now + 100,
			errPart:    "Expiration time must be at least 10 seconds after the listing time.",
		},
		{
			name:        "window-just-above-floor",
			expiration:  now + 111,
			listing:     now + 100,
			wantListing: now + 100,
			wantExpiry:  now + 111,
		},
		{
			name:    "listing-in-past",
			listing: now - 1,
			errPart: "Listing time cannot be in the past.",
		},
		{
			name:       "listing-after-expiration",
			expiration: now + 100,
			listing:    now + 100,
			errPart:    "Listing time must be before the expiration time.",
		},
		{
			name:    "english-without-expiration",
			english: true,
			errPart: "English auctions must have an expiration time.",
		},
		{
			name:       "english-scheduled",
			english:    true,
			expiration: now + 3600,
			listing:    now + 60,
			errPart:    "Cannot schedule an English auction for the future.",
		},
		{
			name:        "english-auction-window",
			english:     true,
			expiration:  now + 3600,
			wantListing: now + 3600,
			wantExpiry:  now + 3600 + OrderMatchingLatencySeconds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			listing, expiration, err := TimeParameters(now, tt.expiration, tt.listing, tt.english)
			if tt.errPart != "" {
				require.Error(t, err)
				assert.True(t, types.IsValidationError(err))
				assert.Contains(t, err.Error(), tt.errPart)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantListing, listing)
			assert.Equal(t, tt.wantExpiry, expiration)
		})
	}
}

func TestPriceParameters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		params    PriceParams
		wantBase  string
		wantExtra string
		wantKind  types.SaleKind
		errPart   string
	}{
		{
			name:     "fixed-price-eth",
			params:   PriceParams{Side: types.SideSell, Decimals: 18, StartAmount: decimal.RequireFromString("1.5")},
			wantBase: "1500000000000000000", wantExtra: "0", wantKind: types.SaleKindFixedPrice,
		},
		{
			name: "dutch-auction",
			params: PriceParams{
				Side: types.SideSell, Decimals: 18, ExpirationTime: 100,
				StartAmount: decimal.RequireFromString("2"), EndAmount: dec("1"),
			},
			wantBase: "2000000000000000000", wantExtra: "1000000000000000000", wantKind: types.SaleKindDutchAuction,
		},
		{
			name: "equal-end-is-fixed",
			params: PriceParams{
				Side: types.SideSell, Decimals: 6, StartAmount: decimal.RequireFromString("3"), EndAmount: dec("3"),
			},
			wantBase: "3000000", wantExtra: "0", wantKind: types.SaleKindFixedPrice,
		},
		{
			name: "changing-price-without-expiration",
			params: PriceParams{
				Side: types.SideSell, Decimals: 18, StartAmount: decimal.RequireFromString("2"), EndAmount: dec("1"),
			},
			errPart: "Expiration time must be set if order will change in price.",
		},
		{
			name: "end-above-start",
			params: PriceParams{
				Side: types.SideSell, Decimals: 18, StartAmount: decimal.RequireFromString("2"), EndAmount: dec("3"),
			},
			errPart: "End price must be less than or equal to the start price.",
		},
		{
			name: "negative-end",
			params: PriceParams{
				Side: types.SideSell, Decimals: 18, ExpirationTime: 2_000_000_000,
				StartAmount: decimal.RequireFromString("1"), EndAmount: dec("-1"),
			},
			errPart: "End price must be a number >= 0",
		},
		{
			name: "dutch-down-to-zero",
			params: PriceParams{
				Side: types.SideSell, Decimals: 18, ExpirationTime: 2_000_000_000,
				StartAmount: decimal.RequireFromString("1"), EndAmount: dec("0"),
			},
			wantBase: "1000000000000000000", wantExtra: "1000000000000000000", wantKind: types.SaleKindDutchAuction,
		},
		{
			name: "english-without-expiration",
			params: PriceParams{
				Side: types.SideSell, Decimals: 18, PaymentToken: weth, WrappedNative: weth,
				StartAmount: decimal.RequireFromString("1"), WaitForHighestBid: true,
			},
			errPart: "auctions must have an expiration time.",
		},
		{
			name: "english-with-eth",
			params: PriceParams{
				Side: types.SideSell, Decimals: 18, WrappedNative: weth, ExpirationTime: 100,
				StartAmount: decimal.RequireFromString("1"), WaitForHighestBid: true,
			},
			errPart: "English auctions must use wrapped ETH.",
		},
		{
			name: "english-with-other-erc20",
			params: PriceParams{
				Side: types.SideSell, Decimals: 18, WrappedNative: weth, ExpirationTime: 100,
				PaymentToken: common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f"),
				StartAmount:  decimal.RequireFromString("1"), WaitForHighestBid: true,
			},
			errPart: "English auctions must use wrapped ETH.",
		},
		{
			name:    "offer-with-eth",
			params:  PriceParams{Side: types.SideBuy, Decimals: 18, StartAmount: decimal.RequireFromString("1")},
			errPart: "Offers must use wrapped ETH or an ERC-20 token.",
		},
		{
			name:    "negative-start",
			params:  PriceParams{Side: types.SideSell, Decimals: 18, StartAmount: decimal.RequireFromString("-1")},
			errPart: "Starting price must be a number >= 0",
		},
		{
			name: "reserve-without-english",
			params: PriceParams{
				Side: types.SideSell, Decimals: 18, StartAmount: decimal.RequireFromString("1"), ReservePrice: dec("2"),
			},
			errPart: "Reserve prices may only be set on English auctions.",
		},
		{
			name: "reserve-below-start",
			params: PriceParams{
				Side: types.SideSell, Decimals: 18, PaymentToken: weth, WrappedNative: weth, ExpirationTime: 100,
				StartAmount: decimal.RequireFromString("2"), WaitForHighestBid: true, ReservePrice: dec("1"),
			},
			errPart: "Reserve price must be greater than or equal to the start amount.",
		},
		{
			name:    "too-many-decimals",
			params:  PriceParams{Side: types.SideSell, Decimals: 2, StartAmount: decimal.RequireFromString("1.001")},
			errPart: "more decimal places",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := PriceParameters(tt.params)
			if tt.errPart != "" {
				require.Error(t, err)
				assert.True(t, types.IsValidationError(err))
				assert.Contains(t, err.Error(), tt.errPart)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, got.BasePrice.String())
			assert.Equal(t, tt.wantExtra, got.Extra.String())
			assert.Equal(t, tt.wantKind, got.SaleKind)
		})
	}
}

func TestPriceParameters_ReservePrice(t *testing.T) {
	t.Parallel()

	got, err := PriceParameters(PriceParams{
		Side: types.SideSell, Decimals: 18, PaymentToken: weth, WrappedNative: weth, ExpirationTime: 100,
		StartAmount: decimal.RequireFromString("1"), WaitForHighestBid: true, ReservePrice: dec("2.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2500000000000000000", got.ReservePrice.String())
}

func dutchOrder(side types.Side) *types.UnhashedOrder {
	return &types.UnhashedOrder{
		Side:           side,
		SaleKind:       types.SaleKindDutchAuction,
		BasePrice:      big.NewInt(2000),
		Extra:          big.NewInt(1000),
		ListingTime:    big.NewInt(1000),
		ExpirationTime: big.NewInt(2000),
	}
}

func TestCurrentPrice_FixedPrice(t *testing.T) {
	t.Parallel()

	o := &types.UnhashedOrder{
		SaleKind:       types.SaleKindFixedPrice,
		BasePrice:      big.NewInt(12345),
		Extra:          big.NewInt(999),
		ListingTime:    big.NewInt(0),
		ExpirationTime: big.NewInt(10),
	}

	for _, ts := range []int64{0, 5, 10, 1_000_000} {
		got := CurrentPrice(o, time.Unix(ts, 0), 0, true)
		assert.True(t, got.Equal(decimal.NewFromInt(12345)), "at %d got %s", ts, got)
	}
}

func TestCurrentPrice_DutchSell(t *testing.T) {
	t.Parallel()

	o := dutchOrder(types.SideSell)

	assert.Equal(t, "2000", CurrentPrice(o, time.Unix(1000, 0), 0, false).String())
	assert.Equal(t, "1500", CurrentPrice(o, time.Unix(1500, 0), 0, false).String())
	assert.Equal(t, "1000", CurrentPrice(o, time.Unix(2000, 0), 0, false).String())
	assert.Equal(t, "1000", CurrentPrice(o, time.Unix(5000, 0), 0, false).String())

	// Backtracking moves the evaluation point earlier, so the sell price is higher.
	assert.Equal(t, "1530", CurrentPrice(o, time.Unix(1500, 0), 30*time.Second, false).String())

	prev := CurrentPrice(o, time.Unix(900, 0), 0, true)
	for ts := int64(900); ts <= 2100; ts += 7 {
		cur := CurrentPrice(o, time.Unix(ts, 0), 0, true)
		assert.True(t, cur.LessThanOrEqual(prev), "price rose at %d: %s > %s", ts, cur, prev)
		prev = cur
	}
}

func TestCurrentPrice_DutchBuy(t *testing.T) {
	t.Parallel()

	o := dutchOrder(types.SideBuy)

	assert.Equal(t, "3000", CurrentPrice(o, time.Unix(2000, 0), 0, false).String())

	prev := CurrentPrice(o, time.Unix(900, 0), 0, true)
	for ts := int64(900); ts <= 2100; ts += 7 {
		cur := CurrentPrice(o, time.Unix(ts, 0), 0, true)
		assert.True(t, cur.GreaterThanOrEqual(prev), "price fell at %d: %s < %s", ts, cur, prev)
		prev = cur
	}
}

func TestCurrentPrice_RoundUp(t *testing.T) {
	t.Parallel()

	o := dutchOrder(types.SideSell)
	o.Extra = big.NewInt(1)

	exact := CurrentPrice(o, time.Unix(1333, 0), 0, false)
	rounded := CurrentPrice(o, time.Unix(1333, 0), 0, true)

	assert.False(t, exact.IsInteger())
	assert.True(t, rounded.IsInteger())
	assert.Equal(t, "2000", rounded.String())
}

func TestCurrentPrice_DutchWithoutExpiration(t *testing.T) {
	t.Parallel()

	o := dutchOrder(types.SideSell)
	o.ExpirationTime = big.NewInt(0)

	assert.Equal(t, "2000", CurrentPrice(o, time.Unix(1500, 0), 0, false).String())
}

func TestCurrentPriceWithFees(t *testing.T) {
	t.Parallel()

	o := &types.UnhashedOrder{
		Side:            types.SideSell,
		SaleKind:        types.SaleKindFixedPrice,
		BasePrice:       big.NewInt(10000),
		TakerRelayerFee: big.NewInt(250),
	}

	assert.Equal(t, "10250", CurrentPriceWithFees(o, time.Unix(0, 0), 0, true).String())

	o.WaitingForBestCounterOrder = true
	assert.Equal(t, "10000", CurrentPriceWithFees(o, time.Unix(0, 0), 0, true).String())

	o.Side = types.SideBuy
	o.WaitingForBestCounterOrder = false
	assert.Equal(t, "10000", CurrentPriceWithFees(o, time.Unix(0, 0), 0, true).String())
}

func TestBaseUnits(t *testing.T) {
	t.Parallel()

	v, err := ToBaseUnits(decimal.RequireFromString("0.000001"), 6)
	require.NoError(t, err)
	assert.Equal(t, "1", v.String())

	assert.Equal(t, "1.5", FromBaseUnits(big.NewInt(1500), 3).String())
	assert.True(t, FromBaseUnits(nil, 18).IsZero())
}
