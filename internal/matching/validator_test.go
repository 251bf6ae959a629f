package matching

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/mselser95/nft-orders/pkg/wyvern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seller       = common.HexToAddress("0x1111111111111111111111111111111111111111")
	buyer        = common.HexToAddress("0x2222222222222222222222222222222222222222")
	nftContract  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	weth         = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	feeRecipient = common.HexToAddress("0x5b3256965e7c3cf26e11fcaf296dfc8807c01073")
	fixedNow     = time.Unix(1_700_000_000, 0)
)

func fixedClock() time.Time { return fixedNow }

// matchingPair returns a sell listing and a buy order that fills it.
func matchingPair(t *testing.T) (*types.Order, *types.Order) {
	t.Helper()

	enc, err := wyvern.NewSchemaEncoder(types.NullAddress)
	require.NoError(t, err)

	asset := types.Asset{TokenAddress: nftContract, TokenID: "7"}
	sellCall, err := enc.EncodeSell(asset, nil, seller)
	require.NoError(t, err)
	buyCall, err := enc.EncodeBuy(asset, nil, buyer)
	require.NoError(t, err)

	base := func() types.UnhashedOrder {
		return types.UnhashedOrder{
			MakerRelayerFee:  big.NewInt(250),
			TakerRelayerFee:  big.NewInt(0),
			MakerProtocolFee: big.NewInt(0),
			TakerProtocolFee: big.NewInt(0),
			MakerReferrerFee: big.NewInt(0),
			FeeMethod:        types.FeeMethodSplitFee,
			SaleKind:         types.SaleKindFixedPrice,
			Target:           nftContract,
			HowToCall:        types.HowToCallCall,
			PaymentToken:     weth,
			BasePrice:        big.NewInt(1000),
			Extra:            big.NewInt(0),
			ListingTime:      big.NewInt(fixedNow.Unix() - 100),
			ExpirationTime:   big.NewInt(0),
			Salt:             big.NewInt(1),
		}
	}

	s := base()
	s.Maker = seller
	s.Side = types.SideSell
	s.FeeRecipient = feeRecipient
	s.Calldata = sellCall.Calldata
	s.ReplacementPattern = sellCall.ReplacementPattern

	b := base()
	b.Maker = buyer
	b.Side = types.SideBuy
	b.FeeRecipient = types.NullAddress
	b.Calldata = buyCall.Calldata
	b.ReplacementPattern = buyCall.ReplacementPattern

	return wyvern.Hashed(&b), wyvern.Hashed(&s)
}

func TestValidate_ValidPair(t *testing.T) {
	t.Parallel()

	v := New(Config{Now: fixedClock})
	buy, sell := matchingPair(t)

	require.NoError(t, v.Validate(context.Background(), buy, sell))

	ok, err := v.CanMatch(context.Background(), buy, sell)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidate_Rules(t *testing.T) {
	t.Parallel()

	other := common.HexToAddress("0x9999999999999999999999999999999999999999")

	tests := []struct {
		name    string
		mutate  func(buy, sell *types.Order)
		wantErr error
		rule    string
	}{
		{
			name:    "same-side",
			mutate:  func(buy, sell *types.Order) { buy.Side = types.SideSell },
			wantErr: ErrSameSide,
			rule:    RuleSide,
		},
		{
			name:    "fee-method",
			mutate:  func(buy, sell *types.Order) { buy.FeeMethod = types.FeeMethodProtocolFee },
			wantErr: ErrFeeMethodMismatch,
			rule:    RuleFeeMethod,
		},
		{
			name:    "payment-token",
			mutate:  func(buy, sell *types.Order) { buy.PaymentToken = types.NullAddress },
			wantErr: ErrPaymentToken,
			rule:    RulePaymentToken,
		},
		{
			name:    "private-sell-for-someone-else",
			mutate:  func(buy, sell *types.Order) { sell.Taker = other },
			wantErr: ErrSellTaker,
			rule:    RuleSellTaker,
		},
		{
			name:    "buy-for-someone-else",
			mutate:  func(buy, sell *types.Order) { buy.Taker = other },
			wantErr: ErrBuyTaker,
			rule:    RuleBuyTaker,
		},
		{
			name:    "both-fee-recipients",
			mutate:  func(buy, sell *types.Order) { buy.FeeRecipient = feeRecipient },
			wantErr: ErrFeeRecipient,
			rule:    RuleFeeRecipient,
		},
		{
			name:    "no-fee-recipient",
			mutate:  func(buy, sell *types.Order) { sell.FeeRecipient = types.NullAddress },
			wantErr: ErrFeeRecipient,
			rule:    RuleFeeRecipient,
		},
		{
			name:    "target",
			mutate:  func(buy, sell *types.Order) { buy.Target = other },
			wantErr: ErrTarget,
			rule:    RuleTarget,
		},
		{
			name:    "how-to-call",
			mutate:  func(buy, sell *types.Order) { buy.HowToCall = types.HowToCallDelegateCall },
			wantErr: ErrHowToCall,
			rule:    RuleHowToCall,
		},
		{
			name:    "buy-expired",
			mutate:  func(buy, sell *types.Order) { buy.ExpirationTime = big.NewInt(fixedNow.Unix()) },
			wantErr: ErrBuyNotSettleable,
			rule:    RuleBuyTime,
		},
		{
			name:    "sell-in-future",
			mutate:  func(buy, sell *types.Order) { sell.ListingTime = big.NewInt(fixedNow.Unix() + 60) },
			wantErr: ErrSellNotSettleable,
			rule:    RuleSellTime,
		},
		{
			name:    "calldata",
			mutate:  func(buy, sell *types.Order) { buy.Calldata[len(buy.Calldata)-1] ^= 0x01 },
			wantErr: ErrCalldata,
			rule:    RuleCalldata,
		},
		{
			name: "dutch-without-expiration",
			mutate: func(buy, sell *types.Order) {
				sell.SaleKind = types.SaleKindDutchAuction
				sell.Extra = big.NewInt(10)
			},
			wantErr: ErrUnmatchable,
			rule:    RuleSaleKind,
		},
		{
			name: "dutch-ending-below-zero",
			mutate: func(buy, sell *types.Order) {
				sell.SaleKind = types.SaleKindDutchAuction
				sell.ExpirationTime = big.NewInt(fixedNow.Unix() + 3600)
				sell.Extra = big.NewInt(2000)
			},
			wantErr: ErrUnmatchable,
			rule:    RuleSaleKind,
		},
		{
			name:    "buy-side-dutch",
			mutate:  func(buy, sell *types.Order) { buy.SaleKind = types.SaleKindDutchAuction },
			wantErr: ErrUnmatchable,
			rule:    RuleSaleKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := New(Config{Now: fixedClock})
			buy, sell := matchingPair(t)
			tt.mutate(buy, sell)

			err := v.Validate(context.Background(), buy, sell)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			var me *MatchError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, tt.rule, me.Rule)

			ok, err := v.CanMatch(context.Background(), buy, sell)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestValidate_MessagesForCallers(t *testing.T) {
	t.Parallel()

	v := New(Config{Now: fixedClock})

	buy, sell := matchingPair(t)
	buy.Target = common.HexToAddress("0x01")
	err := v.Validate(context.Background(), buy, sell)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Must match target")

	buy, sell = matchingPair(t)
	sell.ListingTime = big.NewInt(fixedNow.Unix() + 3600)
	err = v.Validate(context.Background(), buy, sell)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sell-side")
}

func TestValidate_PrivateSellForBuyer(t *testing.T) {
	t.Parallel()

	v := New(Config{Now: fixedClock})
	buy, sell := matchingPair(t)
	sell.Taker = buyer
	buy.Taker = seller

	assert.NoError(t, v.Validate(context.Background(), buy, sell))
}

type stubCalldataMatcher struct {
	ok  bool
	err error
}

func (s stubCalldataMatcher) CalldataCanMatch(context.Context, []byte, []byte, []byte, []byte) (bool, error) {
	return s.ok, s.err
}

type stubChainMatcher struct {
	ok    bool
	err   error
	calls int
}

func (s *stubChainMatcher) OrdersCanMatch(context.Context, *types.Order, *types.Order) (bool, error) {
	s.calls++
	return s.ok, s.err
}

func TestValidate_Collaborators(t *testing.T) {
	t.Parallel()

	buy, sell := matchingPair(t)

	failing := New(Config{Now: fixedClock, CalldataMatcher: stubCalldataMatcher{err: errors.New("rpc down")}})
	err := failing.Validate(context.Background(), buy, sell)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check calldata match")
	var me *MatchError
	assert.False(t, errors.As(err, &me))

	_, err = failing.CanMatch(context.Background(), buy, sell)
	assert.Error(t, err)

	chain := &stubChainMatcher{ok: false}
	rejecting := New(Config{Now: fixedClock, CalldataMatcher: stubCalldataMatcher{ok: true}, ChainMatcher: chain})
	err = rejecting.Validate(context.Background(), buy, sell)
	assert.ErrorIs(t, err, ErrUnmatchable)
	assert.Equal(t, 1, chain.calls)

	accepting := New(Config{Now: fixedClock, ChainMatcher: &stubChainMatcher{ok: true}})
	assert.NoError(t, accepting.Validate(context.Background(), buy, sell))
}

func TestCanSettleOrder(t *testing.T) {
	t.Parallel()

	const now = int64(1000)

	tests := []struct {
		name       string
		listing    int64
		expiration int64
		want       bool
	}{
		{"listed-never-expires", 999, 0, true},
		{"listed-not-expired", 999, 1001, true},
		{"listed-now", 1000, 0, false},
		{"future-listing", 1001, 0, false},
		{"expires-now", 999, 1000, false},
		{"expired", 500, 900, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, canSettleOrder(big.NewInt(tt.listing), big.NewInt(tt.expiration), now))
		})
	}

	assert.False(t, canSettleOrder(nil, nil, now))
}

func TestValidateOrderParameters_DutchEndPrice(t *testing.T) {
	t.Parallel()

	v := New(Config{Now: fixedClock})

	tests := []struct {
		name    string
		extra   int64
		errPart string
	}{
		{name: "ends-above-zero", extra: 400},
		{name: "ends-at-zero", extra: 1000},
		{name: "ends-below-zero", extra: 2000, errPart: "Dutch auction end price must be a number >= 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, sell := matchingPair(t)
			sell.SaleKind = types.SaleKindDutchAuction
			sell.ExpirationTime = big.NewInt(fixedNow.Unix() + 3600)
			sell.Extra = big.NewInt(tt.extra)

			err := v.ValidateOrderParameters(sell)
			if tt.errPart == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, types.IsValidationError(err))
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestValidateOrderParameters(t *testing.T) {
	t.Parallel()

	v := New(Config{Now: fixedClock})
	buy, sell := matchingPair(t)

	assert.NoError(t, v.ValidateOrderParameters(sell))
	assert.NoError(t, v.ValidateOrderParameters(buy))

	sell.SaleKind = types.SaleKindDutchAuction
	err := v.ValidateOrderParameters(sell)
	require.Error(t, err)
	assert.True(t, types.IsValidationError(err))

	buy.SaleKind = types.SaleKindDutchAuction
	assert.Error(t, v.ValidateOrderParameters(buy))

	buy.SaleKind = types.SaleKindFixedPrice
	buy.ListingTime = big.NewInt(fixedNow.Unix() + 10)
	assert.ErrorIs(t, v.ValidateOrderParameters(buy), ErrBuyNotSettleable)
}
