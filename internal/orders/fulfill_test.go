package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mselser95/nft-orders/internal/matching"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/mselser95/nft-orders/pkg/wyvern"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedValidator struct {
	results []error
	calls   int
}

func (v *scriptedValidator) Validate(context.Context, *types.Order, *types.Order) error {
	i := v.calls
	v.calls++
	if i < len(v.results) {
		return v.results[i]
	}
	return nil
}

func testListing(t *testing.T, b *Builder) *types.Order {
	t.Helper()

	u, err := b.BuildSellOrder(context.Background(), SellIntent{
		Asset: kitty("77"), Account: sellerAddr, PaymentToken: mainnet.WrappedNative,
		StartAmount: decimal.RequireFromString("1"),
	})
	require.NoError(t, err)
	return wyvern.Hashed(u)
}

func newTestFulfiller(t *testing.T, v MatchValidator) (*Fulfiller, *Builder) {
	t.Helper()

	b, _ := newTestBuilder(t)
	f, err := NewFulfiller(&FulfillerConfig{
		Builder:    b,
		Validator:  v,
		RetryDelay: time.Millisecond,
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	return f, b
}

func TestNewFulfiller_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewFulfiller(nil)
	assert.Error(t, err)

	b, _ := newTestBuilder(t)
	_, err = NewFulfiller(&FulfillerConfig{Builder: b, Logger: zap.NewNop()})
	assert.Error(t, err)

	f, err := NewFulfiller(&FulfillerConfig{Builder: b, Validator: &scriptedValidator{}, Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.Equal(t, defaultMatchRetryDelay, f.retryDelay)
}

func TestFulfill_WithRealValidator(t *testing.T) {
	t.Parallel()

	v := matching.New(matching.Config{Now: func() time.Time { return testNow }})
	f, b := newTestFulfiller(t, v)
	listing := testListing(t, b)

	buy, sell, err := f.Fulfill(context.Background(), listing, buyerAddr, types.NullAddress)
	require.NoError(t, err)

	assert.Equal(t, listing, sell)
	assert.Equal(t, buyerAddr, buy.Maker)
	assert.Equal(t, types.SideBuy, buy.Side)
}

func TestFulfill_ERC1155BundleQuantities(t *testing.T) {
	t.Parallel()

	v := matching.New(matching.Config{Now: func() time.Time { return testNow }})
	f, b := newTestFulfiller(t, v)

	bundle := types.Bundle{Name: "potions", Assets: []types.Asset{
		{TokenAddress: otherNFT, TokenID: "5", SchemaName: wyvern.SchemaERC1155},
		{TokenAddress: otherNFT, TokenID: "6", SchemaName: wyvern.SchemaERC1155},
	}}
	u, err := b.BuildBundleSellOrder(context.Background(), BundleSellIntent{
		Bundle: bundle, Account: sellerAddr, PaymentToken: mainnet.WrappedNative,
		StartAmount: decimal.RequireFromString("2"),
		Quantities:  []decimal.Decimal{decimal.NewFromInt(3), decimal.NewFromInt(1)},
	})
	require.NoError(t, err)
	assert.Nil(t, bundle.Assets[0].Quantity)
	require.NotNil(t, u.Metadata.Bundle)
	assert.Equal(t, "3", u.Metadata.Bundle.Assets[0].Quantity.String())
	assert.Equal(t, "1", u.Metadata.Bundle.Assets[1].Quantity.String())

	// The listing reaches the taker through the wire format.
	data, err := wyvern.Marshal(wyvern.Hashed(u))
	require.NoError(t, err)
	listing, err := wyvern.Unmarshal(data)
	require.NoError(t, err)

	buy, sell, err := f.Fulfill(context.Background(), listing, buyerAddr, types.NullAddress)
	require.NoError(t, err)
	assert.Equal(t, listing, sell)
	assert.Equal(t, mainnet.Atomicizer, buy.Target)
	assert.Equal(t, types.SideBuy, buy.Side)
}

func TestFulfill_RetriesOnce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		results   []error
		wantErr   bool
		wantCalls int
	}{
		{name: "first-attempt", results: nil, wantCalls: 1},
		{name: "second-attempt", results: []error{matching.ErrBuyNotSettleable}, wantCalls: 2},
		{
			name:      "both-fail",
			results:   []error{matching.ErrBuyNotSettleable, matching.ErrCalldata},
			wantErr:   true,
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := &scriptedValidator{results: tt.results}
			f, b := newTestFulfiller(t, v)

			_, _, err := f.Fulfill(context.Background(), testListing(t, b), buyerAddr, buyerAddr)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, matching.ErrCalldata)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, v.calls)
		})
	}
}

func TestFulfill_ContextCancelledDuringRetry(t *testing.T) {
	t.Parallel()

	b, _ := newTestBuilder(t)
	v := &scriptedValidator{results: []error{errors.New("not yet")}}
	f, err := NewFulfiller(&FulfillerConfig{Builder: b, Validator: v, RetryDelay: time.Hour, Logger: zap.NewNop()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = f.Fulfill(ctx, testListing(t, b), buyerAddr, buyerAddr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, v.calls)
}

func TestFulfill_ClosedOrders(t *testing.T) {
	t.Parallel()

	v := &scriptedValidator{}
	f, b := newTestFulfiller(t, v)

	cancelled := testListing(t, b)
	cancelled.Cancelled = true
	_, _, err := f.Fulfill(context.Background(), cancelled, buyerAddr, buyerAddr)
	assert.ErrorIs(t, err, types.ErrOrderCancelled)

	finalized := testListing(t, b)
	finalized.Finalized = true
	_, _, err = f.Fulfill(context.Background(), finalized, buyerAddr, buyerAddr)
	assert.ErrorIs(t, err, types.ErrOrderFinalized)

	assert.Zero(t, v.calls)
}
