package wyvern

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder() *types.UnhashedOrder {
	return &types.UnhashedOrder{
		Exchange:           common.HexToAddress("0x7be8076f4ea4a4ad08075c2508e481d6c946d12b"),
		Maker:              common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Taker:              types.NullAddress,
		MakerRelayerFee:    big.NewInt(250),
		TakerRelayerFee:    big.NewInt(0),
		MakerProtocolFee:   big.NewInt(0),
		TakerProtocolFee:   big.NewInt(0),
		MakerReferrerFee:   big.NewInt(0),
		FeeRecipient:       common.HexToAddress("0x5b3256965e7c3cf26e11fcaf296dfc8807c01073"),
		FeeMethod:          types.FeeMethodSplitFee,
		Side:               types.SideSell,
		SaleKind:           types.SaleKindFixedPrice,
		Target:             common.HexToAddress("0x2222222222222222222222222222222222222222"),
		HowToCall:          types.HowToCallCall,
		Calldata:           []byte{0x23, 0xb8, 0x72, 0xdd, 0x01},
		ReplacementPattern: []byte{0x00, 0x00, 0x00, 0x00, 0xff},
		StaticTarget:       types.NullAddress,
		StaticExtradata:    []byte{},
		PaymentToken:       types.NullAddress,
		BasePrice:          big.NewInt(1_000_000_000_000_000_000),
		Extra:              big.NewInt(0),
		ListingTime:        big.NewInt(1_600_000_000),
		ExpirationTime:     big.NewInt(0),
		Salt:               big.NewInt(42),
	}
}

func TestHashOrder_Deterministic(t *testing.T) {
	t.Parallel()

	a := HashOrder(sampleOrder())
	b := HashOrder(sampleOrder())

	assert.Equal(t, a, b)
	assert.NotEqual(t, common.Hash{}, a)
}

func TestHashOrder_FieldSensitivity(t *testing.T) {
	t.Parallel()

	base := HashOrder(sampleOrder())

	tests := []struct {
		name   string
		mutate func(o *types.UnhashedOrder)
	}{
		{"maker", func(o *types.UnhashedOrder) { o.Maker = common.HexToAddress("0x3333333333333333333333333333333333333333") }},
		{"taker", func(o *types.UnhashedOrder) { o.Taker = o.Maker }},
		{"maker-relayer-fee", func(o *types.UnhashedOrder) { o.MakerRelayerFee = big.NewInt(251) }},
		{"maker-referrer-fee", func(o *types.UnhashedOrder) { o.MakerReferrerFee = big.NewInt(1) }},
		{"side", func(o *types.UnhashedOrder) { o.Side = types.SideBuy }},
		{"sale-kind", func(o *types.UnhashedOrder) { o.SaleKind = types.SaleKindDutchAuction }},
		{"how-to-call", func(o *types.UnhashedOrder) { o.HowToCall = types.HowToCallDelegateCall }},
		{"calldata", func(o *types.UnhashedOrder) { o.Calldata[4] = 0x02 }},
		{"base-price", func(o *types.UnhashedOrder) { o.BasePrice = big.NewInt(1) }},
		{"salt", func(o *types.UnhashedOrder) { o.Salt = big.NewInt(43) }},
		{"expiration-time", func(o *types.UnhashedOrder) { o.ExpirationTime = big.NewInt(1_700_000_000) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o := sampleOrder()
			tt.mutate(o)
			assert.NotEqual(t, base, HashOrder(o))
		})
	}
}

func TestHashOrder_IgnoresLocalFields(t *testing.T) {
	t.Parallel()

	o := sampleOrder()
	base := HashOrder(o)

	o.Quantity = big.NewInt(5)
	o.WaitingForBestCounterOrder = true
	o.Metadata.Schema = "ERC1155"

	assert.Equal(t, base, HashOrder(o))
}

func TestPackOrder_Layout(t *testing.T) {
	t.Parallel()

	o := sampleOrder()
	packed := PackOrder(o)

	// 11 addresses, 10 uint256 words, 4 uint8 values, plus the three byte payloads.
	want := 11*20 + 10*32 + 4 + len(o.Calldata) + len(o.ReplacementPattern) + len(o.StaticExtradata)
	assert.Len(t, packed, want)
	assert.Equal(t, o.Exchange.Bytes(), packed[:20])
}

func TestPackOrder_NilIntegersAreZero(t *testing.T) {
	t.Parallel()

	withNil := sampleOrder()
	withNil.Extra = nil

	withZero := sampleOrder()
	withZero.Extra = big.NewInt(0)

	assert.Equal(t, HashOrder(withZero), HashOrder(withNil))
}

func TestVerifyHash(t *testing.T) {
	t.Parallel()

	o := Hashed(sampleOrder())
	require.True(t, VerifyHash(o))

	o.BasePrice = big.NewInt(7)
	assert.False(t, VerifyHash(o))
}
