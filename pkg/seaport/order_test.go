package seaport

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	offerer     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	marketplace = common.HexToAddress("0x0000a26b00c1f0df003000390027140000faa719")
	creator     = common.HexToAddress("0x4444444444444444444444444444444444444444")
	weth        = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	collection  = common.HexToAddress("0x06012c8cf97bead5deae237070f9587f8e7a266d")
)

func ether(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func sampleListing(t *testing.T) *OrderComponents {
	t.Helper()

	c, err := BuildListing(ListingParams{
		Offerer:    offerer,
		Asset:      types.Asset{TokenAddress: collection, TokenID: "1234"},
		StartPrice: ether("1000000000000000000"),
		Fees: []Fee{
			{Recipient: marketplace, BasisPoints: 250},
			{Recipient: creator, BasisPoints: 500},
		},
		StartTime: 1_700_000_000,
		EndTime:   1_700_086_400,
		Salt:      big.NewInt(42),
	})
	require.NoError(t, err)
	return c
}

func TestBuildListing_FeeSplit(t *testing.T) {
	t.Parallel()

	c := sampleListing(t)

	require.Len(t, c.Offer, 1)
	assert.Equal(t, ItemERC721, c.Offer[0].ItemType)
	assert.Equal(t, "1234", c.Offer[0].IdentifierOrCriteria.String())

	require.Len(t, c.Consideration, 3)
	assert.Equal(t, ItemNative, c.Consideration[0].ItemType)
	assert.Equal(t, offerer, c.Consideration[0].Recipient)
	assert.Equal(t, "925000000000000000", c.Consideration[0].StartAmount.String())
	assert.Equal(t, marketplace, c.Consideration[1].Recipient)
	assert.Equal(t, "25000000000000000", c.Consideration[1].StartAmount.String())
	assert.Equal(t, creator, c.Consideration[2].Recipient)
	assert.Equal(t, "50000000000000000", c.Consideration[2].StartAmount.String())

	assert.Equal(t, "1000000000000000000", c.TotalPrice(types.NullAddress).String())
}

func TestBuildListing_RoundingDustStaysWithOfferer(t *testing.T) {
	t.Parallel()

	c, err := BuildListing(ListingParams{
		Offerer:    offerer,
		Asset:      types.Asset{TokenAddress: collection, TokenID: "1"},
		StartPrice: big.NewInt(999),
		Fees:       []Fee{{Recipient: marketplace, BasisPoints: 250}},
	})
	require.NoError(t, err)

	assert.Equal(t, "975", c.Consideration[0].StartAmount.String())
	assert.Equal(t, "24", c.Consideration[1].StartAmount.String())
	assert.Equal(t, "999", c.TotalPrice(types.NullAddress).String())
}

func TestBuildListing_DutchAndERC1155(t *testing.T) {
	t.Parallel()

	c, err := BuildListing(ListingParams{
		Offerer:      offerer,
		Asset:        types.Asset{TokenAddress: collection, TokenID: "7", SchemaName: "ERC1155"},
		Quantity:     big.NewInt(5),
		PaymentToken: weth,
		StartPrice:   big.NewInt(10000),
		EndPrice:     big.NewInt(5000),
		Fees:         []Fee{{Recipient: marketplace, BasisPoints: 100}, {Recipient: creator}},
		StartTime:    100,
		EndTime:      200,
	})
	require.NoError(t, err)

	assert.Equal(t, ItemERC1155, c.Offer[0].ItemType)
	assert.Equal(t, "5", c.Offer[0].StartAmount.String())
	require.Len(t, c.Consideration, 2, "zero-bps fees are omitted")
	assert.Equal(t, ItemERC20, c.Consideration[0].ItemType)
	assert.Equal(t, "9900", c.Consideration[0].StartAmount.String())
	assert.Equal(t, "4950", c.Consideration[0].EndAmount.String())
	assert.Equal(t, "50", c.Consideration[1].EndAmount.String())
}

func TestBuildListing_Errors(t *testing.T) {
	t.Parallel()

	base := func() ListingParams {
		return ListingParams{
			Offerer:    offerer,
			Asset:      types.Asset{TokenAddress: collection, TokenID: "1"},
			StartPrice: big.NewInt(100),
		}
	}

	tests := []struct {
		name   string
		mutate func(p *ListingParams)
		want   string
	}{
		{"nil-price", func(p *ListingParams) { p.StartPrice = nil }, "Starting price"},
		{"negative-end", func(p *ListingParams) { p.EndPrice = big.NewInt(-1) }, "End price"},
		{"window", func(p *ListingParams) { p.StartTime, p.EndTime = 10, 5 }, "End time"},
		{"fees-over-100", func(p *ListingParams) { p.Fees = []Fee{{BasisPoints: 6000}, {BasisPoints: 5000}} }, "less than 100%"},
		{"negative-fee", func(p *ListingParams) { p.Fees = []Fee{{BasisPoints: -1}} }, "at least 0%"},
		{"bad-token-id", func(p *ListingParams) { p.Asset.TokenID = "abc" }, "Invalid token id"},
		{"erc721-quantity", func(p *ListingParams) { p.Quantity = big.NewInt(2) }, "quantity of 1"},
		{"schema", func(p *ListingParams) { p.Asset.SchemaName = "ERC20" }, "Unsupported asset schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := base()
			tt.mutate(&p)
			_, err := BuildListing(p)
			require.Error(t, err)
			assert.True(t, types.IsValidationError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuildOffer(t *testing.T) {
	t.Parallel()

	c, err := BuildOffer(OfferParams{
		Offerer:      offerer,
		Asset:        types.Asset{TokenAddress: collection, TokenID: "9"},
		PaymentToken: weth,
		Price:        big.NewInt(10000),
		Fees:         []Fee{{Recipient: marketplace, BasisPoints: 250}},
	})
	require.NoError(t, err)

	require.Len(t, c.Offer, 1)
	assert.Equal(t, ItemERC20, c.Offer[0].ItemType)
	assert.Equal(t, weth, c.Offer[0].Token)

	require.Len(t, c.Consideration, 2)
	assert.Equal(t, ItemERC721, c.Consideration[0].ItemType)
	assert.Equal(t, offerer, c.Consideration[0].Recipient)
	assert.Equal(t, "250", c.Consideration[1].StartAmount.String())

	_, err = BuildOffer(OfferParams{Offerer: offerer, Asset: types.Asset{TokenID: "1"}, Price: big.NewInt(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Offers must use wrapped ETH")

	_, err = BuildOffer(OfferParams{Offerer: offerer, Asset: types.Asset{TokenID: "1"}, PaymentToken: weth, Price: big.NewInt(0)})
	assert.Error(t, err)
}

func TestCurrentAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start, end int64
		now        int64
		roundUp    bool
		want       string
	}{
		{"fixed", 500, 500, 150, false, "500"},
		{"before-start", 1000, 0, 50, false, "1000"},
		{"midpoint", 1000, 0, 150, false, "500"},
		{"after-end", 1000, 0, 500, false, "0"},
		{"round-down", 10, 0, 133, false, "6"},
		{"round-up", 10, 0, 133, true, "7"},
		{"ascending", 0, 300, 110, false, "30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CurrentAmount(big.NewInt(tt.start), big.NewInt(tt.end), 100, 200, tt.now, tt.roundUp)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCurrentAmount_EmptyWindow(t *testing.T) {
	t.Parallel()

	got := CurrentAmount(big.NewInt(9), big.NewInt(1), 100, 100, 150, false)
	assert.Equal(t, "9", got.String())
}

func TestHashOrderComponents(t *testing.T) {
	t.Parallel()

	c := sampleListing(t)
	domain := DefaultDomain(1)

	d1, err := HashOrderComponents(c, domain)
	require.NoError(t, err)
	d2, err := HashOrderComponents(sampleListing(t), domain)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	structHash, err := OrderHash(c)
	require.NoError(t, err)
	assert.NotEqual(t, d1, structHash)

	otherChain, err := HashOrderComponents(c, DefaultDomain(5))
	require.NoError(t, err)
	assert.NotEqual(t, d1, otherChain)

	bumped := sampleListing(t)
	bumped.Counter = big.NewInt(1)
	d3, err := HashOrderComponents(bumped, domain)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)
}

func TestSignAndRecover(t *testing.T) {
	t.Parallel()

	key, err := crypto.HexToECDSA("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)
	signerAddr := crypto.PubkeyToAddress(key.PublicKey)

	c := sampleListing(t)
	c.Offerer = signerAddr
	domain := DefaultDomain(1)

	sig, err := Sign(c, domain, key)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	got, err := RecoverOfferer(c, domain, sig)
	require.NoError(t, err)
	assert.Equal(t, signerAddr, got)

	c.Salt = big.NewInt(43)
	got, err = RecoverOfferer(c, domain, sig)
	require.NoError(t, err)
	assert.NotEqual(t, signerAddr, got)

	_, err = RecoverOfferer(c, domain, sig[:64])
	assert.Error(t, err)
}
