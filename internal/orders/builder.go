// Package orders assembles marketplace orders from buy and sell intents, and
// drives them through hashing, signing, submission and fulfillment.
package orders

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/nft-orders/internal/fees"
	"github.com/mselser95/nft-orders/internal/pricing"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/mselser95/nft-orders/pkg/wyvern"
	"github.com/shopspring/decimal"
)

// etherDecimals is the precision used when the payment token is native ether.
const etherDecimals = 18

// FeeConfigSource looks up the fee configuration of an asset contract.
type FeeConfigSource interface {
	GetAssetContract(ctx context.Context, address common.Address) (*types.AssetContract, error)
}

// TokenSource resolves payment tokens.
type TokenSource interface {
	WrappedNativeToken(network string) (common.Address, error)
	PaymentToken(ctx context.Context, address common.Address) (*types.PaymentToken, error)
}

// CalldataEncoder produces transfer calldata for single assets and bundles.
type CalldataEncoder interface {
	EncodeSell(asset types.Asset, quantity *big.Int, maker common.Address) (*wyvern.Encoded, error)
	EncodeBuy(asset types.Asset, quantity *big.Int, maker common.Address) (*wyvern.Encoded, error)
	EncodeBundleSell(assets []types.Asset, quantities []*big.Int, maker common.Address) (*wyvern.Encoded, error)
	EncodeBundleBuy(assets []types.Asset, quantities []*big.Int, maker common.Address) (*wyvern.Encoded, error)
}

// SaltSource generates order salts.
type SaltSource interface {
	Salt() (*big.Int, error)
}

// RandomSalt draws 256-bit salts from crypto/rand.
type RandomSalt struct{}

// Salt returns a uniformly random uint256.
func (RandomSalt) Salt() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 256)
	salt, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// BuilderConfig holds builder collaborators.
type BuilderConfig struct {
	Network   string
	Contracts wyvern.Contracts
	FeeSource FeeConfigSource
	Tokens    TokenSource
	Encoder   CalldataEncoder
	Salts     SaltSource
	Now       func() time.Time
}

// Builder turns intents into unhashed orders. It performs no I/O of its own
// beyond its collaborators.
type Builder struct {
	network   string
	contracts wyvern.Contracts
	feeSource FeeConfigSource
	tokens    TokenSource
	encoder   CalldataEncoder
	salts     SaltSource
	schedule  *fees.Schedule
	now       func() time.Time
}

// NewBuilder creates a builder.
func NewBuilder(cfg *BuilderConfig) (*Builder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.FeeSource == nil {
		return nil, fmt.Errorf("fee source cannot be nil")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}
	if cfg.Encoder == nil {
		return nil, fmt.Errorf("calldata encoder cannot be nil")
	}

	b := &Builder{
		network:   cfg.Network,
		contracts: cfg.Contracts,
		feeSource: cfg.FeeSource,
		tokens:    cfg.Tokens,
		encoder:   cfg.Encoder,
		salts:     cfg.Salts,
		schedule:  fees.NewSchedule(cfg.Contracts.FeeRecipient),
		now:       cfg.Now,
	}
	if b.salts == nil {
		b.salts = RandomSalt{}
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b, nil
}

// BuyIntent describes an offer on a single asset.
type BuyIntent struct {
	Asset                  types.Asset
	Account                common.Address
	StartAmount            decimal.Decimal
	Quantity               decimal.Decimal // zero means 1
	ExpirationTime         int64
	PaymentToken           *common.Address // nil means the wrapped native token
	ExtraBountyBasisPoints int64
	SellOrder              *types.Order // counter order whose fees the offer mirrors
	ReferrerAddress        string
}

// SellIntent describes a listing of a single asset.
type SellIntent struct {
	Asset                  types.Asset
	Account                common.Address
	StartAmount            decimal.Decimal
	EndAmount              *decimal.Decimal
	Quantity               decimal.Decimal // zero means 1
	ListingTime            int64
	ExpirationTime         int64
	WaitForHighestBid      bool
	ReservePrice           *decimal.Decimal
	PaymentToken           common.Address // null means native ether
	ExtraBountyBasisPoints int64
	BuyerAddress           common.Address // non-null makes the listing private
}

// BundleBuyIntent describes an offer on a bundle.
type BundleBuyIntent struct {
	Bundle                 types.Bundle
	Quantities             []decimal.Decimal // one per asset, empty means 1 each
	Account                common.Address
	StartAmount            decimal.Decimal
	ExpirationTime         int64
	PaymentToken           *common.Address
	ExtraBountyBasisPoints int64
	SellOrder              *types.Order
	ReferrerAddress        string
}

// BundleSellIntent describes a listing of a bundle.
type BundleSellIntent struct {
	Bundle                 types.Bundle
	Quantities             []decimal.Decimal
	Account                common.Address
	StartAmount            decimal.Decimal
	EndAmount              *decimal.Decimal
	ListingTime            int64
	ExpirationTime         int64
	WaitForHighestBid      bool
	ReservePrice           *decimal.Decimal
	PaymentToken           common.Address
	ExtraBountyBasisPoints int64
	BuyerAddress           common.Address
}

// BuildBuyOrder assembles an unhashed offer.
func (b *Builder) BuildBuyOrder(ctx context.Context, in BuyIntent) (*types.UnhashedOrder, error) {
	quantity, err := scaleQuantity(in.Quantity, in.Asset.Decimals)
	if err != nil {
		return nil, err
	}

	contract, err := b.feeSource.GetAssetContract(ctx, in.Asset.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("get asset contract: %w", err)
	}

	encoded, err := b.encoder.EncodeBuy(in.Asset, quantity, in.Account)
	if err != nil {
		return nil, fmt.Errorf("encode buy calldata: %w", err)
	}

	meta := types.OrderMetadata{
		Asset:           &in.Asset,
		Schema:          schemaName(in.Asset.SchemaName),
		ReferrerAddress: in.ReferrerAddress,
	}
	return b.buildBuy(ctx, buyParams{
		contract:     contract,
		account:      in.Account,
		startAmount:  in.StartAmount,
		expiration:   in.ExpirationTime,
		paymentToken: in.PaymentToken,
		bounty:       in.ExtraBountyBasisPoints,
		sellOrder:    in.SellOrder,
		encoded:      encoded,
		quantity:     quantity,
		metadata:     meta,
	})
}

// BuildBundleBuyOrder assembles an unhashed offer on a bundle. A bundle whose
// assets share one contract uses that contract's fees; mixed bundles use defaults.
func (b *Builder) BuildBundleBuyOrder(ctx context.Context, in BundleBuyIntent) (*types.UnhashedOrder, error) {
	quantities, err := scaleBundleQuantities(in.Bundle, in.Quantities)
	if err != nil {
		return nil, err
	}

	contract, err := b.bundleContract(ctx, &in.Bundle)
	if err != nil {
		return nil, err
	}

	encoded, err := b.encoder.EncodeBundleBuy(in.Bundle.Assets, quantities, in.Account)
	if err != nil {
		return nil, fmt.Errorf("encode bundle buy calldata: %w", err)
	}

	bundle := bundleWithQuantities(in.Bundle, quantities)
	return b.buildBuy(ctx, buyParams{
		contract:     contract,
		account:      in.Account,
		startAmount:  in.StartAmount,
		expiration:   in.ExpirationTime,
		paymentToken: in.PaymentToken,
		bounty:       in.ExtraBountyBasisPoints,
		sellOrder:    in.SellOrder,
		encoded:      encoded,
		quantity:     big.NewInt(1),
		metadata: types.OrderMetadata{
			Bundle:          &bundle,
			Schema:          bundleSchema(&bundle),
			ReferrerAddress: in.ReferrerAddress,
		},
	})
}

// BuildSellOrder assembles an unhashed listing.
func (b *Builder) BuildSellOrder(ctx context.Context, in SellIntent) (*types.UnhashedOrder, error) {
	quantity, err := scaleQuantity(in.Quantity, in.Asset.Decimals)
	if err != nil {
		return nil, err
	}

	contract, err := b.feeSource.GetAssetContract(ctx, in.Asset.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("get asset contract: %w", err)
	}

	encoded, err := b.encoder.EncodeSell(in.Asset, quantity, in.Account)
	if err != nil {
		return nil, fmt.Errorf("encode sell calldata: %w", err)
	}

	return b.buildSell(ctx, sellParams{
		contract:     contract,
		account:      in.Account,
		startAmount:  in.StartAmount,
		endAmount:    in.EndAmount,
		listing:      in.ListingTime,
		expiration:   in.ExpirationTime,
		english:      in.WaitForHighestBid,
		reserve:      in.ReservePrice,
		paymentToken: in.PaymentToken,
		bounty:       in.ExtraBountyBasisPoints,
		buyer:        in.BuyerAddress,
		encoded:      encoded,
		quantity:     quantity,
		metadata: types.OrderMetadata{
			Asset:  &in.Asset,
			Schema: schemaName(in.Asset.SchemaName),
		},
	})
}

// BuildBundleSellOrder assembles an unhashed bundle listing.
func (b *Builder) BuildBundleSellOrder(ctx context.Context, in BundleSellIntent) (*types.UnhashedOrder, error) {
	quantities, err := scaleBundleQuantities(in.Bundle, in.Quantities)
	if err != nil {
		return nil, err
	}

	contract, err := b.bundleContract(ctx, &in.Bundle)
	if err != nil {
		return nil, err
	}

	encoded, err := b.encoder.EncodeBundleSell(in.Bundle.Assets, quantities, in.Account)
	if err != nil {
		return nil, fmt.Errorf("encode bundle sell calldata: %w", err)
	}

	bundle := bundleWithQuantities(in.Bundle, quantities)
	return b.buildSell(ctx, sellParams{
		contract:     contract,
		account:      in.Account,
		startAmount:  in.StartAmount,
		endAmount:    in.EndAmount,
		listing:      in.ListingTime,
		expiration:   in.ExpirationTime,
		english:      in.WaitForHighestBid,
		reserve:      in.ReservePrice,
		paymentToken: in.PaymentToken,
		bounty:       in.ExtraBountyBasisPoints,
		buyer:        in.BuyerAddress,
		encoded:      encoded,
		quantity:     big.NewInt(1),
		metadata: types.OrderMetadata{
			Bundle: &bundle,
			Schema: bundleSchema(&bundle),
		},
	})
}

// BuildMatchingOrder creates the counter order that fills order on behalf of
// account, delivering assets to recipient. The result is hashed but unsigned.
func (b *Builder) BuildMatchingOrder(order *types.Order, account, recipient common.Address) (*types.Order, error) {
	var encoded *wyvern.Encoded
	var err error

	switch {
	case order.Metadata.Asset != nil:
		if order.Side == types.SideBuy {
			encoded, err = b.encoder.EncodeSell(*order.Metadata.Asset, order.Quantity, recipient)
		} else {
			encoded, err = b.encoder.EncodeBuy(*order.Metadata.Asset, order.Quantity, recipient)
		}
	case order.Metadata.Bundle != nil:
		assets := order.Metadata.Bundle.Assets
		quantities := make([]*big.Int, len(assets))
		for i, asset := range assets {
			quantities[i] = asset.Quantity
			if quantities[i] == nil {
				quantities[i] = big.NewInt(1)
			}
		}
		if order.Side == types.SideBuy {
			encoded, err = b.encoder.EncodeBundleSell(assets, quantities, recipient)
		} else {
			encoded, err = b.encoder.EncodeBundleBuy(assets, quantities, recipient)
		}
	default:
		return nil, fmt.Errorf("build matching order: metadata has no asset or bundle: %w", types.ErrMissingField)
	}
	if err != nil {
		return nil, fmt.Errorf("encode matching calldata: %w", err)
	}

	listing, expiration, err := pricing.TimeParameters(b.now().Unix(), 0, 0, false)
	if err != nil {
		return nil, err
	}

	salt, err := b.salts.Salt()
	if err != nil {
		return nil, err
	}

	feeRecipient := types.NullAddress
	if order.FeeRecipient == types.NullAddress {
		feeRecipient = b.contracts.FeeRecipient
	}

	src := order.UnhashedOrder.Clone()
	matching := &types.UnhashedOrder{
		Exchange:           order.Exchange,
		Maker:              account,
		Taker:              order.Maker,
		MakerRelayerFee:    src.MakerRelayerFee,
		TakerRelayerFee:    src.TakerRelayerFee,
		MakerProtocolFee:   src.MakerProtocolFee,
		TakerProtocolFee:   src.TakerProtocolFee,
		MakerReferrerFee:   src.MakerReferrerFee,
		FeeRecipient:       feeRecipient,
		FeeMethod:          order.FeeMethod,
		Side:               order.Side.Opposite(),
		SaleKind:           types.SaleKindFixedPrice,
		Target:             encoded.Target,
		HowToCall:          order.HowToCall,
		Calldata:           encoded.Calldata,
		ReplacementPattern: encoded.ReplacementPattern,
		StaticTarget:       types.NullAddress,
		StaticExtradata:    []byte{},
		PaymentToken:       order.PaymentToken,
		BasePrice:          src.BasePrice,
		Extra:              new(big.Int),
		ListingTime:        big.NewInt(listing),
		ExpirationTime:     big.NewInt(expiration),
		Salt:               salt,
		Quantity:           src.Quantity,
		Metadata:           order.Metadata,
	}

	return wyvern.Hashed(matching), nil
}

// AssignSides orders a pair as (buy, sell).
func AssignSides(a, b *types.Order) (buy, sell *types.Order) {
	if a.Side == types.SideBuy {
		return a, b
	}
	return b, a
}

type buyParams struct {
	contract     *types.AssetContract
	account      common.Address
	startAmount  decimal.Decimal
	expiration   int64
	paymentToken *common.Address
	bounty       int64
	sellOrder    *types.Order
	encoded      *wyvern.Encoded
	quantity     *big.Int
	metadata     types.OrderMetadata
}

func (b *Builder) buildBuy(ctx context.Context, p buyParams) (*types.UnhashedOrder, error) {
	computed, err := fees.Compute(fees.ComputeParams{
		Contract:               p.contract,
		Side:                   types.SideBuy,
		ExtraBountyBasisPoints: p.bounty,
	})
	if err != nil {
		return nil, err
	}
	feeParams, err := b.schedule.BuyParameters(computed.TotalBuyerFeeBasisPoints, computed.TotalSellerFeeBasisPoints, p.sellOrder)
	if err != nil {
		return nil, err
	}

	var token common.Address
	if p.paymentToken != nil {
		token = *p.paymentToken
	} else {
		token, err = b.tokens.WrappedNativeToken(b.network)
		if err != nil {
			return nil, fmt.Errorf("resolve wrapped native token: %w", err)
		}
	}

	price, err := b.priceParameters(ctx, pricing.PriceParams{
		Side:           types.SideBuy,
		PaymentToken:   token,
		ExpirationTime: p.expiration,
		StartAmount:    p.startAmount,
	})
	if err != nil {
		return nil, err
	}

	listing, expiration, err := pricing.TimeParameters(b.now().Unix(), p.expiration, 0, false)
	if err != nil {
		return nil, err
	}

	salt, err := b.salts.Salt()
	if err != nil {
		return nil, err
	}

	taker := types.NullAddress
	if p.sellOrder != nil {
		taker = p.sellOrder.Maker
	}

	u := &types.UnhashedOrder{
		Exchange:           b.contracts.Exchange,
		Maker:              p.account,
		Taker:              taker,
		Side:               types.SideBuy,
		SaleKind:           types.SaleKindFixedPrice,
		Target:             p.encoded.Target,
		HowToCall:          p.encoded.HowToCall,
		Calldata:           p.encoded.Calldata,
		ReplacementPattern: p.encoded.ReplacementPattern,
		StaticTarget:       types.NullAddress,
		StaticExtradata:    []byte{},
		PaymentToken:       token,
		BasePrice:          price.BasePrice,
		Extra:              new(big.Int),
		ListingTime:        big.NewInt(listing),
		ExpirationTime:     big.NewInt(expiration),
		Salt:               salt,
		Quantity:           p.quantity,
		Metadata:           p.metadata,
	}
	feeParams.Apply(u)

	return u, nil
}

type sellParams struct {
	contract     *types.AssetContract
	account      common.Address
	startAmount  decimal.Decimal
	endAmount    *decimal.Decimal
	listing      int64
	expiration   int64
	english      bool
	reserve      *decimal.Decimal
	paymentToken common.Address
	bounty       int64
	buyer        common.Address
	encoded      *wyvern.Encoded
	quantity     *big.Int
	metadata     types.OrderMetadata
}

func (b *Builder) buildSell(ctx context.Context, p sellParams) (*types.UnhashedOrder, error) {
	computed, err := fees.Compute(fees.ComputeParams{
		Contract:               p.contract,
		Side:                   types.SideSell,
		IsPrivate:              p.buyer != types.NullAddress,
		ExtraBountyBasisPoints: p.bounty,
	})
	if err != nil {
		return nil, err
	}

	wrapped, err := b.tokens.WrappedNativeToken(b.network)
	if err != nil {
		return nil, fmt.Errorf("resolve wrapped native token: %w", err)
	}

	price, err := b.priceParameters(ctx, pricing.PriceParams{
		Side:              types.SideSell,
		PaymentToken:      p.paymentToken,
		WrappedNative:     wrapped,
		ExpirationTime:    p.expiration,
		StartAmount:       p.startAmount,
		EndAmount:         p.endAmount,
		WaitForHighestBid: p.english,
		ReservePrice:      p.reserve,
	})
	if err != nil {
		return nil, err
	}

	listing, expiration, err := pricing.TimeParameters(b.now().Unix(), p.expiration, p.listing, p.english)
	if err != nil {
		return nil, err
	}

	feeParams, err := b.schedule.SellParameters(computed.TotalBuyerFeeBasisPoints, computed.TotalSellerFeeBasisPoints,
		p.english, computed.SellerBountyBasisPoints)
	if err != nil {
		return nil, err
	}

	salt, err := b.salts.Salt()
	if err != nil {
		return nil, err
	}

	u := &types.UnhashedOrder{
		Exchange:                   b.contracts.Exchange,
		Maker:                      p.account,
		Taker:                      p.buyer,
		Side:                       types.SideSell,
		SaleKind:                   price.SaleKind,
		Target:                     p.encoded.Target,
		HowToCall:                  p.encoded.HowToCall,
		Calldata:                   p.encoded.Calldata,
		ReplacementPattern:         p.encoded.ReplacementPattern,
		StaticTarget:               types.NullAddress,
		StaticExtradata:            []byte{},
		PaymentToken:               p.paymentToken,
		BasePrice:                  price.BasePrice,
		Extra:                      price.Extra,
		ListingTime:                big.NewInt(listing),
		ExpirationTime:             big.NewInt(expiration),
		Salt:                       salt,
		Quantity:                   p.quantity,
		WaitingForBestCounterOrder: p.english,
		EnglishAuctionReservePrice: price.ReservePrice,
		Metadata:                   p.metadata,
	}
	feeParams.Apply(u)

	return u, nil
}

// priceParameters resolves the payment token's decimals before scaling prices.
func (b *Builder) priceParameters(ctx context.Context, p pricing.PriceParams) (*pricing.PriceResult, error) {
	p.Decimals = etherDecimals
	if p.PaymentToken != types.NullAddress {
		token, err := b.tokens.PaymentToken(ctx, p.PaymentToken)
		if err != nil {
			return nil, fmt.Errorf("get payment token: %w", err)
		}
		p.Decimals = token.Decimals
	}
	return pricing.PriceParameters(p)
}

func (b *Builder) bundleContract(ctx context.Context, bundle *types.Bundle) (*types.AssetContract, error) {
	addr, ok := bundle.ContractAddress()
	if !ok {
		return nil, nil
	}
	contract, err := b.feeSource.GetAssetContract(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("get asset contract: %w", err)
	}
	return contract, nil
}

func scaleQuantity(q decimal.Decimal, decimals int32) (*big.Int, error) {
	if q.IsZero() {
		q = decimal.NewFromInt(1)
	}
	if !q.IsPositive() {
		return nil, types.NewValidationError("quantity", "Quantity must be greater than 0")
	}
	return pricing.ToBaseUnits(q, decimals)
}

func scaleBundleQuantities(bundle types.Bundle, quantities []decimal.Decimal) ([]*big.Int, error) {
	if len(bundle.Assets) == 0 {
		return nil, types.NewValidationError("bundle", "Bundle must contain at least one asset")
	}
	if len(quantities) != 0 && len(quantities) != len(bundle.Assets) {
		return nil, types.NewValidationError("quantities", "Expected %d quantities, got %d", len(bundle.Assets), len(quantities))
	}

	out := make([]*big.Int, len(bundle.Assets))
	for i, asset := range bundle.Assets {
		q := decimal.Zero
		if len(quantities) != 0 {
			q = quantities[i]
		}
		scaled, err := scaleQuantity(q, asset.Decimals)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}

// bundleWithQuantities copies bundle, recording each asset's scaled quantity so
// the counter order can rebuild identical calldata.
func bundleWithQuantities(bundle types.Bundle, quantities []*big.Int) types.Bundle {
	assets := make([]types.Asset, len(bundle.Assets))
	for i, asset := range bundle.Assets {
		asset.Quantity = quantities[i]
		assets[i] = asset
	}
	bundle.Assets = assets
	return bundle
}

func schemaName(name string) string {
	if name == "" {
		return wyvern.SchemaERC721
	}
	return name
}

func bundleSchema(bundle *types.Bundle) string {
	if len(bundle.Assets) == 0 {
		return wyvern.SchemaERC721
	}
	return schemaName(bundle.Assets[0].SchemaName)
}
