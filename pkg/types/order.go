package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// NullAddress is the wildcard/zero address. A null taker accepts any counterparty.
var NullAddress = common.Address{}

// ECSignature is a secp256k1 signature over the order hash. V is 27 or 28.
type ECSignature struct {
	V uint8
	R common.Hash
	S common.Hash
}

// OrderMetadata references the asset(s) an order trades.
type OrderMetadata struct {
	Asset           *Asset  // set for single-asset orders
	Bundle          *Bundle // set for bundle orders
	Schema          string  // e.g. "ERC721", "ERC1155"
	ReferrerAddress string
}

// UnhashedOrder holds every field that goes into the order hash plus local-only metadata.
type UnhashedOrder struct {
	Exchange common.Address
	Maker    common.Address
	Taker    common.Address

	// Fees in basis points
	MakerRelayerFee  *big.Int
	TakerRelayerFee  *big.Int
	MakerProtocolFee *big.Int
	TakerProtocolFee *big.Int
	MakerReferrerFee *big.Int

	FeeRecipient common.Address
	FeeMethod    FeeMethod
	Side         Side
	SaleKind     SaleKind

	Target             common.Address
	HowToCall          HowToCall
	Calldata           []byte
	ReplacementPattern []byte
	StaticTarget       common.Address
	StaticExtradata    []byte

	PaymentToken common.Address
	BasePrice    *big.Int
	Extra        *big.Int

	ListingTime    *big.Int
	ExpirationTime *big.Int
	Salt           *big.Int

	// Not hashed
	Quantity                   *big.Int
	WaitingForBestCounterOrder bool
	EnglishAuctionReservePrice *big.Int
	Metadata                   OrderMetadata
}

// Order is a hashed (and optionally signed) order.
type Order struct {
	UnhashedOrder

	Hash      common.Hash
	Signature *ECSignature

	// Set by the marketplace API, never by this library.
	Cancelled     bool
	Finalized     bool
	MarkedInvalid bool
	CurrentPrice  *decimal.Decimal
}

// IsPrivate reports whether the order is reserved for a specific taker.
func (o *UnhashedOrder) IsPrivate() bool {
	return o.Taker != NullAddress
}

// Clone returns a deep copy so callers can mutate fields without touching the original.
func (o *UnhashedOrder) Clone() *UnhashedOrder {
	c := *o
	c.MakerRelayerFee = cloneInt(o.MakerRelayerFee)
	c.TakerRelayerFee = cloneInt(o.TakerRelayerFee)
	c.MakerProtocolFee = cloneInt(o.MakerProtocolFee)
	c.TakerProtocolFee = cloneInt(o.TakerProtocolFee)
	c.MakerReferrerFee = cloneInt(o.MakerReferrerFee)
	c.BasePrice = cloneInt(o.BasePrice)
	c.Extra = cloneInt(o.Extra)
	c.ListingTime = cloneInt(o.ListingTime)
	c.ExpirationTime = cloneInt(o.ExpirationTime)
	c.Salt = cloneInt(o.Salt)
	c.Quantity = cloneInt(o.Quantity)
	c.EnglishAuctionReservePrice = cloneInt(o.EnglishAuctionReservePrice)
	c.Calldata = cloneBytes(o.Calldata)
	c.ReplacementPattern = cloneBytes(o.ReplacementPattern)
	c.StaticExtradata = cloneBytes(o.StaticExtradata)
	return &c
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
