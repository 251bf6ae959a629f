// Package wyvern implements the Wyvern exchange order encoding: the canonical
// packed order hash, the JSON wire format, order signatures and the calldata
// replacement-pattern match.
package wyvern

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mselser95/nft-orders/pkg/types"
)

// packer accumulates solidity abi.encodePacked output.
type packer struct {
	buf []byte
}

func (p *packer) address(a common.Address) {
	p.buf = append(p.buf, a.Bytes()...)
}

func (p *packer) uint256(v *big.Int) {
	if v == nil {
		v = new(big.Int)
	}
	p.buf = append(p.buf, common.LeftPadBytes(v.Bytes(), 32)...)
}

func (p *packer) uint8(v uint8) {
	p.buf = append(p.buf, v)
}

func (p *packer) bytes(b []byte) {
	p.buf = append(p.buf, b...)
}

// PackOrder returns the tightly packed encoding of every hashed order field in
// canonical order. The signature and local-only metadata are excluded.
func PackOrder(o *types.UnhashedOrder) []byte {
	p := &packer{buf: make([]byte, 0, 1024+len(o.Calldata)+len(o.ReplacementPattern)+len(o.StaticExtradata))}

	p.address(o.Exchange)
	p.address(o.Maker)
	p.address(o.Taker)
	p.uint256(o.MakerRelayerFee)
	p.uint256(o.TakerRelayerFee)
	p.uint256(o.MakerProtocolFee)
	p.uint256(o.TakerProtocolFee)
	p.uint256(o.MakerReferrerFee)
	p.address(o.FeeRecipient)
	p.uint8(o.FeeMethod.Wire())
	p.uint8(o.Side.Wire())
	p.uint8(o.SaleKind.Wire())
	p.address(o.Target)
	p.uint8(o.HowToCall.Wire())
	p.bytes(o.Calldata)
	p.bytes(o.ReplacementPattern)
	p.address(o.StaticTarget)
	p.bytes(o.StaticExtradata)
	p.address(o.PaymentToken)
	p.uint256(o.BasePrice)
	p.uint256(o.Extra)
	p.uint256(o.ListingTime)
	p.uint256(o.ExpirationTime)
	p.uint256(o.Salt)

	return p.buf
}

// HashOrder computes keccak256 over the packed order.
func HashOrder(o *types.UnhashedOrder) common.Hash {
	return crypto.Keccak256Hash(PackOrder(o))
}

// Hashed wraps an unhashed order with its canonical hash.
func Hashed(o *types.UnhashedOrder) *types.Order {
	return &types.Order{
		UnhashedOrder: *o,
		Hash:          HashOrder(o),
	}
}

// VerifyHash reports whether the stored hash still matches the order fields.
func VerifyHash(o *types.Order) bool {
	return HashOrder(&o.UnhashedOrder) == o.Hash
}
