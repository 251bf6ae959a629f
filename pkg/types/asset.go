package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Asset identifies a single token.
type Asset struct {
	TokenAddress common.Address
	TokenID      string
	SchemaName   string
	Decimals     int32 // 0 for non-fungible assets

	// Quantity is the amount in base units a bundle order transfers; nil means 1.
	Quantity *big.Int
}

// Bundle is a named group of assets sold together.
type Bundle struct {
	Name         string
	Description  string
	ExternalLink string
	Assets       []Asset
}

// ContractAddress returns the single contract shared by every asset, or false for
// heterogeneous bundles.
func (b *Bundle) ContractAddress() (common.Address, bool) {
	if len(b.Assets) == 0 {
		return common.Address{}, false
	}
	addr := b.Assets[0].TokenAddress
	for _, a := range b.Assets[1:] {
		if a.TokenAddress != addr {
			return common.Address{}, false
		}
	}
	return addr, true
}

// AssetContract is the fee configuration the marketplace keeps per asset contract.
type AssetContract struct {
	Address                         common.Address
	Name                            string
	SchemaName                      string
	MarketplaceBuyerFeeBasisPoints  int64
	MarketplaceSellerFeeBasisPoints int64
	DevBuyerFeeBasisPoints          int64
	DevSellerFeeBasisPoints         int64
}

// PaymentToken describes an ERC-20 accepted as payment.
type PaymentToken struct {
	Address  common.Address
	Symbol   string
	Decimals int32
}

// ComputedFees is the fee breakdown embedded into orders. All values are basis points.
type ComputedFees struct {
	TotalBuyerFeeBasisPoints        int64
	TotalSellerFeeBasisPoints       int64
	MarketplaceBuyerFeeBasisPoints  int64
	MarketplaceSellerFeeBasisPoints int64
	DevBuyerFeeBasisPoints          int64
	DevSellerFeeBasisPoints         int64
	SellerBountyBasisPoints         int64
}
