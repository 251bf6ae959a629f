package wyvern

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Network names accepted by the marketplace API.
const (
	NetworkMain    = "main"
	NetworkRinkeby = "rinkeby"
)

// Contracts holds the protocol addresses deployed on one network.
type Contracts struct {
	Exchange           common.Address
	ProxyRegistry      common.Address
	TokenTransferProxy common.Address
	Atomicizer         common.Address
	WrappedNative      common.Address
	FeeRecipient       common.Address
}

//nolint:gochecknoglobals // static deployment table
var networks = map[string]Contracts{
	NetworkMain: {
		Exchange:           common.HexToAddress("0x7be8076f4ea4a4ad08075c2508e481d6c946d12b"),
		ProxyRegistry:      common.HexToAddress("0xa5409ec958c83c3f309868babaca7c86dcb077c1"),
		TokenTransferProxy: common.HexToAddress("0xe5c783ee536cf5e63e792988335c4255169be4e1"),
		Atomicizer:         common.HexToAddress("0xc99f70bfd82fb7c8f8191fdfbfb735606b15e5c5"),
		WrappedNative:      common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"),
		FeeRecipient:       common.HexToAddress("0x5b3256965e7c3cf26e11fcaf296dfc8807c01073"),
	},
	NetworkRinkeby: {
		Exchange:           common.HexToAddress("0x5206e78b21ce315ce284fb24cf05e0585a93b1d9"),
		ProxyRegistry:      common.HexToAddress("0xf57b2c51ded3a29e6891aba85459d600256cf317"),
		TokenTransferProxy: common.HexToAddress("0x82d102457854c985221249f86659c9d6cf12aa72"),
		Atomicizer:         common.HexToAddress("0x613a12b156ae4a8c3d8dc8a83b1e5d2e58e1c04a"),
		WrappedNative:      common.HexToAddress("0xc778417e063141139fce010982780140aa0cd5ab"),
		FeeRecipient:       common.HexToAddress("0x5b3256965e7c3cf26e11fcaf296dfc8807c01073"),
	},
}

// ContractsFor returns the deployment for a network name.
func ContractsFor(network string) (Contracts, error) {
	c, ok := networks[network]
	if !ok {
		return Contracts{}, fmt.Errorf("unsupported network %q", network)
	}
	return c, nil
}

// WrappedNativeToken returns the canonical wrapped native token (WETH) address.
func WrappedNativeToken(network string) (common.Address, error) {
	c, err := ContractsFor(network)
	if err != nil {
		return common.Address{}, err
	}
	return c.WrappedNative, nil
}
