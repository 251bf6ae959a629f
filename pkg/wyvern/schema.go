package wyvern

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/nft-orders/pkg/types"
)

// Asset schema names understood by SchemaEncoder.
const (
	SchemaERC721  = "ERC721"
	SchemaERC1155 = "ERC1155"
	SchemaERC20   = "ERC20"
)

const transferABIJSON = `[
	{
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "tokenId", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [],
		"type": "function"
	},
	{
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "id", "type": "uint256"},
			{"name": "value", "type": "uint256"},
			{"name": "data", "type": "bytes"}
		],
		"name": "safeTransferFrom",
		"outputs": [],
		"type": "function"
	}
]`

const atomicizerABIJSON = `[
	{
		"inputs": [
			{"name": "addrs", "type": "address[]"},
			{"name": "values", "type": "uint256[]"},
			{"name": "calldataLengths", "type": "uint256[]"},
			{"name": "calldatas", "type": "bytes"}
		],
		"name": "atomicize",
		"outputs": [],
		"type": "function"
	}
]`

// Word offsets of the from/to arguments in every supported transfer call.
const (
	fromWordStart = 4
	toWordStart   = 4 + 32
	wordSize      = 32
)

// Encoded is the calldata triple placed into an order.
type Encoded struct {
	Target             common.Address
	Calldata           []byte
	ReplacementPattern []byte
	HowToCall          types.HowToCall
}

// SchemaEncoder builds transfer calldata and replacement patterns for the
// asset schemas the marketplace lists.
type SchemaEncoder struct {
	transfer   abi.ABI
	atomicizer abi.ABI
	atomicAddr common.Address
}

// NewSchemaEncoder parses the transfer and atomicizer ABIs.
func NewSchemaEncoder(atomicizer common.Address) (*SchemaEncoder, error) {
	transfer, err := abi.JSON(strings.NewReader(transferABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse transfer ABI: %w", err)
	}
	atomic, err := abi.JSON(strings.NewReader(atomicizerABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse atomicizer ABI: %w", err)
	}
	return &SchemaEncoder{
		transfer:   transfer,
		atomicizer: atomic,
		atomicAddr: atomicizer,
	}, nil
}

// EncodeSell transfers from the maker to a replaceable recipient.
func (e *SchemaEncoder) EncodeSell(asset types.Asset, quantity *big.Int, maker common.Address) (*Encoded, error) {
	calldata, err := e.transferCalldata(asset, quantity, maker, types.NullAddress)
	if err != nil {
		return nil, err
	}
	return &Encoded{
		Target:             asset.TokenAddress,
		Calldata:           calldata,
		ReplacementPattern: wordMask(len(calldata), toWordStart),
		HowToCall:          types.HowToCallCall,
	}, nil
}

// EncodeBuy transfers from a replaceable owner to the maker.
func (e *SchemaEncoder) EncodeBuy(asset types.Asset, quantity *big.Int, maker common.Address) (*Encoded, error) {
	calldata, err := e.transferCalldata(asset, quantity, types.NullAddress, maker)
	if err != nil {
		return nil, err
	}
	return &Encoded{
		Target:             asset.TokenAddress,
		Calldata:           calldata,
		ReplacementPattern: wordMask(len(calldata), fromWordStart),
		HowToCall:          types.HowToCallCall,
	}, nil
}

// EncodeBundleSell atomicizes one sell transfer per asset.
func (e *SchemaEncoder) EncodeBundleSell(assets []types.Asset, quantities []*big.Int, maker common.Address) (*Encoded, error) {
	return e.encodeBundle(assets, quantities, maker, types.SideSell)
}

// EncodeBundleBuy atomicizes one buy transfer per asset.
func (e *SchemaEncoder) EncodeBundleBuy(assets []types.Asset, quantities []*big.Int, maker common.Address) (*Encoded, error) {
	return e.encodeBundle(assets, quantities, maker, types.SideBuy)
}

func (e *SchemaEncoder) encodeBundle(assets []types.Asset, quantities []*big.Int, maker common.Address, side types.Side) (*Encoded, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("encode bundle: no assets")
	}
	if len(quantities) != len(assets) {
		return nil, fmt.Errorf("encode bundle: %d quantities for %d assets", len(quantities), len(assets))
	}

	addrs := make([]common.Address, 0, len(assets))
	values := make([]*big.Int, 0, len(assets))
	lengths := make([]*big.Int, 0, len(assets))
	var calldatas, masks []byte

	for i, asset := range assets {
		var item *Encoded
		var err error
		if side == types.SideSell {
			item, err = e.EncodeSell(asset, quantities[i], maker)
		} else {
			item, err = e.EncodeBuy(asset, quantities[i], maker)
		}
		if err != nil {
			return nil, fmt.Errorf("encode bundle item %d: %w", i, err)
		}
		addrs = append(addrs, item.Target)
		values = append(values, new(big.Int))
		lengths = append(lengths, big.NewInt(int64(len(item.Calldata))))
		calldatas = append(calldatas, item.Calldata...)
		masks = append(masks, item.ReplacementPattern...)
	}

	calldata, err := e.atomicizer.Pack("atomicize", addrs, values, lengths, calldatas)
	if err != nil {
		return nil, fmt.Errorf("pack atomicize: %w", err)
	}

	// The concatenated calldatas sit behind the fourth head word's offset and a length word.
	offset := new(big.Int).SetBytes(calldata[4+3*wordSize : 4+4*wordSize]).Int64()
	start := 4 + int(offset) + wordSize
	pattern := make([]byte, len(calldata))
	copy(pattern[start:start+len(masks)], masks)

	return &Encoded{
		Target:             e.atomicAddr,
		Calldata:           calldata,
		ReplacementPattern: pattern,
		HowToCall:          types.HowToCallDelegateCall,
	}, nil
}

func (e *SchemaEncoder) transferCalldata(asset types.Asset, quantity *big.Int, from, to common.Address) ([]byte, error) {
	tokenID, ok := new(big.Int).SetString(asset.TokenID, 10)
	if !ok && asset.SchemaName != SchemaERC20 {
		return nil, fmt.Errorf("encode transfer: invalid token id %q", asset.TokenID)
	}
	if quantity == nil {
		quantity = big.NewInt(1)
	}

	switch schemaOrDefault(asset.SchemaName) {
	case SchemaERC721:
		return e.transfer.Pack("transferFrom", from, to, tokenID)
	case SchemaERC1155:
		return e.transfer.Pack("safeTransferFrom", from, to, tokenID, quantity, []byte{})
	case SchemaERC20:
		return e.transfer.Pack("transferFrom", from, to, quantity)
	default:
		return nil, fmt.Errorf("encode transfer: unsupported schema %q", asset.SchemaName)
	}
}

func schemaOrDefault(name string) string {
	if name == "" {
		return SchemaERC721
	}
	return strings.ToUpper(name)
}

// wordMask returns an all-zero pattern with one 32-byte word set to 0xff.
func wordMask(length, wordStart int) []byte {
	mask := make([]byte, length)
	for i := wordStart; i < wordStart+wordSize && i < length; i++ {
		mask[i] = 0xff
	}
	return mask
}
