package seaport

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Seaport v1.5 is deployed at the same address on every supported chain.
var Seaport15Address = common.HexToAddress("0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC")

// Domain is the EIP-712 domain an order is signed under.
type Domain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract common.Address
}

// DefaultDomain returns the Seaport v1.5 domain for chainID.
func DefaultDomain(chainID int64) Domain {
	return Domain{
		Name:              "Seaport",
		Version:           "1.5",
		ChainID:           chainID,
		VerifyingContract: Seaport15Address,
	}
}

var orderTypes = apitypes.Types{
	"EIP712Domain": []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"OrderComponents": []apitypes.Type{
		{Name: "offerer", Type: "address"},
		{Name: "zone", Type: "address"},
		{Name: "offer", Type: "OfferItem[]"},
		{Name: "consideration", Type: "ConsiderationItem[]"},
		{Name: "orderType", Type: "uint8"},
		{Name: "startTime", Type: "uint256"},
		{Name: "endTime", Type: "uint256"},
		{Name: "zoneHash", Type: "bytes32"},
		{Name: "salt", Type: "uint256"},
		{Name: "conduitKey", Type: "bytes32"},
		{Name: "counter", Type: "uint256"},
	},
	"OfferItem": []apitypes.Type{
		{Name: "itemType", Type: "uint8"},
		{Name: "token", Type: "address"},
		{Name: "identifierOrCriteria", Type: "uint256"},
		{Name: "startAmount", Type: "uint256"},
		{Name: "endAmount", Type: "uint256"},
	},
	"ConsiderationItem": []apitypes.Type{
		{Name: "itemType", Type: "uint8"},
		{Name: "token", Type: "address"},
		{Name: "identifierOrCriteria", Type: "uint256"},
		{Name: "startAmount", Type: "uint256"},
		{Name: "endAmount", Type: "uint256"},
		{Name: "recipient", Type: "address"},
	},
}

func (d Domain) typed() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              d.Name,
		Version:           d.Version,
		ChainId:           math.NewHexOrDecimal256(d.ChainID),
		VerifyingContract: d.VerifyingContract.Hex(),
	}
}

func (c *OrderComponents) message() apitypes.TypedDataMessage {
	offer := make([]interface{}, len(c.Offer))
	for i, item := range c.Offer {
		offer[i] = map[string]interface{}{
			"itemType":             fmt.Sprintf("%d", item.ItemType),
			"token":                item.Token.Hex(),
			"identifierOrCriteria": intOrZero(item.IdentifierOrCriteria).String(),
			"startAmount":          intOrZero(item.StartAmount).String(),
			"endAmount":            intOrZero(item.EndAmount).String(),
		}
	}

	consideration := make([]interface{}, len(c.Consideration))
	for i, item := range c.Consideration {
		consideration[i] = map[string]interface{}{
			"itemType":             fmt.Sprintf("%d", item.ItemType),
			"token":                item.Token.Hex(),
			"identifierOrCriteria": intOrZero(item.IdentifierOrCriteria).String(),
			"startAmount":          intOrZero(item.StartAmount).String(),
			"endAmount":            intOrZero(item.EndAmount).String(),
			"recipient":            item.Recipient.Hex(),
		}
	}

	return apitypes.TypedDataMessage{
		"offerer":       c.Offerer.Hex(),
		"zone":          c.Zone.Hex(),
		"offer":         offer,
		"consideration": consideration,
		"orderType":     fmt.Sprintf("%d", c.OrderType),
		"startTime":     intOrZero(c.StartTime).String(),
		"endTime":       intOrZero(c.EndTime).String(),
		"zoneHash":      c.ZoneHash.Hex(),
		"salt":          intOrZero(c.Salt).String(),
		"conduitKey":    c.ConduitKey.Hex(),
		"counter":       intOrZero(c.Counter).String(),
	}
}

// OrderHash returns the EIP-712 struct hash of the components, which is the
// order hash the Seaport contract reports.
func OrderHash(c *OrderComponents) (common.Hash, error) {
	td := apitypes.TypedData{Types: orderTypes, PrimaryType: "OrderComponents", Message: c.message()}
	hash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash order components: %w", err)
	}
	return common.BytesToHash(hash), nil
}

// HashOrderComponents returns the EIP-712 digest that the offerer signs.
func HashOrderComponents(c *OrderComponents, domain Domain) (common.Hash, error) {
	td := apitypes.TypedData{
		Types:       orderTypes,
		PrimaryType: "OrderComponents",
		Domain:      domain.typed(),
		Message:     c.message(),
	}

	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash domain: %w", err)
	}
	structHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash order components: %w", err)
	}

	raw := make([]byte, 0, 66)
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, domainSeparator...)
	raw = append(raw, structHash...)
	return crypto.Keccak256Hash(raw), nil
}

// Sign returns the 65-byte signature over the order digest, with V in {27, 28}.
func Sign(c *OrderComponents, domain Domain, key *ecdsa.PrivateKey) ([]byte, error) {
	digest, err := HashOrderComponents(c, domain)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("sign order components: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// RecoverOfferer returns the address that signed the components.
func RecoverOfferer(c *OrderComponents, domain Domain, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("recover offerer: signature length %d", len(sig))
	}
	digest, err := HashOrderComponents(c, domain)
	if err != nil {
		return common.Address{}, err
	}

	raw := make([]byte, 65)
	copy(raw, sig)
	if raw[64] >= 27 {
		raw[64] -= 27
	}
	pub, err := crypto.SigToPub(digest.Bytes(), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover offerer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
