// Package seaport builds Seaport order components and computes their EIP-712
// hashes. Listings and offers split the price into seller proceeds and fee
// consideration items the same way the marketplace's Wyvern orders do.
package seaport

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/nft-orders/pkg/types"
)

// ItemType is the Seaport item kind.
type ItemType uint8

const (
	ItemNative ItemType = iota
	ItemERC20
	ItemERC721
	ItemERC1155
	ItemERC721WithCriteria
	ItemERC1155WithCriteria
)

// OrderType controls partial fills and zone restriction.
type OrderType uint8

const (
	OrderFullOpen OrderType = iota
	OrderPartialOpen
	OrderFullRestricted
	OrderPartialRestricted
)

const inverseBasisPoint = 10000

// OfferItem is something the offerer gives up.
type OfferItem struct {
	ItemType             ItemType       `json:"itemType"`
	Token                common.Address `json:"token"`
	IdentifierOrCriteria *big.Int       `json:"identifierOrCriteria"`
	StartAmount          *big.Int       `json:"startAmount"`
	EndAmount            *big.Int       `json:"endAmount"`
}

// ConsiderationItem is something a recipient must receive for the order to fill.
type ConsiderationItem struct {
	ItemType             ItemType       `json:"itemType"`
	Token                common.Address `json:"token"`
	IdentifierOrCriteria *big.Int       `json:"identifierOrCriteria"`
	StartAmount          *big.Int       `json:"startAmount"`
	EndAmount            *big.Int       `json:"endAmount"`
	Recipient            common.Address `json:"recipient"`
}

// OrderComponents is the signed body of a Seaport order.
type OrderComponents struct {
	Offerer       common.Address      `json:"offerer"`
	Zone          common.Address      `json:"zone"`
	Offer         []OfferItem         `json:"offer"`
	Consideration []ConsiderationItem `json:"consideration"`
	OrderType     OrderType           `json:"orderType"`
	StartTime     *big.Int            `json:"startTime"`
	EndTime       *big.Int            `json:"endTime"`
	ZoneHash      common.Hash         `json:"zoneHash"`
	Salt          *big.Int            `json:"salt"`
	ConduitKey    common.Hash         `json:"conduitKey"`
	Counter       *big.Int            `json:"counter"`
}

// Fee pays BasisPoints of the price to Recipient.
type Fee struct {
	Recipient   common.Address
	BasisPoints int64
}

// ListingParams describes a Seaport listing. Amounts are in base units.
type ListingParams struct {
	Offerer      common.Address
	Asset        types.Asset
	Quantity     *big.Int // nil means 1
	PaymentToken common.Address
	StartPrice   *big.Int
	EndPrice     *big.Int // nil means fixed price
	Fees         []Fee
	StartTime    int64
	EndTime      int64
	Salt         *big.Int
	Counter      *big.Int
	Zone         common.Address
	ConduitKey   common.Hash
}

// OfferParams describes a Seaport offer on one asset. The payment token must be an ERC-20.
type OfferParams struct {
	Offerer      common.Address
	Asset        types.Asset
	Quantity     *big.Int
	PaymentToken common.Address
	Price        *big.Int
	Fees         []Fee
	StartTime    int64
	EndTime      int64
	Salt         *big.Int
	Counter      *big.Int
	Zone         common.Address
	ConduitKey   common.Hash
}

// BuildListing returns order components that sell an asset. The offerer receives
// the price minus every fee; each fee becomes its own consideration item.
func BuildListing(p ListingParams) (*OrderComponents, error) {
	if p.StartPrice == nil || p.StartPrice.Sign() < 0 {
		return nil, types.NewValidationError("startPrice", "Starting price must be a number >= 0")
	}
	end := p.EndPrice
	if end == nil {
		end = p.StartPrice
	}
	if end.Sign() < 0 {
		return nil, types.NewValidationError("endPrice", "End price must be a number >= 0")
	}
	if err := checkWindow(p.StartTime, p.EndTime); err != nil {
		return nil, err
	}
	if err := checkFees(p.Fees); err != nil {
		return nil, err
	}

	assetItem, err := assetOffer(p.Asset, p.Quantity)
	if err != nil {
		return nil, err
	}

	paymentType := ItemERC20
	if p.PaymentToken == types.NullAddress {
		paymentType = ItemNative
	}

	consideration := []ConsiderationItem{{
		ItemType:             paymentType,
		Token:                p.PaymentToken,
		IdentifierOrCriteria: new(big.Int),
		StartAmount:          proceeds(p.StartPrice, p.Fees),
		EndAmount:            proceeds(end, p.Fees),
		Recipient:            p.Offerer,
	}}
	consideration = append(consideration, feeItems(paymentType, p.PaymentToken, p.StartPrice, end, p.Fees)...)

	return &OrderComponents{
		Offerer:       p.Offerer,
		Zone:          p.Zone,
		Offer:         []OfferItem{assetItem},
		Consideration: consideration,
		OrderType:     OrderFullOpen,
		StartTime:     big.NewInt(p.StartTime),
		EndTime:       big.NewInt(p.EndTime),
		Salt:          intOrZero(p.Salt),
		ConduitKey:    p.ConduitKey,
		Counter:       intOrZero(p.Counter),
	}, nil
}

// BuildOffer returns order components that bid on an asset with an ERC-20.
// Fees are paid out of the offered amount.
func BuildOffer(p OfferParams) (*OrderComponents, error) {
	if p.PaymentToken == types.NullAddress {
		return nil, types.NewValidationError("paymentToken", "Offers must use wrapped ETH or an ERC-20 token.")
	}
	if p.Price == nil || p.Price.Sign() <= 0 {
		return nil, types.NewValidationError("price", "Offer price must be greater than 0")
	}
	if err := checkWindow(p.StartTime, p.EndTime); err != nil {
		return nil, err
	}
	if err := checkFees(p.Fees); err != nil {
		return nil, err
	}

	want, err := assetOffer(p.Asset, p.Quantity)
	if err != nil {
		return nil, err
	}

	consideration := []ConsiderationItem{{
		ItemType:             want.ItemType,
		Token:                want.Token,
		IdentifierOrCriteria: want.IdentifierOrCriteria,
		StartAmount:          want.StartAmount,
		EndAmount:            want.EndAmount,
		Recipient:            p.Offerer,
	}}
	consideration = append(consideration, feeItems(ItemERC20, p.PaymentToken, p.Price, p.Price, p.Fees)...)

	return &OrderComponents{
		Offerer: p.Offerer,
		Zone:    p.Zone,
		Offer: []OfferItem{{
			ItemType:             ItemERC20,
			Token:                p.PaymentToken,
			IdentifierOrCriteria: new(big.Int),
			StartAmount:          new(big.Int).Set(p.Price),
			EndAmount:            new(big.Int).Set(p.Price),
		}},
		Consideration: consideration,
		OrderType:     OrderFullOpen,
		StartTime:     big.NewInt(p.StartTime),
		EndTime:       big.NewInt(p.EndTime),
		Salt:          intOrZero(p.Salt),
		ConduitKey:    p.ConduitKey,
		Counter:       intOrZero(p.Counter),
	}, nil
}

// CurrentAmount interpolates linearly between start and end over [startTime, endTime].
// Elapsed time is clamped to the window. roundUp is used for consideration
// amounts so the offerer never receives less than the curve promises.
func CurrentAmount(start, end *big.Int, startTime, endTime, now int64, roundUp bool) *big.Int {
	if start.Cmp(end) == 0 || endTime <= startTime {
		return new(big.Int).Set(start)
	}

	duration := endTime - startTime
	elapsed := now - startTime
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > duration {
		elapsed = duration
	}
	remaining := duration - elapsed

	total := new(big.Int).Mul(start, big.NewInt(remaining))
	total.Add(total, new(big.Int).Mul(end, big.NewInt(elapsed)))

	d := big.NewInt(duration)
	if roundUp && total.Sign() > 0 {
		total.Sub(total, big.NewInt(1))
		total.Quo(total, d)
		return total.Add(total, big.NewInt(1))
	}
	return total.Quo(total, d)
}

// TotalPrice is the sum of consideration start amounts paid in token.
func (c *OrderComponents) TotalPrice(token common.Address) *big.Int {
	total := new(big.Int)
	for _, item := range c.Consideration {
		if item.Token == token && (item.ItemType == ItemNative || item.ItemType == ItemERC20) {
			total.Add(total, item.StartAmount)
		}
	}
	return total
}

func assetOffer(asset types.Asset, quantity *big.Int) (OfferItem, error) {
	id, ok := new(big.Int).SetString(asset.TokenID, 10)
	if !ok {
		return OfferItem{}, types.NewValidationError("tokenId", "Invalid token id %q", asset.TokenID)
	}
	if quantity == nil {
		quantity = big.NewInt(1)
	}
	if quantity.Sign() <= 0 {
		return OfferItem{}, types.NewValidationError("quantity", "Quantity must be greater than 0")
	}

	itemType := ItemERC721
	switch asset.SchemaName {
	case "ERC1155":
		itemType = ItemERC1155
	case "ERC721", "":
		if quantity.Cmp(big.NewInt(1)) != 0 {
			return OfferItem{}, types.NewValidationError("quantity", "ERC721 assets have a quantity of 1")
		}
	default:
		return OfferItem{}, types.NewValidationError("schemaName", "Unsupported asset schema %q", asset.SchemaName)
	}

	return OfferItem{
		ItemType:             itemType,
		Token:                asset.TokenAddress,
		IdentifierOrCriteria: id,
		StartAmount:          new(big.Int).Set(quantity),
		EndAmount:            new(big.Int).Set(quantity),
	}, nil
}

func checkWindow(start, end int64) error {
	if end != 0 && end <= start {
		return types.NewValidationError("endTime", "End time must be after the start time.")
	}
	return nil
}

func checkFees(fees []Fee) error {
	var total int64
	for _, f := range fees {
		if f.BasisPoints < 0 {
			return types.NewValidationError("fees", "Invalid fees: must be at least 0%%")
		}
		total += f.BasisPoints
	}
	if total > inverseBasisPoint {
		return types.NewValidationError("fees", "Invalid fees: must be less than 100%%")
	}
	return nil
}

func feeAmount(price *big.Int, bps int64) *big.Int {
	amount := new(big.Int).Mul(price, big.NewInt(bps))
	return amount.Quo(amount, big.NewInt(inverseBasisPoint))
}

// proceeds is what the offerer keeps after fees. Rounding dust stays with the offerer.
func proceeds(price *big.Int, fees []Fee) *big.Int {
	out := new(big.Int).Set(price)
	for _, f := range fees {
		out.Sub(out, feeAmount(price, f.BasisPoints))
	}
	return out
}

func feeItems(itemType ItemType, token common.Address, start, end *big.Int, fees []Fee) []ConsiderationItem {
	items := make([]ConsiderationItem, 0, len(fees))
	for _, f := range fees {
		if f.BasisPoints == 0 {
			continue
		}
		items = append(items, ConsiderationItem{
			ItemType:             itemType,
			Token:                token,
			IdentifierOrCriteria: new(big.Int),
			StartAmount:          feeAmount(start, f.BasisPoints),
			EndAmount:            feeAmount(end, f.BasisPoints),
			Recipient:            f.Recipient,
		})
	}
	return items
}

func intOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
