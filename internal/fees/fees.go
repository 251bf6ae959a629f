// Package fees computes the basis-point fee split embedded in marketplace orders.
package fees

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/shopspring/decimal"
)

const (
	// InverseBasisPoint is the fee denominator: 100 bps = 1%.
	InverseBasisPoint = 10000

	DefaultBuyerFeeBasisPoints  = 0
	DefaultSellerFeeBasisPoints = 250

	// MarketplaceSellerBountyBasisPoints is what the marketplace adds for referrers with accounts.
	MarketplaceSellerBountyBasisPoints = 100

	// DefaultMaxBounty caps the seller bounty when no asset contract is known.
	DefaultMaxBounty = DefaultSellerFeeBasisPoints
)

// ComputeParams is the input to Compute.
type ComputeParams struct {
	// Contract is nil for heterogeneous bundles and unknown contracts.
	Contract               *types.AssetContract
	Side                   types.Side
	IsPrivate              bool
	ExtraBountyBasisPoints int64
}

// Compute derives the fee breakdown for an order. Private orders pay no fees.
func Compute(p ComputeParams) (*types.ComputedFees, error) {
	if p.IsPrivate {
		return &types.ComputedFees{}, nil
	}
	if p.ExtraBountyBasisPoints < 0 {
		return nil, types.NewValidationError("extraBountyBasisPoints", "Bounty must be at least 0%%")
	}

	marketplaceBuyer := int64(DefaultBuyerFeeBasisPoints)
	marketplaceSeller := int64(DefaultSellerFeeBasisPoints)
	var devBuyer, devSeller int64
	maxBounty := int64(DefaultMaxBounty)

	if p.Contract != nil {
		marketplaceBuyer = p.Contract.MarketplaceBuyerFeeBasisPoints
		marketplaceSeller = p.Contract.MarketplaceSellerFeeBasisPoints
		devBuyer = p.Contract.DevBuyerFeeBasisPoints
		devSeller = p.Contract.DevSellerFeeBasisPoints
		maxBounty = marketplaceSeller
	}

	var bounty int64
	if p.Side == types.SideSell {
		bounty = p.ExtraBountyBasisPoints
	}

	if bounty > 0 && bounty+MarketplaceSellerBountyBasisPoints > maxBounty {
		return nil, types.NewValidationError("extraBountyBasisPoints",
			"Total bounty exceeds the maximum for this asset type (%s%%). Remember that the marketplace will add %s%% for referrers with marketplace accounts!",
			percent(maxBounty), percent(MarketplaceSellerBountyBasisPoints))
	}

	return &types.ComputedFees{
		TotalBuyerFeeBasisPoints:        marketplaceBuyer + devBuyer,
		TotalSellerFeeBasisPoints:       marketplaceSeller + devSeller,
		MarketplaceBuyerFeeBasisPoints:  marketplaceBuyer,
		MarketplaceSellerFeeBasisPoints: marketplaceSeller,
		DevBuyerFeeBasisPoints:          devBuyer,
		DevSellerFeeBasisPoints:         devSeller,
		SellerBountyBasisPoints:         bounty,
	}, nil
}

// percent renders basis points as a percentage without trailing zeros.
func percent(bps int64) string {
	return decimal.New(bps, -2).String()
}

// Parameters are the fee fields written into an order.
type Parameters struct {
	MakerRelayerFee  *big.Int
	TakerRelayerFee  *big.Int
	MakerProtocolFee *big.Int
	TakerProtocolFee *big.Int
	MakerReferrerFee *big.Int
	FeeRecipient     common.Address
	FeeMethod        types.FeeMethod
}

// Apply copies the fee fields into u.
func (p *Parameters) Apply(u *types.UnhashedOrder) {
	u.MakerRelayerFee = new(big.Int).Set(p.MakerRelayerFee)
	u.TakerRelayerFee = new(big.Int).Set(p.TakerRelayerFee)
	u.MakerProtocolFee = new(big.Int).Set(p.MakerProtocolFee)
	u.TakerProtocolFee = new(big.Int).Set(p.TakerProtocolFee)
	u.MakerReferrerFee = new(big.Int).Set(p.MakerReferrerFee)
	u.FeeRecipient = p.FeeRecipient
	u.FeeMethod = p.FeeMethod
}

// Schedule turns computed fees into order fee fields for one marketplace fee recipient.
type Schedule struct {
	FeeRecipient common.Address
}

// NewSchedule creates a fee schedule paying recipient.
func NewSchedule(recipient common.Address) *Schedule {
	return &Schedule{FeeRecipient: recipient}
}

// BuyParameters returns fee fields for an offer. When counter is set the relayer
// and protocol fees mirror it so the pair settles with identical fee accounting.
func (s *Schedule) BuyParameters(totalBuyer, totalSeller int64, counter *types.Order) (*Parameters, error) {
	err := validateFees(totalBuyer, totalSeller)
	if err != nil {
		return nil, err
	}

	params := &Parameters{
		MakerRelayerFee:  big.NewInt(totalBuyer),
		TakerRelayerFee:  big.NewInt(totalSeller),
		MakerProtocolFee: new(big.Int),
		TakerProtocolFee: new(big.Int),
		MakerReferrerFee: new(big.Int),
		FeeRecipient:     s.FeeRecipient,
		FeeMethod:        types.FeeMethodSplitFee,
	}

	if counter != nil {
		// An English-auction sell is the taker, so its fees are already in buyer orientation.
		if counter.WaitingForBestCounterOrder {
			params.MakerRelayerFee = intOrZero(counter.MakerRelayerFee)
			params.TakerRelayerFee = intOrZero(counter.TakerRelayerFee)
		} else {
			params.MakerRelayerFee = intOrZero(counter.TakerRelayerFee)
			params.TakerRelayerFee = intOrZero(counter.MakerRelayerFee)
		}
		params.MakerProtocolFee = intOrZero(counter.MakerProtocolFee)
		params.TakerProtocolFee = intOrZero(counter.TakerProtocolFee)
	}

	return params, nil
}

// SellParameters returns fee fields for a listing. English auctions are filled as
// takers, so they carry no fee recipient and swap maker/taker fees.
func (s *Schedule) SellParameters(totalBuyer, totalSeller int64, waitForHighestBid bool, bounty int64) (*Parameters, error) {
	err := validateFees(totalBuyer, totalSeller)
	if err != nil {
		return nil, err
	}

	params := &Parameters{
		MakerRelayerFee:  big.NewInt(totalSeller),
		TakerRelayerFee:  big.NewInt(totalBuyer),
		MakerProtocolFee: new(big.Int),
		TakerProtocolFee: new(big.Int),
		MakerReferrerFee: big.NewInt(bounty),
		FeeRecipient:     s.FeeRecipient,
		FeeMethod:        types.FeeMethodSplitFee,
	}

	if waitForHighestBid {
		params.FeeRecipient = types.NullAddress
		params.MakerRelayerFee = big.NewInt(totalBuyer)
		params.TakerRelayerFee = big.NewInt(totalSeller)
	}

	return params, nil
}

func validateFees(totalBuyer, totalSeller int64) error {
	if totalBuyer > InverseBasisPoint || totalSeller > InverseBasisPoint {
		return types.NewValidationError("fees", "Invalid buyer/seller fees: must be less than %d%%", InverseBasisPoint/100)
	}
	if totalBuyer < 0 || totalSeller < 0 {
		return types.NewValidationError("fees", "Invalid buyer/seller fees: must be at least 0%%")
	}
	return nil
}

func intOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
