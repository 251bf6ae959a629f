package cmd

import (
	"fmt"
	"strings"

	"github.com/mselser95/nft-orders/internal/fees"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/spf13/cobra"
)

type feesOutput struct {
	TotalBuyerFeeBasisPoints        int64 `json:"total_buyer_fee_basis_points"`
	TotalSellerFeeBasisPoints       int64 `json:"total_seller_fee_basis_points"`
	MarketplaceBuyerFeeBasisPoints  int64 `json:"marketplace_buyer_fee_basis_points"`
	MarketplaceSellerFeeBasisPoints int64 `json:"marketplace_seller_fee_basis_points"`
	DevBuyerFeeBasisPoints          int64 `json:"dev_buyer_fee_basis_points"`
	DevSellerFeeBasisPoints         int64 `json:"dev_seller_fee_basis_points"`
	SellerBountyBasisPoints         int64 `json:"seller_bounty_basis_points"`
}

func newFeesCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "fees",
		Short: "Compute the fee breakdown for an order",
		Long: `Computes buyer and seller fees in basis points. With --contract the fee
configuration is fetched from the marketplace; with any of the *-bps flags it is
taken from the flags; otherwise the marketplace defaults apply.`,
		Args: cobra.NoArgs,
		RunE: runFees,
	}
	c.Flags().String("side", "sell", "Order side: buy or sell")
	c.Flags().String("contract", "", "Asset contract to fetch fees for (online)")
	c.Flags().Int64("marketplace-buyer-bps", 0, "Marketplace buyer fee")
	c.Flags().Int64("marketplace-seller-bps", 0, "Marketplace seller fee")
	c.Flags().Int64("dev-buyer-bps", 0, "Creator buyer fee")
	c.Flags().Int64("dev-seller-bps", 0, "Creator seller fee")
	c.Flags().Int64("bounty", 0, "Extra seller bounty in basis points")
	c.Flags().Bool("private", false, "Order is reserved for one taker")
	return c
}

func parseSide(v string) (types.Side, error) {
	switch strings.ToLower(v) {
	case "buy":
		return types.SideBuy, nil
	case "sell":
		return types.SideSell, nil
	default:
		return 0, fmt.Errorf("--side must be buy or sell, got %q", v)
	}
}

func runFees(cmd *cobra.Command, _ []string) error {
	sideFlag, _ := cmd.Flags().GetString("side")
	contractFlag, _ := cmd.Flags().GetString("contract")
	bounty, _ := cmd.Flags().GetInt64("bounty")
	private, _ := cmd.Flags().GetBool("private")

	side, err := parseSide(sideFlag)
	if err != nil {
		return err
	}

	contract, err := feeContract(cmd, contractFlag)
	if err != nil {
		return err
	}

	computed, err := fees.Compute(fees.ComputeParams{
		Contract:               contract,
		Side:                   side,
		IsPrivate:              private,
		ExtraBountyBasisPoints: bounty,
	})
	if err != nil {
		return err
	}

	return writeJSON(cmd, feesOutput{
		TotalBuyerFeeBasisPoints:        computed.TotalBuyerFeeBasisPoints,
		TotalSellerFeeBasisPoints:       computed.TotalSellerFeeBasisPoints,
		MarketplaceBuyerFeeBasisPoints:  computed.MarketplaceBuyerFeeBasisPoints,
		MarketplaceSellerFeeBasisPoints: computed.MarketplaceSellerFeeBasisPoints,
		DevBuyerFeeBasisPoints:          computed.DevBuyerFeeBasisPoints,
		DevSellerFeeBasisPoints:         computed.DevSellerFeeBasisPoints,
		SellerBountyBasisPoints:         computed.SellerBountyBasisPoints,
	})
}

// feeContract resolves the fee configuration; nil means marketplace defaults.
func feeContract(cmd *cobra.Command, contractFlag string) (*types.AssetContract, error) {
	if contractFlag != "" {
		address, err := parseAddress("contract", contractFlag)
		if err != nil {
			return nil, err
		}

		application, _, cleanup, err := loadApp()
		if err != nil {
			return nil, err
		}
		defer cleanup()

		return application.Source().GetAssetContract(cmd.Context(), address)
	}

	changed := false
	for _, name := range []string{"marketplace-buyer-bps", "marketplace-seller-bps", "dev-buyer-bps", "dev-seller-bps"} {
		changed = changed || cmd.Flags().Changed(name)
	}
	if !changed {
		return nil, nil
	}

	contract := &types.AssetContract{}
	contract.MarketplaceBuyerFeeBasisPoints, _ = cmd.Flags().GetInt64("marketplace-buyer-bps")
	contract.MarketplaceSellerFeeBasisPoints, _ = cmd.Flags().GetInt64("marketplace-seller-bps")
	contract.DevBuyerFeeBasisPoints, _ = cmd.Flags().GetInt64("dev-buyer-bps")
	contract.DevSellerFeeBasisPoints, _ = cmd.Flags().GetInt64("dev-seller-bps")
	return contract, nil
}
