package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/mselser95/nft-orders/internal/orders"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/mselser95/nft-orders/pkg/wyvern"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func addAssetFlags(c *cobra.Command) {
	c.Flags().String("contract", "", "Asset contract address")
	c.Flags().StringSlice("token-id", nil, "Token ID; repeat to trade a bundle")
	c.Flags().String("schema", "ERC721", "Asset schema: ERC721, ERC1155 or ERC20")
	c.Flags().Int32("decimals", 0, "Decimals of a fungible asset")
	c.Flags().String("quantity", "1", "Quantity in whole units")
	c.Flags().String("bundle-name", "", "Bundle name when several token IDs are given")
	c.Flags().String("price", "", "Price in whole units of the payment token")
	c.Flags().Duration("expiration", 0, "Time until the order expires (0 never expires)")
	c.Flags().Int64("bounty", 0, "Extra seller bounty in basis points")
	_ = c.MarkFlagRequired("contract")
	_ = c.MarkFlagRequired("token-id")
	_ = c.MarkFlagRequired("price")
}

// assetFlags is the parsed form of addAssetFlags.
type assetFlags struct {
	assets     []types.Asset
	bundleName string
	quantity   decimal.Decimal
	price      decimal.Decimal
	expiration int64
	bounty     int64
}

func (a *assetFlags) bundle() types.Bundle {
	name := a.bundleName
	if name == "" {
		name = fmt.Sprintf("Bundle of %d assets", len(a.assets))
	}
	return types.Bundle{Name: name, Assets: a.assets}
}

func (a *assetFlags) quantities() []decimal.Decimal {
	out := make([]decimal.Decimal, len(a.assets))
	for i := range out {
		out[i] = a.quantity
	}
	return out
}

func parseAssetFlags(cmd *cobra.Command, now time.Time) (*assetFlags, error) {
	flags := cmd.Flags()
	contractFlag, _ := flags.GetString("contract")
	tokenIDs, _ := flags.GetStringSlice("token-id")
	schema, _ := flags.GetString("schema")
	decimals, _ := flags.GetInt32("decimals")
	quantityFlag, _ := flags.GetString("quantity")
	priceFlag, _ := flags.GetString("price")
	expiration, _ := flags.GetDuration("expiration")

	contract, err := parseAddress("contract", contractFlag)
	if err != nil {
		return nil, err
	}
	if len(tokenIDs) == 0 {
		return nil, errors.New("--token-id is required")
	}

	out := &assetFlags{}
	out.bundleName, _ = flags.GetString("bundle-name")
	out.bounty, _ = flags.GetInt64("bounty")
	for _, id := range tokenIDs {
		out.assets = append(out.assets, types.Asset{
			TokenAddress: contract,
			TokenID:      id,
			SchemaName:   schema,
			Decimals:     decimals,
		})
	}

	out.quantity, err = parseDecimal("quantity", quantityFlag)
	if err != nil {
		return nil, err
	}
	out.price, err = parseDecimal("price", priceFlag)
	if err != nil {
		return nil, err
	}
	if expiration > 0 {
		out.expiration = now.Add(expiration).Unix()
	}
	return out, nil
}

func newSellCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "sell",
		Short: "List an asset or bundle for sale",
		Long: `Builds, signs and posts a sell order for the PRIVATE_KEY account. A lower
--end-price creates a Dutch auction; --wait-for-highest-bid creates an English
auction. The posted order is printed in wire format.`,
		Args: cobra.NoArgs,
		RunE: runSell,
	}
	addAssetFlags(c)
	c.Flags().String("end-price", "", "End price for a Dutch auction")
	c.Flags().Bool("wait-for-highest-bid", false, "Run an English auction")
	c.Flags().String("reserve", "", "English auction reserve price")
	c.Flags().String("payment-token", "", "ERC-20 payment token (default: native ether)")
	c.Flags().String("buyer", "", "Reserve the listing for this taker")
	return c
}

func runSell(cmd *cobra.Command, _ []string) error {
	parsed, err := parseAssetFlags(cmd, time.Now())
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	endFlag, _ := flags.GetString("end-price")
	reserveFlag, _ := flags.GetString("reserve")
	paymentFlag, _ := flags.GetString("payment-token")
	buyerFlag, _ := flags.GetString("buyer")
	english, _ := flags.GetBool("wait-for-highest-bid")

	endAmount, err := optionalDecimal("end-price", endFlag)
	if err != nil {
		return err
	}
	reserve, err := optionalDecimal("reserve", reserveFlag)
	if err != nil {
		return err
	}
	paymentToken, err := parseAddress("payment-token", paymentFlag)
	if err != nil {
		return err
	}
	buyer, err := parseAddress("buyer", buyerFlag)
	if err != nil {
		return err
	}

	application, logger, cleanup, err := loadApp()
	if err != nil {
		return err
	}
	defer cleanup()

	service, err := application.OrderService()
	if err != nil {
		return err
	}
	account, err := application.Account()
	if err != nil {
		return err
	}

	var posted *types.Order
	if len(parsed.assets) == 1 {
		posted, err = service.CreateSellOrder(cmd.Context(), orders.SellIntent{
			Asset:                  parsed.assets[0],
			Account:                account,
			StartAmount:            parsed.price,
			EndAmount:              endAmount,
			Quantity:               parsed.quantity,
			ExpirationTime:         parsed.expiration,
			WaitForHighestBid:      english,
			ReservePrice:           reserve,
			PaymentToken:           paymentToken,
			ExtraBountyBasisPoints: parsed.bounty,
			BuyerAddress:           buyer,
		})
	} else {
		posted, err = service.CreateBundleSellOrder(cmd.Context(), orders.BundleSellIntent{
			Bundle:                 parsed.bundle(),
			Quantities:             parsed.quantities(),
			Account:                account,
			StartAmount:            parsed.price,
			EndAmount:              endAmount,
			ExpirationTime:         parsed.expiration,
			WaitForHighestBid:      english,
			ReservePrice:           reserve,
			PaymentToken:           paymentToken,
			ExtraBountyBasisPoints: parsed.bounty,
			BuyerAddress:           buyer,
		})
	}
	if err != nil {
		return fmt.Errorf("create sell order: %w", err)
	}

	logger.Info("sell-order-posted",
		zap.String("hash", posted.Hash.Hex()),
		zap.Int("assets", len(parsed.assets)))
	return writeJSON(cmd, wyvern.Serialize(posted))
}
