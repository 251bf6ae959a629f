package cmd

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/nft-orders/internal/orders"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/mselser95/nft-orders/pkg/wyvern"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newOfferCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "offer",
		Short: "Make an offer on an asset or bundle",
		Long: `Builds, signs and posts a buy order for the PRIVATE_KEY account. Offers are
paid in an ERC-20, by default the network's wrapped ether. When RPC_URL is set
the account's balance and allowance are checked before signing.`,
		Args: cobra.NoArgs,
		RunE: runOffer,
	}
	addAssetFlags(c)
	c.Flags().String("payment-token", "", "ERC-20 payment token (default: wrapped ether)")
	c.Flags().String("referrer", "", "Referrer recorded in the order metadata")
	return c
}

func runOffer(cmd *cobra.Command, _ []string) error {
	parsed, err := parseAssetFlags(cmd, time.Now())
	if err != nil {
		return err
	}

	paymentFlag, _ := cmd.Flags().GetString("payment-token")
	referrer, _ := cmd.Flags().GetString("referrer")

	var paymentToken *common.Address
	if paymentFlag != "" {
		addr, err := parseAddress("payment-token", paymentFlag)
		if err != nil {
			return err
		}
		paymentToken = &addr
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
		posted, err = service.CreateBuyOrder(cmd.Context(), orders.BuyIntent{
			Asset:                  parsed.assets[0],
			Account:                account,
			StartAmount:            parsed.price,
			Quantity:               parsed.quantity,
			ExpirationTime:         parsed.expiration,
			PaymentToken:           paymentToken,
			ExtraBountyBasisPoints: parsed.bounty,
			ReferrerAddress:        referrer,
		})
	} else {
		posted, err = service.CreateBundleBuyOrder(cmd.Context(), orders.BundleBuyIntent{
			Bundle:                 parsed.bundle(),
			Quantities:             parsed.quantities(),
			Account:                account,
			StartAmount:            parsed.price,
			ExpirationTime:         parsed.expiration,
			PaymentToken:           paymentToken,
			ExtraBountyBasisPoints: parsed.bounty,
			ReferrerAddress:        referrer,
		})
	}
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}

	logger.Info("offer-posted",
		zap.String("hash", posted.Hash.Hex()),
		zap.Int("assets", len(parsed.assets)))
	return writeJSON(cmd, wyvern.Serialize(posted))
}
