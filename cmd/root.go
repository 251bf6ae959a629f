package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nft-orders",
		Short: "NFT marketplace order toolkit",
		Long: `Builds, hashes, signs, prices and validates marketplace orders.

Offline commands (hash, price, validate-match, fees, seaport-listing) work on
order JSON files. Online commands (sell, offer, fulfill, orders, wait-tx,
watch, serve) read their settings from the environment or a .env file.`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// A missing .env is normal; the environment may already be set.
			_ = godotenv.Load()
		},
	}

	root.AddCommand(
		newServeCmd(),
		newHashCmd(),
		newPriceCmd(),
		newValidateMatchCmd(),
		newFeesCmd(),
		newSeaportListingCmd(),
		newSellCmd(),
		newOfferCmd(),
		newFulfillCmd(),
		newOrdersCmd(),
		newWaitTxCmd(),
		newWatchCmd(),
	)
	return root
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
