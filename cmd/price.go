package cmd

import (
	"errors"
	"time"

	"github.com/mselser95/nft-orders/internal/pricing"
	"github.com/mselser95/nft-orders/pkg/httpserver"
	"github.com/spf13/cobra"
)

func newPriceCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "price <order.json|->",
		Short: "Estimate an order's current settlement price",
		Long: `Prints the current price of an order in base units of its payment token,
with and without the buyer-side relayer fee. Dutch auctions are interpolated
between listing and expiration.`,
		Args: cobra.ExactArgs(1),
		RunE: runPrice,
	}
	c.Flags().Duration("backtrack", 0, "Evaluate this long before --at")
	c.Flags().Bool("round-up", false, "Round fractional prices up")
	c.Flags().Int64("at", 0, "Unix time to evaluate at (default now)")
	return c
}

func runPrice(cmd *cobra.Command, args []string) error {
	backtrack, _ := cmd.Flags().GetDuration("backtrack")
	roundUp, _ := cmd.Flags().GetBool("round-up")
	at, _ := cmd.Flags().GetInt64("at")

	if backtrack < 0 {
		return errors.New("--backtrack must not be negative")
	}

	o, err := readOrderFile(cmd, args[0])
	if err != nil {
		return err
	}

	now := time.Now()
	if at > 0 {
		now = time.Unix(at, 0)
	}

	return writeJSON(cmd, httpserver.PriceResponse{
		Hash:          o.Hash.Hex(),
		CurrentPrice:  pricing.CurrentPrice(&o.UnhashedOrder, now, backtrack, roundUp).String(),
		PriceWithFees: pricing.CurrentPriceWithFees(&o.UnhashedOrder, now, backtrack, roundUp).String(),
		EvaluatedAt:   now.Unix(),
	})
}
