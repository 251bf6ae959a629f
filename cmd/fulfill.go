package cmd

import (
	"fmt"

	"github.com/mselser95/nft-orders/pkg/wyvern"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type fulfillOutput struct {
	Buy  *wyvern.WireOrder `json:"buy"`
	Sell *wyvern.WireOrder `json:"sell"`
}

func newFulfillCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "fulfill <order.json|->",
		Short: "Prepare the counter order that fills an order",
		Long: `Builds the matching order that fills the given order on behalf of the
PRIVATE_KEY account, validates the pair against the match rules and prints the
(buy, sell) pair ready for settlement.`,
		Args: cobra.ExactArgs(1),
		RunE: runFulfill,
	}
	c.Flags().String("recipient", "", "Receiver of the assets (default: the account)")
	return c
}

func runFulfill(cmd *cobra.Command, args []string) error {
	recipientFlag, _ := cmd.Flags().GetString("recipient")
	recipient, err := parseAddress("recipient", recipientFlag)
	if err != nil {
		return err
	}

	order, err := readOrderFile(cmd, args[0])
	if err != nil {
		return err
	}

	application, logger, cleanup, err := loadApp()
	if err != nil {
		return err
	}
	defer cleanup()

	account, err := application.Account()
	if err != nil {
		return err
	}

	buy, sell, err := application.Fulfiller().Fulfill(cmd.Context(), order, account, recipient)
	if err != nil {
		return fmt.Errorf("fulfill order: %w", err)
	}

	logger.Info("fulfillment-prepared",
		zap.String("order-hash", order.Hash.Hex()),
		zap.String("buy-hash", buy.Hash.Hex()),
		zap.String("sell-hash", sell.Hash.Hex()))
	return writeJSON(cmd, fulfillOutput{Buy: wyvern.Serialize(buy), Sell: wyvern.Serialize(sell)})
}
