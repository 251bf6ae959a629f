package cmd

import (
	"errors"
	"fmt"

	"github.com/mselser95/nft-orders/internal/matching"
	"github.com/mselser95/nft-orders/internal/orders"
	"github.com/mselser95/nft-orders/pkg/httpserver"
	"github.com/spf13/cobra"
)

// errNotMatchable makes the command exit non-zero after printing the reason.
var errNotMatchable = errors.New("orders cannot be matched")

func newValidateMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-match <order.json> <order.json>",
		Short: "Check whether two orders can settle against each other",
		Long: `Runs the exchange match rules against a pair of orders. Either argument
may be the buy side; sides are assigned from the orders themselves.`,
		Args: cobra.ExactArgs(2),
		RunE: runValidateMatch,
	}
}

func runValidateMatch(cmd *cobra.Command, args []string) error {
	first, err := readOrderFile(cmd, args[0])
	if err != nil {
		return err
	}
	second, err := readOrderFile(cmd, args[1])
	if err != nil {
		return err
	}
	if first.Side == second.Side {
		return fmt.Errorf("both orders are %s orders", first.Side)
	}

	buy, sell := orders.AssignSides(first, second)
	err = matching.New(matching.Config{}).Validate(cmd.Context(), buy, sell)

	var mErr *matching.MatchError
	switch {
	case err == nil:
		return writeJSON(cmd, httpserver.MatchResponse{Matchable: true})
	case errors.As(err, &mErr):
		werr := writeJSON(cmd, httpserver.MatchResponse{Rule: mErr.Rule, Reason: mErr.Error()})
		if werr != nil {
			return werr
		}
		return errNotMatchable
	default:
		return fmt.Errorf("validate match: %w", err)
	}
}
