package cmd

import (
	"errors"
	"fmt"

	"github.com/mselser95/nft-orders/internal/api"
	"github.com/mselser95/nft-orders/internal/storage"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/mselser95/nft-orders/pkg/wyvern"
	"github.com/spf13/cobra"
)

type ordersOutput struct {
	Count  int                 `json:"count"`
	Orders []*wyvern.WireOrder `json:"orders"`
}

func newOrdersCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "orders",
		Short: "Query the order book",
		Long: `Lists orders from the marketplace order book, or from local storage with
--local. Local queries only see orders this service posted or ingested.`,
		Args: cobra.NoArgs,
		RunE: runOrders,
	}
	c.Flags().String("contract", "", "Asset contract address")
	c.Flags().String("token-id", "", "Token ID")
	c.Flags().String("maker", "", "Maker address")
	c.Flags().String("side", "", "buy or sell")
	c.Flags().Int("limit", api.MaxPageSize, "Page size")
	c.Flags().Int("offset", 0, "Page offset (marketplace only)")
	c.Flags().Bool("local", false, "Query local storage instead of the marketplace")
	c.Flags().Bool("include-closed", false, "Include cancelled and filled orders (local only)")
	return c
}

func runOrders(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	contractFlag, _ := flags.GetString("contract")
	tokenID, _ := flags.GetString("token-id")
	makerFlag, _ := flags.GetString("maker")
	sideFlag, _ := flags.GetString("side")
	limit, _ := flags.GetInt("limit")
	offset, _ := flags.GetInt("offset")
	local, _ := flags.GetBool("local")
	includeClosed, _ := flags.GetBool("include-closed")

	if limit < 0 || offset < 0 {
		return errors.New("--limit and --offset must not be negative")
	}

	contract, err := parseAddress("contract", contractFlag)
	if err != nil {
		return err
	}
	maker, err := parseAddress("maker", makerFlag)
	if err != nil {
		return err
	}
	var side *types.Side
	if sideFlag != "" {
		s, err := parseSide(sideFlag)
		if err != nil {
			return err
		}
		side = &s
	}

	application, _, cleanup, err := loadApp()
	if err != nil {
		return err
	}
	defer cleanup()

	var (
		found []*types.Order
		count int
	)
	if local {
		found, err = application.Store().ListOrders(cmd.Context(), storage.Filter{
			Maker:         maker,
			Target:        contract,
			Side:          side,
			IncludeClosed: includeClosed,
			Limit:         limit,
		})
		count = len(found)
	} else {
		found, count, err = application.API().GetOrders(cmd.Context(), api.OrderQuery{
			Maker:                maker,
			Side:                 side,
			AssetContractAddress: contract,
			TokenID:              tokenID,
			Limit:                limit,
			Offset:               offset,
		})
	}
	if err != nil {
		return fmt.Errorf("query orders: %w", err)
	}

	out := ordersOutput{Count: count, Orders: make([]*wyvern.WireOrder, 0, len(found))}
	for _, o := range found {
		out.Orders = append(out.Orders, wyvern.Serialize(o))
	}
	return writeJSON(cmd, out)
}
