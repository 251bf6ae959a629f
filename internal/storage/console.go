package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mselser95/nft-orders/internal/pricing"
	"github.com/mselser95/nft-orders/pkg/types"
	"go.uber.org/zap"
)

// ConsoleStorage is a MemoryStorage that also pretty-prints every saved order.
type ConsoleStorage struct {
	*MemoryStorage
	out io.Writer
}

// NewConsoleStorage creates a console storage writing to stdout.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		MemoryStorage: NewMemoryStorage(logger),
		out:           os.Stdout,
	}
}

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// SaveOrder stores the order and prints a summary.
func (c *ConsoleStorage) SaveOrder(ctx context.Context, order *types.Order) error {
	err := c.MemoryStorage.SaveOrder(ctx, order)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintln(&b, "\n"+rule)
	fmt.Fprintf(&b, "ORDER %s\n", strings.ToUpper(order.Side.String()))
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Hash:      %s\n", order.Hash.Hex())
	fmt.Fprintf(&b, "Maker:     %s\n", order.Maker.Hex())
	if order.IsPrivate() {
		fmt.Fprintf(&b, "Taker:     %s (private)\n", order.Taker.Hex())
	}
	fmt.Fprintf(&b, "Target:    %s\n", order.Target.Hex())
	if a := order.Metadata.Asset; a != nil {
		fmt.Fprintf(&b, "Asset:     %s #%s\n", a.TokenAddress.Hex(), a.TokenID)
	}
	if bundle := order.Metadata.Bundle; bundle != nil {
		fmt.Fprintf(&b, "Bundle:    %q (%d assets)\n", bundle.Name, len(bundle.Assets))
	}
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Sale kind: %s\n", order.SaleKind)
	fmt.Fprintf(&b, "Price:     %s (base units) via %s\n", order.BasePrice, order.PaymentToken.Hex())
	if order.SaleKind == types.SaleKindDutchAuction {
		fmt.Fprintf(&b, "Decline:   %s over [%s, %s]\n", order.Extra, order.ListingTime, order.ExpirationTime)
	}
	fmt.Fprintf(&b, "Fees:      maker %s bps / taker %s bps / referrer %s bps\n",
		order.MakerRelayerFee, order.TakerRelayerFee, order.MakerReferrerFee)
	if order.WaitingForBestCounterOrder {
		fmt.Fprintf(&b, "Auction:   bidding closes at %s, matchable for %ds\n",
			order.ListingTime, pricing.OrderMatchingLatencySeconds)
	}
	fmt.Fprintln(&b, rule)

	_, err = io.WriteString(c.out, b.String())
	return err
}
