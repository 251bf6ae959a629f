package cmd

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mselser95/nft-orders/internal/orders"
	"github.com/mselser95/nft-orders/pkg/seaport"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/spf13/cobra"
)

type seaportListingOutput struct {
	Components *seaport.OrderComponents `json:"parameters"`
	OrderHash  string                   `json:"order_hash"`
	Signature  string                   `json:"signature,omitempty"`
}

func newSeaportListingCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "seaport-listing",
		Short: "Build and optionally sign a Seaport listing",
		Long: `Builds Seaport order components that list one asset. Prices are in base
units of the payment token; each --fee becomes its own consideration item.
When PRIVATE_KEY is set the listing is signed and the key's address is used as
offerer.`,
		Args: cobra.NoArgs,
		RunE: runSeaportListing,
	}
	c.Flags().String("offerer", "", "Offerer address (ignored when PRIVATE_KEY is set)")
	c.Flags().String("contract", "", "Asset contract address")
	c.Flags().String("token-id", "", "Token ID")
	c.Flags().String("schema", "ERC721", "Asset schema: ERC721 or ERC1155")
	c.Flags().String("quantity", "1", "Quantity for ERC1155 assets")
	c.Flags().String("price", "", "Start price in base units")
	c.Flags().String("end-price", "", "End price in base units (default: fixed price)")
	c.Flags().String("payment-token", "", "ERC-20 payment token (default: native ether)")
	c.Flags().StringArray("fee", nil, "Fee as <recipient>:<basis points>, repeatable")
	c.Flags().Int64("start", 0, "Start time, unix seconds (default now)")
	c.Flags().Duration("duration", 7*24*time.Hour, "Listing duration")
	c.Flags().Int64("chain-id", 1, "Chain ID of the signing domain")
	c.Flags().String("counter", "0", "Offerer's Seaport counter")
	c.Flags().String("salt", "", "Order salt (default random)")
	_ = c.MarkFlagRequired("contract")
	_ = c.MarkFlagRequired("token-id")
	_ = c.MarkFlagRequired("price")
	return c
}

func parseFee(v string) (seaport.Fee, error) {
	addr, bps, ok := strings.Cut(v, ":")
	if !ok {
		return seaport.Fee{}, fmt.Errorf("--fee %q: want <recipient>:<basis points>", v)
	}
	recipient, err := parseAddress("fee", addr)
	if err != nil {
		return seaport.Fee{}, err
	}
	points, err := strconv.ParseInt(bps, 10, 64)
	if err != nil {
		return seaport.Fee{}, fmt.Errorf("--fee %q: %w", v, err)
	}
	return seaport.Fee{Recipient: recipient, BasisPoints: points}, nil
}

func parseUint(name, value string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}
	n, ok := new(big.Int).SetString(value, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("--%s: invalid amount %q", name, value)
	}
	return n, nil
}

func runSeaportListing(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	str := func(name string) string {
		v, _ := flags.GetString(name)
		return v
	}

	params := seaport.ListingParams{
		Asset: types.Asset{TokenID: str("token-id"), SchemaName: str("schema")},
	}

	var err error
	params.Asset.TokenAddress, err = parseAddress("contract", str("contract"))
	if err != nil {
		return err
	}
	params.PaymentToken, err = parseAddress("payment-token", str("payment-token"))
	if err != nil {
		return err
	}
	params.Offerer, err = parseAddress("offerer", str("offerer"))
	if err != nil {
		return err
	}

	for _, field := range []struct {
		name string
		dst  **big.Int
	}{
		{"price", &params.StartPrice},
		{"end-price", &params.EndPrice},
		{"quantity", &params.Quantity},
		{"counter", &params.Counter},
		{"salt", &params.Salt},
	} {
		*field.dst, err = parseUint(field.name, str(field.name))
		if err != nil {
			return err
		}
	}
	if params.Salt == nil {
		params.Salt, err = orders.RandomSalt{}.Salt()
		if err != nil {
			return err
		}
	}

	feeFlags, _ := flags.GetStringArray("fee")
	for _, v := range feeFlags {
		fee, err := parseFee(v)
		if err != nil {
			return err
		}
		params.Fees = append(params.Fees, fee)
	}

	start, _ := flags.GetInt64("start")
	if start == 0 {
		start = time.Now().Unix()
	}
	duration, _ := flags.GetDuration("duration")
	params.StartTime = start
	params.EndTime = start + int64(duration/time.Second)

	keyHex := os.Getenv("PRIVATE_KEY")
	if keyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
		if err != nil {
			return fmt.Errorf("parse PRIVATE_KEY: %w", err)
		}
		params.Offerer = crypto.PubkeyToAddress(key.PublicKey)

		return buildSeaportListing(cmd, params, func(c *seaport.OrderComponents, d seaport.Domain) ([]byte, error) {
			return seaport.Sign(c, d, key)
		})
	}

	if params.Offerer == types.NullAddress {
		return errors.New("--offerer is required when PRIVATE_KEY is not set")
	}
	return buildSeaportListing(cmd, params, nil)
}

type componentSigner func(*seaport.OrderComponents, seaport.Domain) ([]byte, error)

func buildSeaportListing(cmd *cobra.Command, params seaport.ListingParams, sign componentSigner) error {
	components, err := seaport.BuildListing(params)
	if err != nil {
		return err
	}

	hash, err := seaport.OrderHash(components)
	if err != nil {
		return err
	}
	out := seaportListingOutput{Components: components, OrderHash: hash.Hex()}

	if sign != nil {
		chainID, _ := cmd.Flags().GetInt64("chain-id")
		sig, err := sign(components, seaport.DefaultDomain(chainID))
		if err != nil {
			return err
		}
		out.Signature = hexutil.Encode(sig)
	}
	return writeJSON(cmd, out)
}
