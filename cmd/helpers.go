package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/mselser95/nft-orders/internal/app"
	"github.com/mselser95/nft-orders/pkg/config"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/mselser95/nft-orders/pkg/wyvern"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// readOrderFile decodes a wire-format order from path, or stdin when path is "-".
func readOrderFile(cmd *cobra.Command, path string) (*types.Order, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read order %s: %w", path, err)
	}

	o, err := wyvern.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode order %s: %w", path, err)
	}
	return o, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

func parseAddress(name, value string) (common.Address, error) {
	if value == "" {
		return types.NullAddress, nil
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("--%s: invalid address %q", name, value)
	}
	return common.HexToAddress(value), nil
}

func parseDecimal(name, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

// optionalDecimal returns nil for an empty flag value.
func optionalDecimal(name, value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	d, err := parseDecimal(name, value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// loadApp builds the application from the environment. The caller must call
// the returned cleanup.
func loadApp() (*app.App, *zap.Logger, func(), error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create logger: %w", err)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, fmt.Errorf("create app: %w", err)
	}

	cleanup := func() {
		application.Close()
		_ = logger.Sync()
	}
	return application, logger, cleanup, nil
}
