package cmd

import (
	"fmt"

	"github.com/mselser95/nft-orders/internal/app"
	"github.com/mselser95/nft-orders/pkg/config"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the order service",
		Long: `Starts the HTTP service, which will:
1. Expose order hashing, pricing and match validation under /api/orders
2. Serve locally recorded orders when storage is configured
3. Follow the order event stream for STREAM_COLLECTIONS, if set
4. Track transaction confirmations and wallet balances when RPC_URL is set`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(*cobra.Command, []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
