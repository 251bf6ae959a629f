package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mselser95/nft-orders/pkg/config"
	"github.com/mselser95/nft-orders/pkg/stream"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "watch [collection...]",
		Short: "Print order events for collections",
		Long: `Subscribes to the marketplace order stream at MARKETPLACE_WS_URL and prints
each event as JSON until interrupted. Without arguments the collections
in STREAM_COLLECTIONS are watched.`,
		RunE: runWatch,
	}
	c.Flags().StringSlice("event-type", nil, "Only print these event types")
	return c
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.MarketplaceWSURL == "" {
		return errors.New("MARKETPLACE_WS_URL is required")
	}

	collections := args
	if len(collections) == 0 {
		collections = cfg.StreamCollections
	}
	if len(collections) == 0 {
		return errors.New("no collections to watch")
	}

	only := map[stream.EventType]bool{}
	eventTypes, _ := cmd.Flags().GetStringSlice("event-type")
	for _, t := range eventTypes {
		only[stream.EventType(t)] = true
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	manager := stream.New(stream.Config{
		URL:                   cfg.MarketplaceWSURL,
		APIKey:                cfg.MarketplaceAPIKey,
		DialTimeout:           cfg.StreamDialTimeout,
		PingInterval:          cfg.StreamPingInterval,
		ReconnectInitialDelay: cfg.StreamReconnectInitDelay,
		ReconnectMaxDelay:     cfg.StreamReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.StreamReconnectBackoffMult,
		EventBufferSize:       cfg.StreamBufferSize,
		Logger:                logger,
	})

	err = manager.Start()
	if err != nil {
		return fmt.Errorf("connect order stream: %w", err)
	}
	defer func() {
		_ = manager.Close()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = manager.Subscribe(ctx, collections)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	logger.Info("watching-collections", zap.Strings("collections", collections))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-manager.Events():
			if !ok {
				return nil
			}
			if len(only) > 0 && !only[ev.Type] {
				continue
			}
			err = writeJSON(cmd, ev)
			if err != nil {
				return err
			}
		}
	}
}
