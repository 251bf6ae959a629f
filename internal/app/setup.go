package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/mselser95/nft-orders/internal/api"
	"github.com/mselser95/nft-orders/internal/confirm"
	"github.com/mselser95/nft-orders/internal/matching"
	"github.com/mselser95/nft-orders/internal/storage"
	"github.com/mselser95/nft-orders/pkg/cache"
	"github.com/mselser95/nft-orders/pkg/config"
	"github.com/mselser95/nft-orders/pkg/healthprobe"
	"github.com/mselser95/nft-orders/pkg/httpserver"
	"github.com/mselser95/nft-orders/pkg/stream"
	"github.com/mselser95/nft-orders/pkg/wallet"
	"go.uber.org/zap"
)

// New creates a new application instance. Network connections to Postgres and
// the RPC endpoint are opened here; the stream socket is opened by Run.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthprobe.New(),
		validator:     matching.New(matching.Config{}),
		ctx:           ctx,
		cancel:        cancel,
	}

	err := a.setup(ctx)
	if err != nil {
		a.closeResources()
		cancel()
		return nil, err
	}
	return a, nil
}

func (a *App) setup(ctx context.Context) error {
	var err error

	a.cache, err = cache.NewRistrettoCache(cache.DefaultRistrettoConfig(a.logger))
	if err != nil {
		return fmt.Errorf("setup cache: %w", err)
	}

	a.apiClient, err = setupAPIClient(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("setup api client: %w", err)
	}
	a.source = api.NewCachedSource(a.apiClient, a.cache, a.cfg.FeeCacheTTL)

	a.store, err = setupStorage(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("setup storage: %w", err)
	}
	if p, ok := a.store.(*storage.PostgresStorage); ok {
		a.healthChecker.AddCheck("postgres", p.Ping)
	}

	if a.cfg.RPCURL != "" {
		a.eth, err = ethclient.DialContext(ctx, a.cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("dial RPC: %w", err)
		}
		a.tracker = confirm.NewTracker(&confirm.Config{
			Fetcher:      a.eth,
			PollInterval: a.cfg.ConfirmPollInterval,
			Logger:       a.logger,
		})
		a.wallet, err = wallet.NewClient(a.eth, a.logger)
		if err != nil {
			return fmt.Errorf("create wallet client: %w", err)
		}
	}

	err = a.setupOrders()
	if err != nil {
		return fmt.Errorf("setup orders: %w", err)
	}

	if len(a.cfg.StreamCollections) > 0 {
		a.stream = setupStream(a.cfg, a.logger)
		a.ingester = NewIngester(a.store, a.logger)
		a.healthChecker.AddCheck("stream", func(context.Context) error {
			if !a.stream.Connected() {
				return errors.New("disconnected")
			}
			return nil
		})
	}

	a.httpServer = httpserver.New(&httpserver.Config{
		Port:          a.cfg.HTTPPort,
		Logger:        a.logger,
		HealthChecker: a.healthChecker,
		Validator:     a.validator,
		Store:         a.store,
	})
	return nil
}

func setupAPIClient(cfg *config.Config, logger *zap.Logger) (*api.Client, error) {
	retries := cfg.APIMaxRetries
	if retries == 0 {
		// The client treats zero as "use the default"; negative disables retries.
		retries = -1
	}
	return api.NewClient(&api.Config{
		BaseURL:    cfg.MarketplaceAPIURL,
		APIKey:     cfg.MarketplaceAPIKey,
		MaxRetries: retries,
		RetryDelay: cfg.APIRetryDelay,
		Timeout:    cfg.APITimeout,
		Logger:     logger,
	})
}

func setupStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.StorageMode {
	case config.StoragePostgres:
		pg, err := storage.NewPostgresStorage(ctx, &storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pg, nil
	case config.StorageConsole:
		return storage.NewConsoleStorage(logger), nil
	default:
		return storage.NewMemoryStorage(logger), nil
	}
}

func setupStream(cfg *config.Config, logger *zap.Logger) *stream.Manager {
	return stream.New(stream.Config{
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
}
