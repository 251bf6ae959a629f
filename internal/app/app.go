// Package app wires the order service components into a runnable process.
package app

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/mselser95/nft-orders/internal/api"
	"github.com/mselser95/nft-orders/internal/confirm"
	"github.com/mselser95/nft-orders/internal/matching"
	"github.com/mselser95/nft-orders/internal/orders"
	"github.com/mselser95/nft-orders/internal/storage"
	"github.com/mselser95/nft-orders/pkg/cache"
	"github.com/mselser95/nft-orders/pkg/config"
	"github.com/mselser95/nft-orders/pkg/healthprobe"
	"github.com/mselser95/nft-orders/pkg/httpserver"
	"github.com/mselser95/nft-orders/pkg/stream"
	"github.com/mselser95/nft-orders/pkg/wallet"
	"github.com/mselser95/nft-orders/pkg/wyvern"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	cache         *cache.RistrettoCache
	apiClient     *api.Client
	source        *api.CachedSource
	validator     *matching.Validator
	store         storage.Storage
	contracts     wyvern.Contracts
	builder       *orders.Builder
	fulfiller     *orders.Fulfiller

	// Optional, nil when not configured.
	eth           *ethclient.Client
	wallet        *wallet.Client
	tracker       *confirm.Tracker
	signer        *wyvern.KeySigner
	service       *orders.Service
	walletTracker *wallet.Tracker
	stream        *stream.Manager
	ingester      *Ingester

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Store returns the local order store.
func (a *App) Store() storage.Storage {
	return a.store
}

// API returns the marketplace REST client.
func (a *App) API() *api.Client {
	return a.apiClient
}

// Source returns the cached fee-config and token source.
func (a *App) Source() *api.CachedSource {
	return a.source
}

// Tracker returns the confirmation tracker, or nil without an RPC endpoint.
func (a *App) Tracker() *confirm.Tracker {
	return a.tracker
}
