package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/nft-orders/internal/orders"
	"github.com/mselser95/nft-orders/internal/storage"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/mselser95/nft-orders/pkg/wallet"
	"github.com/mselser95/nft-orders/pkg/wyvern"
	"go.uber.org/zap"
)

// ErrNoSigner is returned when an operation needs PRIVATE_KEY and none is set.
var ErrNoSigner = errors.New("no signing key configured")

// recordingPoster saves every accepted order to the local store.
type recordingPoster struct {
	poster orders.OrderPoster
	store  storage.Storage
	logger *zap.Logger
}

func (p *recordingPoster) PostOrder(ctx context.Context, order *types.Order) (*types.Order, error) {
	posted, err := p.poster.PostOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	// The marketplace has the order; a local write failure is only logged.
	err = p.store.SaveOrder(ctx, posted)
	if err != nil {
		p.logger.Warn("posted-order-not-stored",
			zap.String("hash", posted.Hash.Hex()),
			zap.Error(err))
	}
	return posted, nil
}

func (a *App) setupOrders() error {
	var err error

	a.contracts, err = wyvern.ContractsFor(a.cfg.Network)
	if err != nil {
		return err
	}

	encoder, err := wyvern.NewSchemaEncoder(a.contracts.Atomicizer)
	if err != nil {
		return fmt.Errorf("create calldata encoder: %w", err)
	}

	a.builder, err = orders.NewBuilder(&orders.BuilderConfig{
		Network:   a.cfg.Network,
		Contracts: a.contracts,
		FeeSource: a.source,
		Tokens:    a.source,
		Encoder:   encoder,
	})
	if err != nil {
		return fmt.Errorf("create order builder: %w", err)
	}

	a.fulfiller, err = orders.NewFulfiller(&orders.FulfillerConfig{
		Builder:   a.builder,
		Validator: a.validator,
		Logger:    a.logger,
	})
	if err != nil {
		return fmt.Errorf("create fulfiller: %w", err)
	}

	if a.cfg.PrivateKey == "" {
		return nil
	}

	a.signer, err = wyvern.NewKeySigner(a.cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("load signing key: %w", err)
	}

	var funds orders.FundsChecker
	if a.wallet != nil {
		funds = a.wallet
	}

	a.service, err = orders.NewService(&orders.ServiceConfig{
		Builder: a.builder,
		Signer:  a.signer,
		Poster: &recordingPoster{
			poster: a.apiClient,
			store:  a.store,
			logger: a.logger,
		},
		Funds:   funds,
		Spender: a.contracts.TokenTransferProxy,
		Logger:  a.logger,
	})
	if err != nil {
		return fmt.Errorf("create order service: %w", err)
	}

	if a.wallet != nil {
		a.walletTracker, err = wallet.New(&wallet.Config{
			Fetcher:       a.wallet,
			Address:       a.signer.Address(),
			PaymentToken:  a.contracts.WrappedNative,
			Spender:       a.contracts.TokenTransferProxy,
			TokenDecimals: 18,
			PollInterval:  a.cfg.WalletPollInterval,
			Logger:        a.logger,
		})
		if err != nil {
			return fmt.Errorf("create wallet tracker: %w", err)
		}
	}
	return nil
}

// Builder returns the order builder.
func (a *App) Builder() *orders.Builder {
	return a.builder
}

// Fulfiller returns the fulfiller that prepares counter orders.
func (a *App) Fulfiller() *orders.Fulfiller {
	return a.fulfiller
}

// OrderService returns the signing order service, or ErrNoSigner.
func (a *App) OrderService() (*orders.Service, error) {
	if a.service == nil {
		return nil, ErrNoSigner
	}
	return a.service, nil
}

// Account returns the signer's address, or ErrNoSigner.
func (a *App) Account() (common.Address, error) {
	if a.signer == nil {
		return common.Address{}, ErrNoSigner
	}
	return a.signer.Address(), nil
}
