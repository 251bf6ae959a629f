package orders

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/mselser95/nft-orders/pkg/wyvern"
	"go.uber.org/zap"
)

// OrderPoster submits signed orders to the marketplace order book.
type OrderPoster interface {
	PostOrder(ctx context.Context, order *types.Order) (*types.Order, error)
}

// FundsChecker reads payment-token balances and allowances.
type FundsChecker interface {
	TokenBalance(ctx context.Context, owner, token common.Address) (*big.Int, error)
	TokenAllowance(ctx context.Context, owner, token, spender common.Address) (*big.Int, error)
}

// ServiceConfig holds service collaborators. Funds is optional.
type ServiceConfig struct {
	Builder *Builder
	Signer  wyvern.Signer
	Poster  OrderPoster
	Funds   FundsChecker
	Spender common.Address // token transfer proxy checked for offer allowances
	Logger  *zap.Logger
}

// Service builds, hashes, signs and posts orders.
type Service struct {
	builder *Builder
	signer  wyvern.Signer
	poster  OrderPoster
	funds   FundsChecker
	spender common.Address
	logger  *zap.Logger
}

// NewService creates an order service.
func NewService(cfg *ServiceConfig) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Builder == nil {
		return nil, fmt.Errorf("builder cannot be nil")
	}
	if cfg.Signer == nil {
		return nil, fmt.Errorf("signer cannot be nil")
	}
	if cfg.Poster == nil {
		return nil, fmt.Errorf("poster cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Service{
		builder: cfg.Builder,
		signer:  cfg.Signer,
		poster:  cfg.Poster,
		funds:   cfg.Funds,
		spender: cfg.Spender,
		logger:  cfg.Logger,
	}, nil
}

// CreateSellOrder lists an asset for the signer's account.
func (s *Service) CreateSellOrder(ctx context.Context, in SellIntent) (*types.Order, error) {
	in.Account = s.signer.Address()
	return s.create(ctx, func() (*types.UnhashedOrder, error) {
		return s.builder.BuildSellOrder(ctx, in)
	})
}

// CreateBuyOrder makes an offer on an asset for the signer's account.
func (s *Service) CreateBuyOrder(ctx context.Context, in BuyIntent) (*types.Order, error) {
	in.Account = s.signer.Address()
	return s.create(ctx, func() (*types.UnhashedOrder, error) {
		return s.builder.BuildBuyOrder(ctx, in)
	})
}

// CreateBundleSellOrder lists a bundle for the signer's account.
func (s *Service) CreateBundleSellOrder(ctx context.Context, in BundleSellIntent) (*types.Order, error) {
	in.Account = s.signer.Address()
	return s.create(ctx, func() (*types.UnhashedOrder, error) {
		return s.builder.BuildBundleSellOrder(ctx, in)
	})
}

// CreateBundleBuyOrder makes an offer on a bundle for the signer's account.
func (s *Service) CreateBundleBuyOrder(ctx context.Context, in BundleBuyIntent) (*types.Order, error) {
	in.Account = s.signer.Address()
	return s.create(ctx, func() (*types.UnhashedOrder, error) {
		return s.builder.BuildBundleBuyOrder(ctx, in)
	})
}

func (s *Service) create(ctx context.Context, build func() (*types.UnhashedOrder, error)) (*types.Order, error) {
	start := time.Now()
	defer func() {
		OrderCreateDuration.Observe(time.Since(start).Seconds())
	}()

	unhashed, err := build()
	if err != nil {
		OrderErrorsTotal.WithLabelValues("build").Inc()
		return nil, fmt.Errorf("build order: %w", err)
	}
	OrdersBuiltTotal.WithLabelValues(unhashed.Side.String()).Inc()

	if unhashed.Side == types.SideBuy {
		err = s.checkFunds(ctx, unhashed)
		if err != nil {
			OrderErrorsTotal.WithLabelValues("funds").Inc()
			return nil, err
		}
	}

	order := wyvern.Hashed(unhashed)

	s.logger.Debug("order-built",
		zap.String("hash", order.Hash.Hex()),
		zap.String("side", order.Side.String()),
		zap.String("sale-kind", order.SaleKind.String()),
		zap.String("base-price", order.BasePrice.String()))

	order.Signature, err = s.signer.SignOrderHash(ctx, order.Hash)
	if err != nil {
		OrderErrorsTotal.WithLabelValues("sign").Inc()
		return nil, fmt.Errorf("sign order: %w", err)
	}
	if !wyvern.VerifySignature(order) {
		OrderErrorsTotal.WithLabelValues("sign").Inc()
		return nil, fmt.Errorf("sign order: signature does not recover to maker %s", order.Maker.Hex())
	}

	posted, err := s.poster.PostOrder(ctx, order)
	if err != nil {
		OrderErrorsTotal.WithLabelValues("post").Inc()
		return nil, fmt.Errorf("post order: %w", err)
	}
	OrdersPostedTotal.WithLabelValues(order.Side.String()).Inc()

	s.logger.Info("order-posted",
		zap.String("hash", posted.Hash.Hex()),
		zap.String("side", posted.Side.String()),
		zap.String("maker", posted.Maker.Hex()),
		zap.Duration("duration", time.Since(start)))

	return posted, nil
}

// checkFunds confirms an offer maker can pay the base price.
func (s *Service) checkFunds(ctx context.Context, o *types.UnhashedOrder) error {
	if s.funds == nil {
		return nil
	}

	balance, err := s.funds.TokenBalance(ctx, o.Maker, o.PaymentToken)
	if err != nil {
		return fmt.Errorf("check balance: %w", err)
	}
	if balance.Cmp(o.BasePrice) < 0 {
		return types.NewValidationError("basePrice", "Insufficient balance. You may need to wrap Ether.")
	}

	allowance, err := s.funds.TokenAllowance(ctx, o.Maker, o.PaymentToken, s.spender)
	if err != nil {
		return fmt.Errorf("check allowance: %w", err)
	}
	if allowance.Cmp(o.BasePrice) < 0 {
		return types.NewValidationError("paymentToken",
			"Insufficient allowance: approve %s to the token transfer proxy before making offers.", o.PaymentToken.Hex())
	}

	return nil
}
