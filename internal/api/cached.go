package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/nft-orders/pkg/cache"
	"github.com/mselser95/nft-orders/pkg/types"
)

// DefaultFeeConfigTTL is how long asset-contract fees and token metadata stay cached.
const DefaultFeeConfigTTL = 10 * time.Minute

// Source is the subset of the client that changes rarely enough to cache.
type Source interface {
	GetAssetContract(ctx context.Context, address common.Address) (*types.AssetContract, error)
	PaymentToken(ctx context.Context, address common.Address) (*types.PaymentToken, error)
	WrappedNativeToken(network string) (common.Address, error)
}

// CachedSource wraps a Source with a TTL cache for fee configs and payment tokens.
type CachedSource struct {
	source Source
	cache  cache.Cache
	ttl    time.Duration
}

// NewCachedSource creates a cached source. A nil cache disables caching.
func NewCachedSource(source Source, c cache.Cache, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultFeeConfigTTL
	}
	return &CachedSource{source: source, cache: c, ttl: ttl}
}

func cacheKey(kind string, address common.Address) string {
	return fmt.Sprintf("%s:%s", kind, strings.ToLower(address.Hex()))
}

// GetAssetContract returns the cached fee configuration, fetching on miss.
func (c *CachedSource) GetAssetContract(ctx context.Context, address common.Address) (*types.AssetContract, error) {
	key := cacheKey("asset-contract", address)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			if contract, ok := cached.(*types.AssetContract); ok {
				FeeConfigCacheHitsTotal.WithLabelValues("asset-contract").Inc()
				return contract, nil
			}
		}
		FeeConfigCacheMissesTotal.WithLabelValues("asset-contract").Inc()
	}

	contract, err := c.source.GetAssetContract(ctx, address)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(key, contract, c.ttl)
	}
	return contract, nil
}

// PaymentToken returns cached token metadata, fetching on miss.
func (c *CachedSource) PaymentToken(ctx context.Context, address common.Address) (*types.PaymentToken, error) {
	key := cacheKey("payment-token", address)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			if token, ok := cached.(*types.PaymentToken); ok {
				FeeConfigCacheHitsTotal.WithLabelValues("payment-token").Inc()
				return token, nil
			}
		}
		FeeConfigCacheMissesTotal.WithLabelValues("payment-token").Inc()
	}

	token, err := c.source.PaymentToken(ctx, address)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(key, token, c.ttl)
	}
	return token, nil
}

// WrappedNativeToken is static per network and never cached.
func (c *CachedSource) WrappedNativeToken(network string) (common.Address, error) {
	return c.source.WrappedNativeToken(network)
}

// Invalidate drops a contract's cached fee configuration.
func (c *CachedSource) Invalidate(address common.Address) {
	if c.cache != nil {
		c.cache.Delete(cacheKey("asset-contract", address))
	}
}
