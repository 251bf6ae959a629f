package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// RistrettoCache is a Cache backed by Ristretto. Every entry costs 1.
type RistrettoCache struct {
	store  *ristretto.Cache
	logger *zap.Logger
}

// RistrettoConfig sizes the cache by entry count.
type RistrettoConfig struct {
	MaxEntries  int64
	BufferItems int64
	Logger      *zap.Logger
}

// DefaultRistrettoConfig sizes the cache for a few thousand asset contracts.
func DefaultRistrettoConfig(logger *zap.Logger) *RistrettoConfig {
	return &RistrettoConfig{
		MaxEntries:  10_000,
		BufferItems: 64,
		Logger:      logger,
	}
}

// NewRistrettoCache builds the cache. Ristretto tracks admission frequency for
// ten times as many keys as it stores.
func NewRistrettoCache(cfg *RistrettoConfig) (*RistrettoCache, error) {
	if cfg == nil {
		return nil, errors.New("ristretto config is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("ristretto config: logger is required")
	}
	if cfg.MaxEntries <= 0 {
		return nil, fmt.Errorf("ristretto config: max entries must be positive, got %d", cfg.MaxEntries)
	}

	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxEntries * 10,
		MaxCost:     cfg.MaxEntries,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}

	return &RistrettoCache{store: store, logger: cfg.Logger}, nil
}

func (r *RistrettoCache) Get(key string) (any, bool) {
	defer observe("get", time.Now())

	value, found := r.store.Get(key)
	if !found {
		CacheMissesTotal.Inc()
		return nil, false
	}
	CacheHitsTotal.Inc()
	return value, true
}

// Set stores value for ttl. A write Ristretto refuses to admit is counted and
// reported as false; callers treat it as a cache miss on the next read.
func (r *RistrettoCache) Set(key string, value any, ttl time.Duration) bool {
	defer observe("set", time.Now())

	if !r.store.SetWithTTL(key, value, 1, ttl) {
		CacheSetsDroppedTotal.Inc()
		r.logger.Debug("cache-set-dropped", zap.String("key", key))
		return false
	}
	CacheSetsTotal.Inc()
	return true
}

func (r *RistrettoCache) Delete(key string) {
	defer observe("delete", time.Now())

	r.store.Del(key)
	CacheDeletesTotal.Inc()
	r.logger.Debug("cache-invalidated", zap.String("key", key))
}

func (r *RistrettoCache) Close() {
	r.store.Close()
}

// Wait blocks until buffered writes are visible to Get.
func (r *RistrettoCache) Wait() {
	r.store.Wait()
}

func observe(op string, start time.Time) {
	CacheOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
