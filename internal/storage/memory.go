package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/nft-orders/pkg/types"
	"go.uber.org/zap"
)

// MemoryStorage keeps orders in process memory. Lists return orders in insertion order.
type MemoryStorage struct {
	mu     sync.RWMutex
	orders map[common.Hash]*types.Order
	order  []common.Hash
	logger *zap.Logger
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage(logger *zap.Logger) *MemoryStorage {
	return &MemoryStorage{
		orders: make(map[common.Hash]*types.Order),
		logger: logger,
	}
}

func copyOrder(o *types.Order) *types.Order {
	c := *o
	c.UnhashedOrder = *o.UnhashedOrder.Clone()
	if o.Signature != nil {
		sig := *o.Signature
		c.Signature = &sig
	}
	return &c
}

// SaveOrder stores a copy of order.
func (m *MemoryStorage) SaveOrder(_ context.Context, order *types.Order) error {
	if order.Hash == (common.Hash{}) {
		return fmt.Errorf("save order: hash: %w", types.ErrMissingField)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orders[order.Hash]; !exists {
		m.order = append(m.order, order.Hash)
	}
	m.orders[order.Hash] = copyOrder(order)

	m.logger.Debug("order-stored",
		zap.String("hash", order.Hash.Hex()),
		zap.String("side", order.Side.String()))
	return nil
}

// GetOrder returns a copy of the stored order.
func (m *MemoryStorage) GetOrder(_ context.Context, hash common.Hash) (*types.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[hash]
	if !ok {
		return nil, fmt.Errorf("get order %s: %w", hash.Hex(), types.ErrNotFound)
	}
	return copyOrder(o), nil
}

// ListOrders returns copies of the orders matching filter.
func (m *MemoryStorage) ListOrders(_ context.Context, filter Filter) ([]*types.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.Order
	for _, hash := range m.order {
		o := m.orders[hash]
		if !filter.matches(o) {
			continue
		}
		out = append(out, copyOrder(o))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// MarkCancelled flags a stored order as cancelled.
func (m *MemoryStorage) MarkCancelled(_ context.Context, hash common.Hash) error {
	return m.update(hash, func(o *types.Order) { o.Cancelled = true })
}

// MarkFinalized flags a stored order as filled.
func (m *MemoryStorage) MarkFinalized(_ context.Context, hash common.Hash) error {
	return m.update(hash, func(o *types.Order) { o.Finalized = true })
}

func (m *MemoryStorage) update(hash common.Hash, fn func(o *types.Order)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[hash]
	if !ok {
		return fmt.Errorf("update order %s: %w", hash.Hex(), types.ErrNotFound)
	}
	fn(o)
	return nil
}

// Close is a no-op.
func (m *MemoryStorage) Close() error {
	m.logger.Info("closing-memory-storage")
	return nil
}
