// Package storage keeps a local copy of orders this client has built, posted
// or fetched, keyed by order hash.
package storage

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/nft-orders/pkg/types"
)

// Storage is the interface for persisting orders.
type Storage interface {
	// SaveOrder inserts or replaces the order with the same hash.
	SaveOrder(ctx context.Context, order *types.Order) error

	// GetOrder returns types.ErrNotFound for unknown hashes.
	GetOrder(ctx context.Context, hash common.Hash) (*types.Order, error)

	ListOrders(ctx context.Context, filter Filter) ([]*types.Order, error)

	MarkCancelled(ctx context.Context, hash common.Hash) error

	MarkFinalized(ctx context.Context, hash common.Hash) error

	Close() error
}

// Filter narrows ListOrders. Zero values match everything.
type Filter struct {
	Maker         common.Address
	Target        common.Address
	Side          *types.Side
	IncludeClosed bool // include cancelled and finalized orders
	Limit         int
}

func (f Filter) matches(o *types.Order) bool {
	if f.Maker != types.NullAddress && o.Maker != f.Maker {
		return false
	}
	if f.Target != types.NullAddress && o.Target != f.Target {
		return false
	}
	if f.Side != nil && o.Side != *f.Side {
		return false
	}
	if !f.IncludeClosed && (o.Cancelled || o.Finalized) {
		return false
	}
	return true
}
