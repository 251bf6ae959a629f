package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/mselser95/nft-orders/internal/storage"
	"github.com/mselser95/nft-orders/pkg/stream"
	"github.com/mselser95/nft-orders/pkg/types"
	"go.uber.org/zap"
)

// Ingester applies order stream events to the local store. Only events that
// close an order change stored state; listings and offers are counted.
type Ingester struct {
	store  storage.Storage
	logger *zap.Logger
}

// NewIngester creates an ingester writing to store.
func NewIngester(store storage.Storage, logger *zap.Logger) *Ingester {
	return &Ingester{store: store, logger: logger}
}

// Run consumes events until ctx is done or the channel closes.
func (i *Ingester) Run(ctx context.Context, events <-chan stream.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			err := i.Handle(ctx, ev)
			if err != nil {
				i.logger.Warn("stream-event-failed",
					zap.String("event-type", string(ev.Type)),
					zap.String("order-hash", ev.OrderHash),
					zap.Error(err))
			}
		}
	}
}

// Handle applies a single event.
func (i *Ingester) Handle(ctx context.Context, ev stream.Event) error {
	if !ev.Closes() {
		EventsAppliedTotal.WithLabelValues(string(ev.Type), "observed").Inc()
		return nil
	}

	hash, err := ev.Hash()
	if err != nil {
		EventsAppliedTotal.WithLabelValues(string(ev.Type), "invalid").Inc()
		return err
	}

	if ev.Type == stream.EventItemSold {
		err = i.store.MarkFinalized(ctx, hash)
	} else {
		err = i.store.MarkCancelled(ctx, hash)
	}

	switch {
	case errors.Is(err, types.ErrNotFound):
		EventsAppliedTotal.WithLabelValues(string(ev.Type), "unknown-order").Inc()
		return nil
	case err != nil:
		EventsAppliedTotal.WithLabelValues(string(ev.Type), "error").Inc()
		return fmt.Errorf("apply %s: %w", ev.Type, err)
	}

	EventsAppliedTotal.WithLabelValues(string(ev.Type), "applied").Inc()
	i.logger.Info("stored-order-closed",
		zap.String("order-hash", hash.Hex()),
		zap.String("event-type", string(ev.Type)),
		zap.String("collection", ev.Collection))
	return nil
}
