// Package confirm waits for transaction receipts on behalf of many callers.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultPollInterval is used when Config.PollInterval is zero.
const DefaultPollInterval = 3 * time.Second

// ErrReverted is set on a Result whose receipt reports failure.
var ErrReverted = errors.New("transaction reverted")

// ReceiptFetcher is satisfied by *ethclient.Client. A pending transaction
// returns ethereum.NotFound.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// Result is delivered to every waiter on a transaction once it is mined.
type Result struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Status      uint64
	Err         error
}

// Config holds tracker configuration.
type Config struct {
	Fetcher      ReceiptFetcher
	PollInterval time.Duration
	Logger       *zap.Logger
}

// Tracker resolves waiters keyed by transaction hash. Each waiter has its own
// id so a cancelled caller can leave without disturbing the others.
type Tracker struct {
	fetcher  ReceiptFetcher
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	waiters map[common.Hash]map[uuid.UUID]chan Result
}

// NewTracker creates a tracker. Call Run to start polling.
func NewTracker(cfg *Config) *Tracker {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		fetcher:  cfg.Fetcher,
		interval: interval,
		logger:   logger,
		waiters:  make(map[common.Hash]map[uuid.UUID]chan Result),
	}
}

func (t *Tracker) register(txHash common.Hash) (uuid.UUID, chan Result) {
	id := uuid.New()
	ch := make(chan Result, 1)

	t.mu.Lock()
	set, ok := t.waiters[txHash]
	if !ok {
		set = make(map[uuid.UUID]chan Result)
		t.waiters[txHash] = set
	}
	set[id] = ch
	t.mu.Unlock()

	PendingWaiters.Inc()
	return id, ch
}

func (t *Tracker) unregister(txHash common.Hash, id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.waiters[txHash]
	if !ok {
		return
	}
	if _, ok := set[id]; !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(t.waiters, txHash)
	}
	PendingWaiters.Dec()
}

// Wait blocks until txHash is mined or ctx is done. A reverted transaction
// returns its Result together with ErrReverted.
func (t *Tracker) Wait(ctx context.Context, txHash common.Hash) (Result, error) {
	id, ch := t.register(txHash)
	t.logger.Debug("confirmation-waiter-registered",
		zap.String("tx-hash", txHash.Hex()),
		zap.String("waiter-id", id.String()))

	select {
	case res := <-ch:
		return res, res.Err
	case <-ctx.Done():
		t.unregister(txHash, id)
		return Result{TxHash: txHash}, fmt.Errorf("wait for %s: %w", txHash.Hex(), ctx.Err())
	}
}

// Pending returns the number of transactions with at least one waiter.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiters)
}

// Run polls until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.Info("confirmation-tracker-started",
		zap.Duration("poll-interval", t.interval))

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("confirmation-tracker-stopped")
			return ctx.Err()
		case <-ticker.C:
			t.Poll(ctx)
		}
	}
}

// Poll checks every tracked transaction once.
func (t *Tracker) Poll(ctx context.Context) {
	t.mu.Lock()
	hashes := make([]common.Hash, 0, len(t.waiters))
	for h := range t.waiters {
		hashes = append(hashes, h)
	}
	t.mu.Unlock()

	for _, h := range hashes {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		receipt, err := t.fetcher.TransactionReceipt(ctx, h)
		PollDuration.Observe(time.Since(start).Seconds())

		if errors.Is(err, ethereum.NotFound) {
			continue
		}
		if err != nil {
			PollErrorsTotal.Inc()
			t.logger.Warn("receipt-fetch-failed",
				zap.String("tx-hash", h.Hex()),
				zap.Error(err))
			continue
		}

		t.resolve(h, resultOf(h, receipt))
	}
}

func resultOf(h common.Hash, r *gethtypes.Receipt) Result {
	res := Result{
		TxHash:  h,
		GasUsed: r.GasUsed,
		Status:  r.Status,
	}
	if r.BlockNumber != nil {
		res.BlockNumber = r.BlockNumber.Uint64()
	}
	if r.Status != gethtypes.ReceiptStatusSuccessful {
		res.Err = fmt.Errorf("%s: %w", h.Hex(), ErrReverted)
	}
	return res
}

func (t *Tracker) resolve(h common.Hash, res Result) {
	t.mu.Lock()
	set := t.waiters[h]
	delete(t.waiters, h)
	t.mu.Unlock()

	status := "success"
	if res.Err != nil {
		status = "reverted"
	}
	ConfirmationsTotal.WithLabelValues(status).Inc()
	PendingWaiters.Sub(float64(len(set)))

	for _, ch := range set {
		ch <- res
	}

	t.logger.Info("transaction-confirmed",
		zap.String("tx-hash", h.Hex()),
		zap.Uint64("block", res.BlockNumber),
		zap.String("status", status),
		zap.Int("waiters", len(set)))
}
