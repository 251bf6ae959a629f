package confirm

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	mu       sync.Mutex
	receipts map[common.Hash]*gethtypes.Receipt
	err      error
	calls    int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{receipts: make(map[common.Hash]*gethtypes.Receipt)}
}

func (f *fakeFetcher) TransactionReceipt(_ context.Context, h common.Hash) (*gethtypes.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.receipts[h]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeFetcher) mine(h common.Hash, status uint64, block int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts[h] = &gethtypes.Receipt{
		Status:      status,
		BlockNumber: big.NewInt(block),
		GasUsed:     21000,
	}
}

func newTestTracker(f *fakeFetcher) *Tracker {
	return NewTracker(&Config{
		Fetcher:      f,
		PollInterval: 10 * time.Millisecond,
		Logger:       zap.NewNop(),
	})
}

type waitResult struct {
	res Result
	err error
}

func startWait(ctx context.Context, tr *Tracker, h common.Hash) <-chan waitResult {
	out := make(chan waitResult, 1)
	go func() {
		res, err := tr.Wait(ctx, h)
		out <- waitResult{res, err}
	}()
	return out
}

func waiterCount(tr *Tracker, h common.Hash) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.waiters[h])
}

func TestNewTracker_Defaults(t *testing.T) {
	tr := NewTracker(&Config{Fetcher: newFakeFetcher()})
	assert.Equal(t, DefaultPollInterval, tr.interval)
	assert.NotNil(t, tr.logger)
	assert.Equal(t, 0, tr.Pending())
}

func TestWait_ResolvedByPoll(t *testing.T) {
	f := newFakeFetcher()
	tr := newTestTracker(f)
	h := common.HexToHash("0x01")

	done := startWait(context.Background(), tr, h)
	require.Eventually(t, func() bool { return tr.Pending() == 1 }, time.Second, time.Millisecond)

	tr.Poll(context.Background())
	assert.Equal(t, 1, tr.Pending(), "pending transaction stays tracked")

	f.mine(h, gethtypes.ReceiptStatusSuccessful, 100)
	tr.Poll(context.Background())

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, h, got.res.TxHash)
	assert.Equal(t, uint64(100), got.res.BlockNumber)
	assert.Equal(t, uint64(21000), got.res.GasUsed)
	assert.Equal(t, 0, tr.Pending())
}

func TestWait_MultipleWaitersSameHash(t *testing.T) {
	f := newFakeFetcher()
	tr := newTestTracker(f)
	h := common.HexToHash("0x02")

	a := startWait(context.Background(), tr, h)
	b := startWait(context.Background(), tr, h)
	require.Eventually(t, func() bool { return waiterCount(tr, h) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, tr.Pending())

	f.mine(h, gethtypes.ReceiptStatusSuccessful, 7)
	tr.Poll(context.Background())

	for _, ch := range []<-chan waitResult{a, b} {
		got := <-ch
		require.NoError(t, got.err)
		assert.Equal(t, uint64(7), got.res.BlockNumber)
	}
}

func TestWait_Reverted(t *testing.T) {
	f := newFakeFetcher()
	tr := newTestTracker(f)
	h := common.HexToHash("0x03")

	done := startWait(context.Background(), tr, h)
	require.Eventually(t, func() bool { return tr.Pending() == 1 }, time.Second, time.Millisecond)

	f.mine(h, gethtypes.ReceiptStatusFailed, 9)
	tr.Poll(context.Background())

	got := <-done
	require.Error(t, got.err)
	assert.ErrorIs(t, got.err, ErrReverted)
	assert.Equal(t, gethtypes.ReceiptStatusFailed, got.res.Status)
}

func TestWait_ContextCancelledRemovesOnlyThatWaiter(t *testing.T) {
	f := newFakeFetcher()
	tr := newTestTracker(f)
	h := common.HexToHash("0x04")

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := startWait(ctx, tr, h)
	kept := startWait(context.Background(), tr, h)
	require.Eventually(t, func() bool { return waiterCount(tr, h) == 2 }, time.Second, time.Millisecond)

	cancel()
	got := <-cancelled
	require.ErrorIs(t, got.err, context.Canceled)
	assert.Equal(t, 1, waiterCount(tr, h))

	f.mine(h, gethtypes.ReceiptStatusSuccessful, 1)
	tr.Poll(context.Background())
	require.NoError(t, (<-kept).err)
	assert.Equal(t, 0, tr.Pending())
}

func TestWait_LastWaiterLeavingDropsHash(t *testing.T) {
	tr := newTestTracker(newFakeFetcher())
	h := common.HexToHash("0x05")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tr.Wait(ctx, h)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, tr.Pending())
}

func TestPoll_FetchErrorKeepsWaiters(t *testing.T) {
	f := newFakeFetcher()
	f.err = errors.New("rpc unavailable")
	tr := newTestTracker(f)
	h := common.HexToHash("0x06")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startWait(ctx, tr, h)
	require.Eventually(t, func() bool { return tr.Pending() == 1 }, time.Second, time.Millisecond)

	tr.Poll(context.Background())
	assert.Equal(t, 1, tr.Pending())
	assert.Equal(t, 1, f.calls)
}

func TestRun_PollsUntilCancelled(t *testing.T) {
	f := newFakeFetcher()
	tr := newTestTracker(f)
	h := common.HexToHash("0x07")

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- tr.Run(ctx) }()

	done := startWait(context.Background(), tr, h)
	f.mine(h, gethtypes.ReceiptStatusSuccessful, 42)

	select {
	case got := <-done:
		require.NoError(t, got.err)
		assert.Equal(t, uint64(42), got.res.BlockNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not resolved by Run")
	}

	cancel()
	assert.ErrorIs(t, <-runErr, context.Canceled)
}
