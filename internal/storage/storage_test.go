package storage

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/mselser95/nft-orders/pkg/wyvern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	alice   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob     = common.HexToAddress("0x2222222222222222222222222222222222222222")
	kitties = common.HexToAddress("0x06012c8cf97bead5deae237070f9587f8e7a266d")
)

func testOrder(maker common.Address, side types.Side, salt int64) *types.Order {
	u := &types.UnhashedOrder{
		Exchange:           common.HexToAddress("0x7be8076f4ea4a4ad08075c2508e481d6c946d12b"),
		Maker:              maker,
		MakerRelayerFee:    big.NewInt(250),
		TakerRelayerFee:    big.NewInt(0),
		MakerProtocolFee:   big.NewInt(0),
		TakerProtocolFee:   big.NewInt(0),
		MakerReferrerFee:   big.NewInt(0),
		FeeRecipient:       common.HexToAddress("0x5b3256965e7c3cf26e11fcaf296dfc8807c01073"),
		FeeMethod:          types.FeeMethodSplitFee,
		Side:               side,
		SaleKind:           types.SaleKindFixedPrice,
		Target:             kitties,
		HowToCall:          types.HowToCallCall,
		Calldata:           []byte{0x23, 0xb8, 0x72, 0xdd},
		ReplacementPattern: []byte{0, 0, 0, 0},
		StaticExtradata:    []byte{},
		BasePrice:          big.NewInt(1000),
		Extra:              big.NewInt(0),
		ListingTime:        big.NewInt(1_700_000_000),
		ExpirationTime:     big.NewInt(0),
		Salt:               big.NewInt(salt),
		Quantity:           big.NewInt(1),
		Metadata: types.OrderMetadata{
			Asset:  &types.Asset{TokenAddress: kitties, TokenID: "1"},
			Schema: "ERC721",
		},
	}
	return wyvern.Hashed(u)
}

func TestMemoryStorage_SaveGet(t *testing.T) {
	t.Parallel()

	s := NewMemoryStorage(zap.NewNop())
	ctx := context.Background()
	o := testOrder(alice, types.SideSell, 1)

	require.NoError(t, s.SaveOrder(ctx, o))

	got, err := s.GetOrder(ctx, o.Hash)
	require.NoError(t, err)
	assert.Equal(t, o.Hash, got.Hash)

	got.BasePrice.SetInt64(1)
	again, err := s.GetOrder(ctx, o.Hash)
	require.NoError(t, err)
	assert.Equal(t, "1000", again.BasePrice.String(), "stored copy must not alias caller data")

	_, err = s.GetOrder(ctx, common.Hash{0x1})
	assert.ErrorIs(t, err, types.ErrNotFound)

	err = s.SaveOrder(ctx, &types.Order{})
	assert.ErrorIs(t, err, types.ErrMissingField)
	assert.NoError(t, s.Close())
}

func TestMemoryStorage_ListAndMark(t *testing.T) {
	t.Parallel()

	s := NewMemoryStorage(zap.NewNop())
	ctx := context.Background()

	a1 := testOrder(alice, types.SideSell, 1)
	a2 := testOrder(alice, types.SideBuy, 2)
	b1 := testOrder(bob, types.SideSell, 3)
	for _, o := range []*types.Order{a1, a2, b1} {
		require.NoError(t, s.SaveOrder(ctx, o))
	}
	// Re-saving keeps insertion position.
	require.NoError(t, s.SaveOrder(ctx, a1))

	sell := types.SideSell
	tests := []struct {
		name   string
		filter Filter
		want   []common.Hash
	}{
		{"all", Filter{}, []common.Hash{a1.Hash, a2.Hash, b1.Hash}},
		{"maker", Filter{Maker: alice}, []common.Hash{a1.Hash, a2.Hash}},
		{"side", Filter{Side: &sell}, []common.Hash{a1.Hash, b1.Hash}},
		{"limit", Filter{Limit: 1}, []common.Hash{a1.Hash}},
		{"target-miss", Filter{Target: bob}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListOrders(ctx, tt.filter)
			require.NoError(t, err)
			var hashes []common.Hash
			for _, o := range got {
				hashes = append(hashes, o.Hash)
			}
			assert.Equal(t, tt.want, hashes)
		})
	}

	require.NoError(t, s.MarkCancelled(ctx, a1.Hash))
	require.NoError(t, s.MarkFinalized(ctx, b1.Hash))

	open, err := s.ListOrders(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, a2.Hash, open[0].Hash)

	all, err := s.ListOrders(ctx, Filter{IncludeClosed: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := s.GetOrder(ctx, a1.Hash)
	require.NoError(t, err)
	assert.True(t, got.Cancelled)

	assert.ErrorIs(t, s.MarkCancelled(ctx, common.Hash{0x9}), types.ErrNotFound)
}

func TestConsoleStorage_SaveOrder(t *testing.T) {
	t.Parallel()

	s := NewConsoleStorage(zap.NewNop())
	var buf bytes.Buffer
	s.out = &buf

	o := testOrder(alice, types.SideSell, 1)
	require.NoError(t, s.SaveOrder(context.Background(), o))

	out := buf.String()
	assert.Contains(t, out, "ORDER SELL")
	assert.Contains(t, out, o.Hash.Hex())
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "maker 250 bps")

	got, err := s.GetOrder(context.Background(), o.Hash)
	require.NoError(t, err)
	assert.Equal(t, o.Hash, got.Hash)
	require.NoError(t, s.Close())
}

func newMockStorage(t *testing.T) (*PostgresStorage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &PostgresStorage{db: db, logger: zap.NewNop()}, mock
}

func TestPostgresStorage_Migrate(t *testing.T) {
	t.Parallel()

	s, mock := newMockStorage(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS orders").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_SaveOrder(t *testing.T) {
	t.Parallel()

	s, mock := newMockStorage(t)
	o := testOrder(alice, types.SideSell, 1)

	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			o.Hash.Hex(),
			strings.ToLower(alice.Hex()),
			1,
			strings.ToLower(kitties.Hex()),
			strings.ToLower(types.NullAddress.Hex()),
			"1000",
			int64(1_700_000_000),
			int64(0),
			false,
			false,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.SaveOrder(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_SaveOrder_Error(t *testing.T) {
	t.Parallel()

	s, mock := newMockStorage(t)
	mock.ExpectExec("INSERT INTO orders").WillReturnError(errors.New("connection refused"))

	err := s.SaveOrder(context.Background(), testOrder(alice, types.SideSell, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert order")
}

func TestPostgresStorage_GetOrder(t *testing.T) {
	t.Parallel()

	s, mock := newMockStorage(t)
	o := testOrder(alice, types.SideSell, 1)
	wire, err := wyvern.Marshal(o)
	require.NoError(t, err)

	query := regexp.QuoteMeta("SELECT wire, cancelled, finalized FROM orders WHERE hash = $1")
	mock.ExpectQuery(query).
		WithArgs(o.Hash.Hex()).
		WillReturnRows(sqlmock.NewRows([]string{"wire", "cancelled", "finalized"}).AddRow(wire, true, false))
	mock.ExpectQuery(query).
		WithArgs(common.Hash{0x1}.Hex()).
		WillReturnRows(sqlmock.NewRows([]string{"wire", "cancelled", "finalized"}))

	got, err := s.GetOrder(context.Background(), o.Hash)
	require.NoError(t, err)
	assert.Equal(t, o.Hash, got.Hash)
	assert.True(t, got.Cancelled)
	assert.False(t, got.Finalized)

	_, err = s.GetOrder(context.Background(), common.Hash{0x1})
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_ListOrders(t *testing.T) {
	t.Parallel()

	s, mock := newMockStorage(t)
	o1 := testOrder(alice, types.SideBuy, 1)
	o2 := testOrder(alice, types.SideBuy, 2)
	w1, _ := wyvern.Marshal(o1)
	w2, _ := wyvern.Marshal(o2)

	buy := types.SideBuy
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT wire, cancelled, finalized FROM orders WHERE maker = $1 AND side = $2 AND NOT cancelled AND NOT finalized ORDER BY created_at DESC LIMIT $3")).
		WithArgs(strings.ToLower(alice.Hex()), 0, 10).
		WillReturnRows(sqlmock.NewRows([]string{"wire", "cancelled", "finalized"}).
			AddRow(w1, false, false).
			AddRow(w2, false, false))

	got, err := s.ListOrders(context.Background(), Filter{Maker: alice, Side: &buy, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, o1.Hash, got[0].Hash)
	assert.Equal(t, o2.Hash, got[1].Hash)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT wire, cancelled, finalized FROM orders ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows([]string{"wire", "cancelled", "finalized"}).AddRow([]byte(`{"maker":"bad"}`), false, false))

	_, err = s.ListOrders(context.Background(), Filter{IncludeClosed: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan order")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_Mark(t *testing.T) {
	t.Parallel()

	s, mock := newMockStorage(t)
	hash := testOrder(alice, types.SideSell, 1).Hash

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET cancelled = TRUE WHERE hash = $1")).
		WithArgs(hash.Hex()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET finalized = TRUE WHERE hash = $1")).
		WithArgs(hash.Hex()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.MarkCancelled(context.Background(), hash))
	assert.ErrorIs(t, s.MarkFinalized(context.Background(), hash), types.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_Close(t *testing.T) {
	t.Parallel()

	s, mock := newMockStorage(t)
	mock.ExpectClose()

	require.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_Ping(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	s := &PostgresStorage{db: db, logger: zap.NewNop()}

	mock.ExpectPing()
	require.NoError(t, s.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, s.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorageImplementations(t *testing.T) {
	var _ Storage = (*MemoryStorage)(nil)
	var _ Storage = (*ConsoleStorage)(nil)
	var _ Storage = (*PostgresStorage)(nil)
}
