package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/lib/pq"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/mselser95/nft-orders/pkg/wyvern"
	"go.uber.org/zap"
)

// Schema creates the orders table. The wire column is the canonical order; the
// other columns exist for filtering.
const Schema = `
CREATE TABLE IF NOT EXISTS orders (
	hash            TEXT PRIMARY KEY,
	maker           TEXT NOT NULL,
	side            SMALLINT NOT NULL,
	target          TEXT NOT NULL,
	payment_token   TEXT NOT NULL,
	base_price      NUMERIC(78, 0) NOT NULL,
	listing_time    BIGINT NOT NULL,
	expiration_time BIGINT NOT NULL,
	cancelled       BOOLEAN NOT NULL DEFAULT FALSE,
	finalized       BOOLEAN NOT NULL DEFAULT FALSE,
	wire            JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS orders_maker_idx ON orders (maker);
CREATE INDEX IF NOT EXISTS orders_target_idx ON orders (target);
`

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage connects to PostgreSQL and ensures the schema exists.
func NewPostgresStorage(ctx context.Context, cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &PostgresStorage{db: db, logger: cfg.Logger}
	err = p.Migrate(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return p, nil
}

// Migrate applies Schema.
func (p *PostgresStorage) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, Schema)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func lower(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func int64Of(v *big.Int) int64 {
	if v == nil {
		return 0
	}
	return v.Int64()
}

func numeric(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// SaveOrder upserts order by hash.
func (p *PostgresStorage) SaveOrder(ctx context.Context, order *types.Order) error {
	if order.Hash == (common.Hash{}) {
		return fmt.Errorf("save order: hash: %w", types.ErrMissingField)
	}

	wire, err := wyvern.Marshal(order)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (
			hash, maker, side, target, payment_token, base_price,
			listing_time, expiration_time, cancelled, finalized, wire
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		ON CONFLICT (hash) DO UPDATE SET
			cancelled = EXCLUDED.cancelled,
			finalized = EXCLUDED.finalized,
			wire = EXCLUDED.wire
	`

	_, err = p.db.ExecContext(ctx, query,
		order.Hash.Hex(),
		lower(order.Maker),
		int(order.Side.Wire()),
		lower(order.Target),
		lower(order.PaymentToken),
		numeric(order.BasePrice),
		int64Of(order.ListingTime),
		int64Of(order.ExpirationTime),
		order.Cancelled,
		order.Finalized,
		string(wire),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	p.logger.Debug("order-stored",
		zap.String("hash", order.Hash.Hex()),
		zap.String("side", order.Side.String()))
	return nil
}

// GetOrder loads an order by hash.
func (p *PostgresStorage) GetOrder(ctx context.Context, hash common.Hash) (*types.Order, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT wire, cancelled, finalized FROM orders WHERE hash = $1`, hash.Hex())

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get order %s: %w", hash.Hex(), types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", hash.Hex(), err)
	}
	return o, nil
}

// ListOrders returns orders matching filter, newest first.
func (p *PostgresStorage) ListOrders(ctx context.Context, filter Filter) ([]*types.Order, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Maker != types.NullAddress {
		add("maker = $%d", lower(filter.Maker))
	}
	if filter.Target != types.NullAddress {
		add("target = $%d", lower(filter.Target))
	}
	if filter.Side != nil {
		add("side = $%d", int(filter.Side.Wire()))
	}
	if !filter.IncludeClosed {
		conds = append(conds, "NOT cancelled", "NOT finalized")
	}

	query := "SELECT wire, cancelled, finalized FROM orders"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []*types.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*types.Order, error) {
	var (
		wire                 []byte
		cancelled, finalized bool
	)
	err := s.Scan(&wire, &cancelled, &finalized)
	if err != nil {
		return nil, err
	}

	o, err := wyvern.Unmarshal(wire)
	if err != nil {
		return nil, err
	}
	o.Cancelled = cancelled
	o.Finalized = finalized
	return o, nil
}

// MarkCancelled flags a stored order as cancelled.
func (p *PostgresStorage) MarkCancelled(ctx context.Context, hash common.Hash) error {
	return p.mark(ctx, "cancelled", hash)
}

// MarkFinalized flags a stored order as filled.
func (p *PostgresStorage) MarkFinalized(ctx context.Context, hash common.Hash) error {
	return p.mark(ctx, "finalized", hash)
}

func (p *PostgresStorage) mark(ctx context.Context, column string, hash common.Hash) error {
	res, err := p.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE orders SET %s = TRUE WHERE hash = $1", column), hash.Hex())
	if err != nil {
		return fmt.Errorf("mark order %s %s: %w", hash.Hex(), column, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark order %s %s: %w", hash.Hex(), column, err)
	}
	if n == 0 {
		return fmt.Errorf("mark order %s %s: %w", hash.Hex(), column, types.ErrNotFound)
	}
	return nil
}

// Ping checks the database connection.
func (p *PostgresStorage) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
