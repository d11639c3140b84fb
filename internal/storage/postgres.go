package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/forecastd/forecastd/pkg/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	id           TEXT PRIMARY KEY,
	market_id    TEXT NOT NULL,
	market_title TEXT NOT NULL DEFAULT '',
	option_id    TEXT NOT NULL,
	side         TEXT NOT NULL,
	amount       DOUBLE PRECISION NOT NULL,
	shares       DOUBLE PRECISION NOT NULL,
	price        DOUBLE PRECISION NOT NULL,
	fee          DOUBLE PRECISION NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	status       TEXT NOT NULL,
	fail_reason  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS positions (
	id           TEXT PRIMARY KEY,
	market_id    TEXT NOT NULL,
	market_title TEXT NOT NULL DEFAULT '',
	option_id    TEXT NOT NULL,
	amount       DOUBLE PRECISION NOT NULL,
	shares       DOUBLE PRECISION NOT NULL,
	avg_price    DOUBLE PRECISION NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	status       TEXT NOT NULL,
	realized_pnl DOUBLE PRECISION NOT NULL DEFAULT 0
);
`

// PostgresStore persists to PostgreSQL via lib/pq.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore connects to the database at dsn and applies the schema.
func NewPostgresStore(dsn string, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres database: %w", err)
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}

	logger.Info("postgres-store-opened")

	return &PostgresStore{db: db, logger: logger}, nil
}

// newPostgresStoreFromDB wraps an existing connection. Used in tests.
func newPostgresStoreFromDB(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) SaveTransaction(ctx context.Context, tx *types.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, market_id, market_title, option_id, side, amount, shares, price, fee, created_at, status, fail_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, fail_reason = EXCLUDED.fail_reason`,
		tx.ID, tx.MarketID, tx.MarketTitle, tx.OptionID, string(tx.Side),
		tx.Amount, tx.Shares, tx.Price, tx.Fee, tx.Timestamp.UTC(),
		string(tx.Status), tx.FailReason)
	if err != nil {
		return fmt.Errorf("save transaction %s: %w", tx.ID, err)
	}

	return nil
}

func (s *PostgresStore) SavePosition(ctx context.Context, pos *types.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions
			(id, market_id, market_title, option_id, amount, shares, avg_price, created_at, updated_at, status, realized_pnl)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			amount = EXCLUDED.amount,
			shares = EXCLUDED.shares,
			avg_price = EXCLUDED.avg_price,
			updated_at = EXCLUDED.updated_at,
			status = EXCLUDED.status,
			realized_pnl = EXCLUDED.realized_pnl`,
		pos.ID, pos.MarketID, pos.MarketTitle, pos.OptionID,
		pos.Amount, pos.Shares, pos.AvgPrice,
		pos.CreatedAt.UTC(), pos.UpdatedAt.UTC(),
		string(pos.Status), pos.RealizedPnL)
	if err != nil {
		return fmt.Errorf("save position %s: %w", pos.ID, err)
	}

	return nil
}

func (s *PostgresStore) LoadTransactions(ctx context.Context) ([]*types.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, market_id, market_title, option_id, side, amount, shares, price, fee, created_at, status, fail_reason
		FROM transactions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()

	var out []*types.Transaction
	for rows.Next() {
		var tx types.Transaction
		var side, status string

		if err := rows.Scan(&tx.ID, &tx.MarketID, &tx.MarketTitle, &tx.OptionID, &side,
			&tx.Amount, &tx.Shares, &tx.Price, &tx.Fee, &tx.Timestamp, &status, &tx.FailReason); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		tx.Side = types.Side(side)
		tx.Status = types.TransactionStatus(status)
		out = append(out, &tx)
	}

	return out, rows.Err()
}

func (s *PostgresStore) LoadPositions(ctx context.Context) ([]*types.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, market_id, market_title, option_id, amount, shares, avg_price, created_at, updated_at, status, realized_pnl
		FROM positions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	defer rows.Close()

	var out []*types.Position
	for rows.Next() {
		var pos types.Position
		var status string

		if err := rows.Scan(&pos.ID, &pos.MarketID, &pos.MarketTitle, &pos.OptionID,
			&pos.Amount, &pos.Shares, &pos.AvgPrice, &pos.CreatedAt, &pos.UpdatedAt,
			&status, &pos.RealizedPnL); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}

		pos.Status = types.PositionStatus(status)
		out = append(out, &pos)
	}

	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
