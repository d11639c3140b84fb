package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/forecastd/forecastd/pkg/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	id           TEXT PRIMARY KEY,
	market_id    TEXT NOT NULL,
	market_title TEXT NOT NULL DEFAULT '',
	option_id    TEXT NOT NULL,
	side         TEXT NOT NULL,
	amount       REAL NOT NULL,
	shares       REAL NOT NULL,
	price        REAL NOT NULL,
	fee          REAL NOT NULL,
	created_at   TEXT NOT NULL,
	status       TEXT NOT NULL,
	fail_reason  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS positions (
	id           TEXT PRIMARY KEY,
	market_id    TEXT NOT NULL,
	market_title TEXT NOT NULL DEFAULT '',
	option_id    TEXT NOT NULL,
	amount       REAL NOT NULL,
	shares       REAL NOT NULL,
	avg_price    REAL NOT NULL,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	status       TEXT NOT NULL,
	realized_pnl REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_transactions_created ON transactions (created_at);
CREATE INDEX IF NOT EXISTS idx_positions_market ON positions (market_id, option_id);
`

// SQLiteStore persists to a local SQLite file via modernc.org/sqlite.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// modernc sqlite is single-writer; avoid SQLITE_BUSY under concurrency.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	logger.Info("sqlite-store-opened", zap.String("path", path))

	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) SaveTransaction(ctx context.Context, tx *types.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, market_id, market_title, option_id, side, amount, shares, price, fee, created_at, status, fail_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, fail_reason = excluded.fail_reason`,
		tx.ID, tx.MarketID, tx.MarketTitle, tx.OptionID, string(tx.Side),
		tx.Amount, tx.Shares, tx.Price, tx.Fee,
		tx.Timestamp.UTC().Format(time.RFC3339Nano), string(tx.Status), tx.FailReason)
	if err != nil {
		return fmt.Errorf("save transaction %s: %w", tx.ID, err)
	}

	return nil
}

func (s *SQLiteStore) SavePosition(ctx context.Context, pos *types.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions
			(id, market_id, market_title, option_id, amount, shares, avg_price, created_at, updated_at, status, realized_pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			shares = excluded.shares,
			avg_price = excluded.avg_price,
			updated_at = excluded.updated_at,
			status = excluded.status,
			realized_pnl = excluded.realized_pnl`,
		pos.ID, pos.MarketID, pos.MarketTitle, pos.OptionID,
		pos.Amount, pos.Shares, pos.AvgPrice,
		pos.CreatedAt.UTC().Format(time.RFC3339Nano),
		pos.UpdatedAt.UTC().Format(time.RFC3339Nano),
		string(pos.Status), pos.RealizedPnL)
	if err != nil {
		return fmt.Errorf("save position %s: %w", pos.ID, err)
	}

	return nil
}

func (s *SQLiteStore) LoadTransactions(ctx context.Context) ([]*types.Transaction, error) {
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
		var side, status, createdAt string

		if err := rows.Scan(&tx.ID, &tx.MarketID, &tx.MarketTitle, &tx.OptionID, &side,
			&tx.Amount, &tx.Shares, &tx.Price, &tx.Fee, &createdAt, &status, &tx.FailReason); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		tx.Side = types.Side(side)
		tx.Status = types.TransactionStatus(status)
		if tx.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse transaction timestamp: %w", err)
		}

		out = append(out, &tx)
	}

	return out, rows.Err()
}

func (s *SQLiteStore) LoadPositions(ctx context.Context) ([]*types.Position, error) {
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
		var status, createdAt, updatedAt string

		if err := rows.Scan(&pos.ID, &pos.MarketID, &pos.MarketTitle, &pos.OptionID,
			&pos.Amount, &pos.Shares, &pos.AvgPrice, &createdAt, &updatedAt, &status, &pos.RealizedPnL); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}

		pos.Status = types.PositionStatus(status)
		if pos.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse position created_at: %w", err)
		}
		if pos.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("parse position updated_at: %w", err)
		}

		out = append(out, &pos)
	}

	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
