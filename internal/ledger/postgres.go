package ledger

import (
	"context"
	"fmt"

	"goldwallet/internal/valuation"
	"goldwallet/types"

	"github.com/google/uuid"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	id     TEXT PRIMARY KEY,
	asset  TEXT NOT NULL,
	type   TEXT NOT NULL,
	amount NUMERIC NOT NULL,
	price  NUMERIC NOT NULL,
	date   TEXT NOT NULL
)`

// queries is the persistence seam of PGStore; tests swap it for a mock.
type queries interface {
	insert(ctx context.Context, tx types.Transaction) error
	list(ctx context.Context) ([]types.Transaction, error)
	listByAsset(ctx context.Context, asset string) ([]types.Transaction, error)
	update(ctx context.Context, tx types.Transaction) (int64, error)
	delete(ctx context.Context, id string) (int64, error)
	deleteByAsset(ctx context.Context, asset string) (int64, error)
	listAssets(ctx context.Context) ([]string, error)
}

// PGStore keeps the ledger in a Postgres table. Amount and price columns are
// NUMERIC and travel as shopspring decimals through the registered codec.
type PGStore struct {
	q    queries
	pool *pgxpool.Pool
}

// NewPGStore connects, registers the decimal codec on every connection and
// ensures the transactions table exists.
func NewPGStore(ctx context.Context, dbURL string) (*PGStore, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PGStore{q: &pgQueries{pool: pool}, pool: pool}, nil
}

func (s *PGStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PGStore) GetAll(ctx context.Context) ([]types.Transaction, error) {
	return s.q.list(ctx)
}

func (s *PGStore) GetByAsset(ctx context.Context, asset string) ([]types.Transaction, error) {
	return s.q.listByAsset(ctx, asset)
}

func (s *PGStore) Add(ctx context.Context, tx types.Transaction) (types.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return types.Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := s.q.insert(ctx, tx); err != nil {
		return types.Transaction{}, err
	}
	return tx, nil
}

func (s *PGStore) Update(ctx context.Context, id string, tx types.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	tx.ID = id
	n, err := s.q.update(ctx, tx)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	n, err := s.q.delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PGStore) DeleteByAsset(ctx context.Context, asset string) error {
	_, err := s.q.deleteByAsset(ctx, asset)
	return err
}

func (s *PGStore) UniqueAssets(ctx context.Context) ([]string, error) {
	return s.q.listAssets(ctx)
}

func (s *PGStore) AverageBuyingPrice(ctx context.Context, asset string) (decimal.Decimal, error) {
	txs, err := s.q.listByAsset(ctx, asset)
	if err != nil {
		return decimal.Zero, err
	}
	return valuation.AveragePrice(txs), nil
}

func (s *PGStore) Profit(ctx context.Context, asset string, currentPrice decimal.Decimal) (decimal.Decimal, error) {
	txs, err := s.q.listByAsset(ctx, asset)
	if err != nil {
		return decimal.Zero, err
	}
	return valuation.Profit(txs, currentPrice), nil
}

type pgQueries struct {
	pool *pgxpool.Pool
}

func (q *pgQueries) insert(ctx context.Context, tx types.Transaction) error {
	_, err := q.pool.Exec(ctx,
		`INSERT INTO transactions (id, asset, type, amount, price, date) VALUES ($1, $2, $3, $4, $5, $6)`,
		tx.ID, tx.Asset, string(tx.Type), tx.Amount, tx.Price, tx.Date)
	return err
}

func (q *pgQueries) list(ctx context.Context) ([]types.Transaction, error) {
	return q.scanRows(q.pool.Query(ctx,
		`SELECT id, asset, type, amount, price, date FROM transactions ORDER BY date, id`))
}

func (q *pgQueries) listByAsset(ctx context.Context, asset string) ([]types.Transaction, error) {
	return q.scanRows(q.pool.Query(ctx,
		`SELECT id, asset, type, amount, price, date FROM transactions WHERE asset = $1 ORDER BY date, id`,
		asset))
}

func (q *pgQueries) scanRows(rows pgx.Rows, err error) ([]types.Transaction, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txs []types.Transaction
	for rows.Next() {
		var tx types.Transaction
		var typ string
		if err := rows.Scan(&tx.ID, &tx.Asset, &typ, &tx.Amount, &tx.Price, &tx.Date); err != nil {
			return nil, err
		}
		tx.Type = types.TransactionType(typ)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (q *pgQueries) update(ctx context.Context, tx types.Transaction) (int64, error) {
	tag, err := q.pool.Exec(ctx,
		`UPDATE transactions SET asset = $2, type = $3, amount = $4, price = $5, date = $6 WHERE id = $1`,
		tx.ID, tx.Asset, string(tx.Type), tx.Amount, tx.Price, tx.Date)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *pgQueries) delete(ctx context.Context, id string) (int64, error) {
	tag, err := q.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *pgQueries) deleteByAsset(ctx context.Context, asset string) (int64, error) {
	tag, err := q.pool.Exec(ctx, `DELETE FROM transactions WHERE asset = $1`, asset)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *pgQueries) listAssets(ctx context.Context) ([]string, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT DISTINCT asset FROM transactions ORDER BY asset`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assets []string
	for rows.Next() {
		var asset string
		if err := rows.Scan(&asset); err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}
