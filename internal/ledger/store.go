// Package ledger is the durable transaction store: CRUD over buy/sell
// records scoped to a single user, plus the derived per-asset queries the
// wallet service needs. Two implementations exist, a single-file JSON store
// and a Postgres-backed one; both validate before persisting and compute the
// derived queries through the valuation package so they agree exactly.
package ledger

import (
	"context"
	"errors"

	"goldwallet/types"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by Update and Delete when no transaction carries
// the given id.
var ErrNotFound = errors.New("transaction not found")

type Store interface {
	// GetAll returns every stored transaction. Order is stored order and is
	// not otherwise meaningful.
	GetAll(ctx context.Context) ([]types.Transaction, error)
	// GetByAsset filters by exact, case-sensitive asset name.
	GetByAsset(ctx context.Context, asset string) ([]types.Transaction, error)
	// Add validates and appends one transaction, assigning an id when the
	// caller left it empty. Persists immediately.
	Add(ctx context.Context, tx types.Transaction) (types.Transaction, error)
	// Update replaces every field except the id. ErrNotFound if id is absent.
	Update(ctx context.Context, id string, tx types.Transaction) error
	// Delete removes the transaction with the given id. ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
	// DeleteByAsset removes every transaction of the asset; removing an
	// unknown asset is a no-op.
	DeleteByAsset(ctx context.Context, asset string) error
	// UniqueAssets lists distinct asset names in first-seen order.
	UniqueAssets(ctx context.Context) ([]string, error)
	// AverageBuyingPrice is the weighted average over the asset's buy fills,
	// zero when it has none.
	AverageBuyingPrice(ctx context.Context, asset string) (decimal.Decimal, error)
	// Profit is the cost-basis profit of the asset at currentPrice.
	Profit(ctx context.Context, asset string, currentPrice decimal.Decimal) (decimal.Decimal, error)
}
