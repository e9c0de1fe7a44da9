package types

import "github.com/shopspring/decimal"

// WalletView is the consistent read model published after a load cycle.
// Ledger-derived maps (AveragePrices, Profits) are keyed by the raw asset
// name as stored; market maps (Prices, Percentages) are keyed by the
// canonical normalized name.
type WalletView struct {
	Transactions  []Transaction
	Assets        []string
	AveragePrices map[string]decimal.Decimal
	Profits       map[string]decimal.Decimal
	Prices        map[string]Quote
	Percentages   map[string]Quote
	TotalValue    decimal.Decimal
}
