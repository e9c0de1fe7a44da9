// Package valuation holds the pure portfolio arithmetic: average cost basis,
// net position and profit over a snapshot of ledger transactions plus current
// market prices. No I/O, no state.
package valuation

import (
	"goldwallet/types"

	"github.com/shopspring/decimal"
)

// AveragePrice is the weighted average price over the buy fills only,
// sum(amount_i * price_i) / sum(amount_i). Zero when there are no buys.
func AveragePrice(txs []types.Transaction) decimal.Decimal {
	totalAmount := decimal.Zero
	totalCost := decimal.Zero
	for _, tx := range txs {
		if tx.Type != types.Buy {
			continue
		}
		totalAmount = totalAmount.Add(tx.Amount)
		totalCost = totalCost.Add(tx.Amount.Mul(tx.Price))
	}
	if !totalAmount.IsPositive() {
		return decimal.Zero
	}
	return totalCost.Div(totalAmount)
}

// NetAmount is the signed amount sum: buys add, sells subtract. It may go
// negative when sells exceed buys; that is not rejected here.
func NetAmount(txs []types.Transaction) decimal.Decimal {
	net := decimal.Zero
	for _, tx := range txs {
		switch tx.Type {
		case types.Buy:
			net = net.Add(tx.Amount)
		case types.Sell:
			net = net.Sub(tx.Amount)
		}
	}
	return net
}

// Profit computes currentValue - totalInvestment with a single running net
// amount and running investment: a sell subtracts its own amount*price from
// the investment rather than matching lots. This is deliberately not
// FIFO/LIFO accounting, so the result is sensitive to the sell price.
func Profit(txs []types.Transaction, currentPrice decimal.Decimal) decimal.Decimal {
	netAmount := decimal.Zero
	totalInvestment := decimal.Zero
	for _, tx := range txs {
		switch tx.Type {
		case types.Buy:
			netAmount = netAmount.Add(tx.Amount)
			totalInvestment = totalInvestment.Add(tx.Amount.Mul(tx.Price))
		case types.Sell:
			netAmount = netAmount.Sub(tx.Amount)
			totalInvestment = totalInvestment.Sub(tx.Amount.Mul(tx.Price))
		}
	}
	return netAmount.Mul(currentPrice).Sub(totalInvestment)
}

// TotalValue sums netAmount(asset) * sellPrice(asset) over every asset
// bucket. sellPrice resolves the current selling price for a ledger asset
// name and returns zero for assets with no quote, which then contribute
// nothing.
func TotalValue(byAsset map[string][]types.Transaction, sellPrice func(asset string) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for asset, txs := range byAsset {
		total = total.Add(NetAmount(txs).Mul(sellPrice(asset)))
	}
	return total
}

// GroupByAsset buckets transactions by their raw asset name.
func GroupByAsset(txs []types.Transaction) map[string][]types.Transaction {
	byAsset := make(map[string][]types.Transaction)
	for _, tx := range txs {
		byAsset[tx.Asset] = append(byAsset[tx.Asset], tx)
	}
	return byAsset
}
