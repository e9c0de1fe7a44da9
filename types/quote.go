package types

import "github.com/shopspring/decimal"

// Quote is one market entry for an asset. The upstream feed uses the same
// shape for daily prices and for day-over-day percentage changes, so both
// snapshots reuse this type; for percentages the fields carry percent points,
// not prices.
type Quote struct {
	Buying  decimal.Decimal `json:"buyingPrice"`
	Selling decimal.Decimal `json:"sellingPrice"`
}
