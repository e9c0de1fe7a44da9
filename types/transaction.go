package types

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Validation error declarations.
var (
	ErrInvalidType   = errors.New("transaction type must be buy or sell")
	ErrInvalidAmount = errors.New("transaction amount must be positive")
	ErrInvalidPrice  = errors.New("transaction price must be positive")
	ErrEmptyAsset    = errors.New("transaction asset must not be empty")
)

type TransactionType string

const (
	Buy  TransactionType = "buy"
	Sell TransactionType = "sell"
)

func (t TransactionType) Valid() bool {
	return t == Buy || t == Sell
}

// Transaction is one buy or sell fill in the local ledger. Asset is the
// partition key and is matched case-sensitively by the store; any
// normalization happens at the market boundary, never here.
type Transaction struct {
	ID     string          `json:"id"`
	Asset  string          `json:"asset"`
	Type   TransactionType `json:"transactionType"`
	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`
	Date   string          `json:"date"` // ISO-8601
}

// NewTransaction builds a transaction with a fresh random id.
func NewTransaction(asset string, typ TransactionType, amount, price decimal.Decimal, date string) Transaction {
	return Transaction{
		ID:     uuid.NewString(),
		Asset:  asset,
		Type:   typ,
		Amount: amount,
		Price:  price,
		Date:   date,
	}
}

func (t Transaction) Validate() error {
	switch {
	case t.Asset == "":
		return ErrEmptyAsset
	case !t.Type.Valid():
		return ErrInvalidType
	case !t.Amount.IsPositive():
		return ErrInvalidAmount
	case !t.Price.IsPositive():
		return ErrInvalidPrice
	}
	return nil
}
