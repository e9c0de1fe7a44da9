package ledger

import (
	"context"
	"errors"
	"testing"

	"goldwallet/types"

	"github.com/shopspring/decimal"
)

type mockQueries struct {
	txs      []types.Transaction
	sqlError error

	inserted []types.Transaction
	updated  int64
	deleted  int64
}

func (m *mockQueries) insert(_ context.Context, tx types.Transaction) error {
	if m.sqlError != nil {
		return m.sqlError
	}
	m.inserted = append(m.inserted, tx)
	return nil
}

func (m *mockQueries) list(_ context.Context) ([]types.Transaction, error) {
	return m.txs, m.sqlError
}

func (m *mockQueries) listByAsset(_ context.Context, asset string) ([]types.Transaction, error) {
	if m.sqlError != nil {
		return nil, m.sqlError
	}
	var out []types.Transaction
	for _, tx := range m.txs {
		if tx.Asset == asset {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *mockQueries) update(_ context.Context, _ types.Transaction) (int64, error) {
	return m.updated, m.sqlError
}

func (m *mockQueries) delete(_ context.Context, _ string) (int64, error) {
	return m.deleted, m.sqlError
}

func (m *mockQueries) deleteByAsset(_ context.Context, _ string) (int64, error) {
	return m.deleted, m.sqlError
}

func (m *mockQueries) listAssets(_ context.Context) ([]string, error) {
	return nil, m.sqlError
}

func validTx() types.Transaction {
	return types.Transaction{
		Asset:  "gold",
		Type:   types.Buy,
		Amount: decimal.NewFromInt(5),
		Price:  decimal.NewFromInt(4000),
		Date:   "2026-08-29T10:00:00Z",
	}
}

func TestPGStoreAdd(t *testing.T) {
	tests := []struct {
		name    string
		tx      types.Transaction
		wantErr error
	}{
		{"valid buy gets an id", validTx(), nil},
		{"invalid amount rejected before the insert", types.Transaction{Asset: "gold", Type: types.Buy, Amount: decimal.Zero, Price: decimal.NewFromInt(1)}, types.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &mockQueries{}
			s := &PGStore{q: q}
			got, err := s.Add(context.Background(), tt.tx)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Add() error = %v, want %v", err, tt.wantErr)
				}
				if len(q.inserted) != 0 {
					t.Errorf("Add() inserted %d rows after validation failure", len(q.inserted))
				}
				return
			}
			if err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			if got.ID == "" {
				t.Error("Add() did not assign an id")
			}
			if len(q.inserted) != 1 {
				t.Errorf("Add() inserted %d rows, want 1", len(q.inserted))
			}
		})
	}
}

func TestPGStoreUpdateDeleteNotFound(t *testing.T) {
	q := &mockQueries{updated: 0, deleted: 0}
	s := &PGStore{q: q}

	if err := s.Update(context.Background(), "missing", validTx()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want %v", err, ErrNotFound)
	}
	if err := s.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want %v", err, ErrNotFound)
	}
	// DeleteByAsset of an unknown asset is a no-op, never ErrNotFound.
	if err := s.DeleteByAsset(context.Background(), "missing"); err != nil {
		t.Errorf("DeleteByAsset() error = %v, want nil", err)
	}
}

func TestPGStoreDerivedQueries(t *testing.T) {
	q := &mockQueries{txs: []types.Transaction{
		{Asset: "gold", Type: types.Buy, Amount: decimal.NewFromInt(10), Price: decimal.NewFromInt(100)},
		{Asset: "gold", Type: types.Sell, Amount: decimal.NewFromInt(4), Price: decimal.NewFromInt(110)},
		{Asset: "silver", Type: types.Buy, Amount: decimal.NewFromInt(1), Price: decimal.NewFromInt(50)},
	}}
	s := &PGStore{q: q}

	avg, err := s.AverageBuyingPrice(context.Background(), "gold")
	if err != nil {
		t.Fatalf("AverageBuyingPrice() error = %v", err)
	}
	if !avg.Equal(decimal.NewFromInt(100)) {
		t.Errorf("AverageBuyingPrice() = %v, want 100", avg)
	}

	profit, err := s.Profit(context.Background(), "gold", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Profit() error = %v", err)
	}
	if !profit.Equal(decimal.NewFromInt(-160)) {
		t.Errorf("Profit() = %v, want -160", profit)
	}
}

func TestPGStorePropagatesErrors(t *testing.T) {
	boom := errors.New("connection refused")
	s := &PGStore{q: &mockQueries{sqlError: boom}}

	if _, err := s.GetAll(context.Background()); !errors.Is(err, boom) {
		t.Errorf("GetAll() error = %v, want %v", err, boom)
	}
	if _, err := s.AverageBuyingPrice(context.Background(), "gold"); !errors.Is(err, boom) {
		t.Errorf("AverageBuyingPrice() error = %v, want %v", err, boom)
	}
}
