package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"goldwallet/internal/valuation"
	"goldwallet/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const fileSchemaVersion = 1

var ErrSchemaVersion = errors.New("unsupported ledger schema version")

// fileDocument is the on-disk layout: the whole ledger serialized as one
// JSON document, versioned so a future layout change can migrate.
type fileDocument struct {
	Version      int                 `json:"version"`
	Transactions []types.Transaction `json:"transactions"`
}

// FileStore keeps the ledger in a single JSON file. Every mutation is a
// read-modify-write of the full document followed by an atomic rename, so a
// crash mid-write never leaves a torn file. A process-wide mutex serializes
// writers; there is no cross-process locking.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	s := &FileStore{path: path}
	// Validate an existing file up front so version mismatches surface at
	// startup, not on first use.
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() ([]types.Transaction, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	if doc.Version != fileSchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchemaVersion, doc.Version, fileSchemaVersion)
	}
	return doc.Transactions, nil
}

func (s *FileStore) save(txs []types.Transaction) error {
	raw, err := json.MarshalIndent(fileDocument{Version: fileSchemaVersion, Transactions: txs}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

func (s *FileStore) GetAll(_ context.Context) ([]types.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

func (s *FileStore) GetByAsset(_ context.Context, asset string) ([]types.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byAsset(asset)
}

func (s *FileStore) byAsset(asset string) ([]types.Transaction, error) {
	txs, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []types.Transaction
	for _, tx := range txs {
		if tx.Asset == asset {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *FileStore) Add(_ context.Context, tx types.Transaction) (types.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return types.Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, err := s.load()
	if err != nil {
		return types.Transaction{}, err
	}
	txs = append(txs, tx)
	if err := s.save(txs); err != nil {
		return types.Transaction{}, err
	}
	return tx, nil
}

func (s *FileStore) Update(_ context.Context, id string, tx types.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	tx.ID = id // id is immutable
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, err := s.load()
	if err != nil {
		return err
	}
	for i := range txs {
		if txs[i].ID == id {
			txs[i] = tx
			return s.save(txs)
		}
	}
	return fmt.Errorf("update %s: %w", id, ErrNotFound)
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, err := s.load()
	if err != nil {
		return err
	}
	for i := range txs {
		if txs[i].ID == id {
			txs = append(txs[:i], txs[i+1:]...)
			return s.save(txs)
		}
	}
	return fmt.Errorf("delete %s: %w", id, ErrNotFound)
}

func (s *FileStore) DeleteByAsset(_ context.Context, asset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, err := s.load()
	if err != nil {
		return err
	}
	kept := txs[:0]
	for _, tx := range txs {
		if tx.Asset != asset {
			kept = append(kept, tx)
		}
	}
	if len(kept) == len(txs) {
		return nil
	}
	return s.save(kept)
}

func (s *FileStore) UniqueAssets(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txs, err := s.load()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(txs))
	var assets []string
	for _, tx := range txs {
		if !seen[tx.Asset] {
			seen[tx.Asset] = true
			assets = append(assets, tx.Asset)
		}
	}
	return assets, nil
}

func (s *FileStore) AverageBuyingPrice(_ context.Context, asset string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txs, err := s.byAsset(asset)
	if err != nil {
		return decimal.Zero, err
	}
	return valuation.AveragePrice(txs), nil
}

func (s *FileStore) Profit(_ context.Context, asset string, currentPrice decimal.Decimal) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txs, err := s.byAsset(asset)
	if err != nil {
		return decimal.Zero, err
	}
	return valuation.Profit(txs, currentPrice), nil
}
