// Package wallet composes the transaction store, the valuation arithmetic
// and the market data client into one consistent read model. All loads and
// mutations serialize through a single mutex, so overlapping calls cannot
// race on the published snapshot.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"goldwallet/internal/ledger"
	"goldwallet/internal/market"
	"goldwallet/internal/valuation"
	"goldwallet/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// MarketData is the external collaborator serving current prices and
// day-over-day percentage changes, both keyed by normalized asset name.
type MarketData interface {
	LatestPrices(ctx context.Context) (map[string]types.Quote, error)
	LatestPercentages(ctx context.Context) (map[string]types.Quote, error)
}

type Service struct {
	store  ledger.Store
	market MarketData
	log    zerolog.Logger
	cfg    Config

	// opMu serializes load cycles and mutations (single-flight).
	opMu sync.Mutex

	// stateMu guards the published state below.
	stateMu sync.RWMutex
	state   State
	view    *types.WalletView
	err     error

	updates chan Update
}

func NewService(store ledger.Store, md MarketData, log zerolog.Logger, cfg Config) *Service {
	if cfg.UpdateBuffer <= 0 {
		cfg.UpdateBuffer = DefaultUpdateBuffer
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	return &Service{
		store:   store,
		market:  md,
		log:     log,
		cfg:     cfg,
		state:   StateIdle,
		updates: make(chan Update, cfg.UpdateBuffer),
	}
}

// Updates streams state transitions. Sends never block: when the buffer is
// full the transition is dropped and only State/Snapshot reflect it.
func (s *Service) Updates() <-chan Update {
	return s.updates
}

// State returns the current state and, when it is StateError, the error that
// caused it.
func (s *Service) State() (State, error) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state, s.err
}

// Snapshot returns the last successfully loaded view, nil before the first
// successful load.
func (s *Service) Snapshot() *types.WalletView {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.view
}

// LoadData runs one full load cycle: both market fetches, the ledger read
// and the per-asset valuation, then publishes the combined snapshot. Any
// failure publishes StateError with the first failure's message; there is no
// partial success.
func (s *Service) LoadData(ctx context.Context) (*types.WalletView, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.load(ctx)
}

// load does the actual cycle; callers must hold opMu.
func (s *Service) load(ctx context.Context) (*types.WalletView, error) {
	s.publish(Update{State: StateLoading})
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LoadTimeout)
	defer cancel()

	var prices, percentages map[string]types.Quote
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prices, err = s.market.LatestPrices(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		percentages, err = s.market.LatestPercentages(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		// The collaborator may wrap or swallow the deadline error, so check
		// the cycle's own context as well.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: timed out after %s", market.ErrUnavailable, s.cfg.LoadTimeout)
		}
		return nil, s.fail(fmt.Errorf("fetch market data: %w", err))
	}

	txs, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, s.fail(fmt.Errorf("read ledger: %w", err))
	}
	assets, err := s.store.UniqueAssets(ctx)
	if err != nil {
		return nil, s.fail(fmt.Errorf("read ledger assets: %w", err))
	}

	byAsset := valuation.GroupByAsset(txs)
	sellFor := func(asset string) decimal.Decimal {
		if q, ok := prices[market.NormalizeAsset(asset)]; ok {
			return q.Selling
		}
		return decimal.Zero
	}

	averages := make(map[string]decimal.Decimal, len(assets))
	profits := make(map[string]decimal.Decimal, len(assets))
	for _, asset := range assets {
		averages[asset] = valuation.AveragePrice(byAsset[asset])
		profits[asset] = valuation.Profit(byAsset[asset], sellFor(asset))
	}

	view := &types.WalletView{
		Transactions:  txs,
		Assets:        assets,
		AveragePrices: averages,
		Profits:       profits,
		Prices:        prices,
		Percentages:   percentages,
		TotalValue:    valuation.TotalValue(byAsset, sellFor),
	}
	s.publish(Update{State: StateSuccess, View: view})
	s.log.Info().Int("transactions", len(txs)).Int("assets", len(assets)).Msg("wallet loaded")
	return view, nil
}

// AddTransaction validates and stores one transaction, then reloads all
// derived state. The stored transaction (with its assigned id) is returned.
func (s *Service) AddTransaction(ctx context.Context, tx types.Transaction) (types.Transaction, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	stored, err := s.store.Add(ctx, tx)
	if err != nil {
		return types.Transaction{}, s.fail(fmt.Errorf("add transaction: %w", err))
	}
	if _, err := s.load(ctx); err != nil {
		return stored, err
	}
	return stored, nil
}

// UpdateTransaction replaces all fields but the id, then reloads.
// ledger.ErrNotFound if the id is unknown.
func (s *Service) UpdateTransaction(ctx context.Context, id string, tx types.Transaction) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.store.Update(ctx, id, tx); err != nil {
		return s.fail(fmt.Errorf("update transaction: %w", err))
	}
	_, err := s.load(ctx)
	return err
}

// DeleteTransaction removes one transaction by id, then reloads.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.store.Delete(ctx, id); err != nil {
		return s.fail(fmt.Errorf("delete transaction: %w", err))
	}
	_, err := s.load(ctx)
	return err
}

// DeleteAsset removes the whole position, then reloads.
func (s *Service) DeleteAsset(ctx context.Context, asset string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.store.DeleteByAsset(ctx, asset); err != nil {
		return s.fail(fmt.Errorf("delete asset: %w", err))
	}
	_, err := s.load(ctx)
	return err
}

// TransactionsForAsset reads the ledger rows for one asset without running a
// full load cycle.
func (s *Service) TransactionsForAsset(ctx context.Context, asset string) ([]types.Transaction, error) {
	return s.store.GetByAsset(ctx, asset)
}

// CurrentPrice looks the asset up in the last loaded price snapshot, zero if
// absent or nothing is loaded yet. Used to pre-fill transaction entry.
func (s *Service) CurrentPrice(asset string, isBuying bool) decimal.Decimal {
	view := s.Snapshot()
	if view == nil {
		return decimal.Zero
	}
	q, ok := view.Prices[market.NormalizeAsset(asset)]
	if !ok {
		return decimal.Zero
	}
	if isBuying {
		return q.Buying
	}
	return q.Selling
}

// AvailableAssets is the tradeable asset set: the keys of the last loaded
// price snapshot, sorted. This may diverge from the ledger's asset set.
func (s *Service) AvailableAssets() []string {
	view := s.Snapshot()
	if view == nil {
		return nil
	}
	assets := make([]string, 0, len(view.Prices))
	for asset := range view.Prices {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// TotalPortfolioValue is the last loaded snapshot's total, zero before the
// first successful load.
func (s *Service) TotalPortfolioValue() decimal.Decimal {
	view := s.Snapshot()
	if view == nil {
		return decimal.Zero
	}
	return view.TotalValue
}

func (s *Service) fail(err error) error {
	s.log.Error().Err(err).Msg("wallet operation failed")
	s.publish(Update{State: StateError, Err: err})
	return err
}

func (s *Service) publish(u Update) {
	s.stateMu.Lock()
	s.state = u.State
	s.err = u.Err
	if u.View != nil {
		s.view = u.View
	}
	s.stateMu.Unlock()

	select {
	case s.updates <- u:
	default:
	}
}
