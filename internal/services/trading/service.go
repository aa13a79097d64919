// Package trading executes simulated trades against the ledger.
package trading

import (
	"context"
	"sync"

	"github.com/papertrader/papertrader/internal/common"
	"github.com/papertrader/papertrader/internal/interfaces"
	"github.com/papertrader/papertrader/internal/models"
	"github.com/papertrader/papertrader/internal/storage"
)

// Service owns the process-wide ledger instance. A mutex serializes all
// mutations: the ledger itself has no internal locking, so the service
// is the single-writer contract callers rely on. Every successful
// mutation is persisted immediately.
type Service struct {
	mu     sync.Mutex
	ledger *models.Ledger
	store  *storage.LedgerStore
	quotes interfaces.QuoteClient
	logger *common.Logger
}

// NewService loads the persisted ledger and returns a trading service
// bound to it.
func NewService(ctx context.Context, store *storage.LedgerStore, quotes interfaces.QuoteClient, logger *common.Logger) *Service {
	return &Service{
		ledger: store.Load(ctx),
		store:  store,
		quotes: quotes,
		logger: logger,
	}
}

// Buy fetches a fresh quote for symbol and buys quantity shares at the
// quoted price. Quote failures come back as an api_error result so the
// caller can always distinguish rejected from executed.
func (s *Service) Buy(ctx context.Context, symbol string, quantity int) models.BuyResult {
	stock, err := s.quotes.Quote(ctx, symbol)
	if err != nil {
		return models.BuyAPIError(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.ledger.Buy(*stock, quantity)
	if result.IsSuccess() {
		s.store.Save(ctx, s.ledger)
		s.logger.Info().
			Str("symbol", stock.Symbol).
			Int("shares", result.Shares).
			Float64("cost", result.TotalCost).
			Msg("Buy executed")
	}
	return result
}

// Sell fetches a fresh quote for symbol and sells quantity shares at
// the quoted price.
func (s *Service) Sell(ctx context.Context, symbol string, quantity int) models.SellResult {
	stock, err := s.quotes.Quote(ctx, symbol)
	if err != nil {
		return models.SellAPIError(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.ledger.Sell(symbol, quantity, stock.CurrentPrice)
	if result.IsSuccess() {
		s.store.Save(ctx, s.ledger)
		s.logger.Info().
			Str("symbol", stock.Symbol).
			Int("shares", result.Shares).
			Float64("value", result.SaleValue).
			Float64("gain_loss", result.GainLoss).
			Msg("Sell executed")
	}
	return result
}

// RefreshPrices fetches a quote for every held symbol and updates the
// holdings' current prices. A failed quote for one symbol keeps its
// stale price and never aborts the rest of the batch.
func (s *Service) RefreshPrices(ctx context.Context) {
	symbols := s.heldSymbols()
	if len(symbols) == 0 {
		return
	}

	stocks := make([]models.Stock, 0, len(symbols))
	for _, symbol := range symbols {
		stock, err := s.quotes.Quote(ctx, symbol)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Price refresh failed, keeping stale price")
			continue
		}
		stocks = append(stocks, *stock)
	}

	if len(stocks) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger.UpdatePrices(stocks)
	s.store.Save(ctx, s.ledger)
	s.logger.Debug().Int("updated", len(stocks)).Int("held", len(symbols)).Msg("Prices refreshed")
}

func (s *Service) heldSymbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbols := make([]string, 0, len(s.ledger.Holdings))
	for _, h := range s.ledger.Holdings {
		symbols = append(symbols, h.Symbol)
	}
	return symbols
}

// Reset replaces the ledger with a fresh one at startingCash.
func (s *Service) Reset(ctx context.Context, startingCash float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger = models.NewLedger(startingCash)
	s.store.Save(ctx, s.ledger)
	s.logger.Info().Float64("cash", s.ledger.CashBalance).Msg("Ledger reset")
}

// AddCash injects cash into the account. Non-positive amounts are
// ignored. Returns whether the balance changed.
func (s *Service) AddCash(ctx context.Context, amount float64) bool {
	if amount <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger.CashBalance += amount
	s.store.Save(ctx, s.ledger)
	s.logger.Info().Float64("amount", amount).Msg("Cash added")
	return true
}

// Snapshot returns a copy of the current ledger state for reading.
func (s *Service) Snapshot() models.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := *s.ledger
	snapshot.Holdings = append([]models.Holding(nil), s.ledger.Holdings...)
	snapshot.Transactions = append([]models.Transaction(nil), s.ledger.Transactions...)
	return snapshot
}

// SharesOwned returns the number of shares held for symbol.
func (s *Service) SharesOwned(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.SharesOwned(symbol)
}

// CanAfford reports whether the account covers quantity shares at price.
func (s *Service) CanAfford(quantity int, price float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.CanAfford(quantity, price)
}

// History returns up to limit recent transactions, oldest first.
func (s *Service) History(limit int) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.RecentTransactions(limit)
}
