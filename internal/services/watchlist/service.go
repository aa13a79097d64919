// Package watchlist manages the persisted watchlist and its quote refresh.
package watchlist

import (
	"context"
	"fmt"

	"github.com/papertrader/papertrader/internal/common"
	"github.com/papertrader/papertrader/internal/interfaces"
	"github.com/papertrader/papertrader/internal/models"
	"github.com/papertrader/papertrader/internal/storage"
)

// Service combines the watchlist store with the quote client.
type Service struct {
	store  *storage.WatchlistStore
	quotes interfaces.QuoteClient
	logger *common.Logger
}

// NewService creates a new watchlist service.
func NewService(store *storage.WatchlistStore, quotes interfaces.QuoteClient, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		quotes: quotes,
		logger: logger,
	}
}

// Add fetches a quote for symbol and adds the stock to the watchlist.
func (s *Service) Add(ctx context.Context, symbol string) (*models.Stock, error) {
	stock, err := s.quotes.Quote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to quote %s: %w", symbol, err)
	}

	s.store.Add(ctx, *stock)
	return stock, nil
}

// Remove deletes symbol from the watchlist.
func (s *Service) Remove(ctx context.Context, symbol string) {
	s.store.Remove(ctx, models.Stock{Symbol: symbol})
}

// List returns the watched stocks in insertion order.
func (s *Service) List() []models.Stock {
	return s.store.Stocks()
}

// Refresh re-quotes every watched symbol. A failed quote keeps the
// stale snapshot for that symbol; one bad symbol never aborts the
// batch. The refreshed set is persisted once at the end.
func (s *Service) Refresh(ctx context.Context) {
	stocks := s.store.Stocks()
	if len(stocks) == 0 {
		return
	}

	refreshed := 0
	for i, stock := range stocks {
		fresh, err := s.quotes.Quote(ctx, stock.Symbol)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", stock.Symbol).Msg("Watchlist refresh failed, keeping stale quote")
			continue
		}
		stocks[i] = *fresh
		refreshed++
	}

	s.store.Replace(ctx, stocks)
	s.logger.Debug().Int("refreshed", refreshed).Int("total", len(stocks)).Msg("Watchlist refreshed")
}
