package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/papertrader/papertrader/internal/common"
	"github.com/papertrader/papertrader/internal/models"
)

const (
	watchlistKey        = "watchlist.json"
	watchlistVersionKey = "watchlist.version"

	watchlistSchemaVersion = 1
)

// WatchlistStore is a persisted, order-preserving set of stock
// snapshots keyed by symbol. Membership comparisons are
// case-insensitive on symbol, matching the ledger discipline.
// Independent of the ledger; its snapshot lives under its own key.
type WatchlistStore struct {
	mu     sync.Mutex
	kv     KVStore
	logger *common.Logger
	stocks []models.Stock
}

// NewWatchlistStore creates a watchlist store, runs any pending schema
// migrations, and loads the persisted snapshot. A corrupt snapshot is
// logged and replaced with an empty watchlist, never surfaced.
func NewWatchlistStore(ctx context.Context, kv KVStore, logger *common.Logger) *WatchlistStore {
	s := &WatchlistStore{kv: kv, logger: logger, stocks: []models.Stock{}}
	s.migrate(ctx)
	s.load(ctx)
	return s
}

// migrate runs one-shot schema migrations based on the persisted
// version key. The v0 -> v1 step validates historical data and clears
// it when corrupt.
func (s *WatchlistStore) migrate(ctx context.Context) {
	version := 0
	if data, err := s.kv.Get(ctx, watchlistVersionKey); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			version = v
		}
	}

	if version >= watchlistSchemaVersion {
		return
	}

	s.logger.Info().Int("from", version).Int("to", watchlistSchemaVersion).Msg("Migrating watchlist data")

	if version == 0 {
		// Initial schema: nothing to convert, just drop undecodable data.
		if data, err := s.kv.Get(ctx, watchlistKey); err == nil {
			var stocks []models.Stock
			if err := json.Unmarshal(data, &stocks); err != nil {
				s.logger.Warn().Err(err).Msg("Watchlist migration found corrupt data, clearing")
				if err := s.kv.Delete(ctx, watchlistKey); err != nil {
					s.logger.Warn().Err(err).Msg("Failed to clear corrupt watchlist")
				}
			}
		}
	}

	if err := s.kv.Put(ctx, watchlistVersionKey, []byte(strconv.Itoa(watchlistSchemaVersion))); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record watchlist schema version")
	}
}

func (s *WatchlistStore) load(ctx context.Context) {
	data, err := s.kv.Get(ctx, watchlistKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn().Err(err).Msg("Failed to read watchlist, starting empty")
		}
		s.stocks = []models.Stock{}
		return
	}

	var stocks []models.Stock
	if err := json.Unmarshal(data, &stocks); err != nil {
		s.logger.Warn().Err(err).Msg("Watchlist snapshot corrupt, starting empty")
		s.stocks = []models.Stock{}
		return
	}

	s.stocks = stocks
	s.logger.Debug().Int("count", len(stocks)).Msg("Watchlist loaded")
}

// save persists the current set. Best-effort, failures logged only.
// Callers must hold s.mu.
func (s *WatchlistStore) save(ctx context.Context) {
	data, err := json.MarshalIndent(s.stocks, "", "  ")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to marshal watchlist")
		return
	}
	if err := s.kv.Put(ctx, watchlistKey, data); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to save watchlist")
	}
}

func (s *WatchlistStore) indexOf(symbol string) int {
	for i := range s.stocks {
		if strings.EqualFold(s.stocks[i].Symbol, symbol) {
			return i
		}
	}
	return -1
}

// Stocks returns a copy of the watched stocks in insertion order.
func (s *WatchlistStore) Stocks() []models.Stock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Stock(nil), s.stocks...)
}

// Add appends a stock to the watchlist. A stock whose symbol is already
// present is left untouched.
func (s *WatchlistStore) Add(ctx context.Context, stock models.Stock) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(stock.Symbol) >= 0 {
		s.logger.Debug().Str("symbol", stock.Symbol).Msg("Stock already in watchlist")
		return
	}

	s.stocks = append(s.stocks, stock)
	s.save(ctx)
	s.logger.Info().Str("symbol", stock.Symbol).Msg("Added to watchlist")
}

// Remove deletes the stock with a matching symbol, if present.
func (s *WatchlistStore) Remove(ctx context.Context, stock models.Stock) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(stock.Symbol)
	if i < 0 {
		return
	}

	s.stocks = append(s.stocks[:i], s.stocks[i+1:]...)
	s.save(ctx)
	s.logger.Info().Str("symbol", stock.Symbol).Msg("Removed from watchlist")
}

// Contains reports whether a stock with a matching symbol is watched.
func (s *WatchlistStore) Contains(stock models.Stock) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(stock.Symbol) >= 0
}

// Clear removes all stocks from the watchlist.
func (s *WatchlistStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stocks = []models.Stock{}
	s.save(ctx)
	s.logger.Info().Msg("Watchlist cleared")
}

// Replace swaps the entire set in one operation, preserving the given
// order. Used by refresh to apply updated quotes.
func (s *WatchlistStore) Replace(ctx context.Context, stocks []models.Stock) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stocks = append([]models.Stock(nil), stocks...)
	s.save(ctx)
}

// CreateBackup serializes the current set for external safekeeping.
func (s *WatchlistStore) CreateBackup() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(s.stocks)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Int("count", len(s.stocks)).Msg("Created watchlist backup")
	return data, nil
}

// RestoreFromBackup atomically replaces the set with a previously
// created backup. Returns false, leaving the set untouched, when the
// backup does not decode.
func (s *WatchlistStore) RestoreFromBackup(ctx context.Context, data []byte) bool {
	var stocks []models.Stock
	if err := json.Unmarshal(data, &stocks); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to restore watchlist backup")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stocks = stocks
	s.save(ctx)
	s.logger.Info().Int("count", len(stocks)).Msg("Restored watchlist from backup")
	return true
}
