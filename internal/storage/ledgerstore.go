package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/papertrader/papertrader/internal/common"
	"github.com/papertrader/papertrader/internal/models"
)

const (
	ledgerKey        = "ledger.json"
	ledgerVersionKey = "ledger.version"

	// ledgerSchemaVersion is written alongside the snapshot so future
	// format changes can migrate on load.
	ledgerSchemaVersion = 1
)

// LedgerStore serializes Ledger snapshots to the persistence medium.
// It never mutates a ledger beyond the load-time repair pass, and it
// never propagates persistence failures: a corrupt or unreadable
// snapshot falls back to a fresh default ledger, and a failed save is
// logged and absorbed.
type LedgerStore struct {
	kv           KVStore
	logger       *common.Logger
	startingCash float64
}

// NewLedgerStore creates a ledger store. startingCash seeds fresh
// ledgers; non-positive values fall back to the default.
func NewLedgerStore(kv KVStore, logger *common.Logger, startingCash float64) *LedgerStore {
	return &LedgerStore{
		kv:           kv,
		logger:       logger,
		startingCash: startingCash,
	}
}

// Load reads the persisted ledger. When no snapshot exists, or the
// snapshot fails to decode, a fresh default ledger is created and
// persisted immediately. A successfully decoded ledger goes through the
// validation/repair pass before being returned. Load never fails.
func (s *LedgerStore) Load(ctx context.Context) *models.Ledger {
	data, err := s.kv.Get(ctx, ledgerKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn().Err(err).Msg("Failed to read ledger snapshot, starting fresh")
		} else {
			s.logger.Info().Float64("starting_cash", s.startingCash).Msg("No saved ledger found, creating new one")
		}
		ledger := models.NewLedger(s.startingCash)
		s.Save(ctx, ledger)
		return ledger
	}

	var ledger models.Ledger
	if err := json.Unmarshal(data, &ledger); err != nil {
		s.logger.Warn().Err(err).Msg("Ledger snapshot corrupt, starting fresh")
		fresh := models.NewLedger(s.startingCash)
		s.Save(ctx, fresh)
		return fresh
	}

	if ledger.Holdings == nil {
		ledger.Holdings = []models.Holding{}
	}
	if ledger.Transactions == nil {
		ledger.Transactions = []models.Transaction{}
	}

	if errs := ledger.Validate(); len(errs) > 0 {
		s.logger.Warn().Strs("problems", errs).Msg("Ledger integrity issues found, repairing")
		ledger.Repair()
		s.Save(ctx, &ledger)
	}

	s.logger.Debug().
		Float64("cash", ledger.CashBalance).
		Int("holdings", len(ledger.Holdings)).
		Msg("Ledger loaded")
	return &ledger
}

// Save persists the ledger snapshot. Best-effort: failures are logged,
// never returned, so an unsaved mutation degrades rather than crashes.
func (s *LedgerStore) Save(ctx context.Context, ledger *models.Ledger) {
	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to marshal ledger")
		return
	}

	if err := s.kv.Put(ctx, ledgerKey, data); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to save ledger")
		return
	}

	if err := s.kv.Put(ctx, ledgerVersionKey, []byte(strconv.Itoa(ledgerSchemaVersion))); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to save ledger schema version")
	}
}
