package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papertrader/papertrader/internal/common"
	"github.com/papertrader/papertrader/internal/models"
)

func watched(symbol string, price float64) models.Stock {
	return models.Stock{Symbol: symbol, CompanyName: symbol + " Inc.", CurrentPrice: price}
}

func newWatchlist(t *testing.T) (*WatchlistStore, KVStore) {
	t.Helper()
	kv := newTestStore(t)
	return NewWatchlistStore(context.Background(), kv, common.NewSilentLogger()), kv
}

func TestWatchlistStartsEmpty(t *testing.T) {
	store, _ := newWatchlist(t)
	assert.Empty(t, store.Stocks())
}

func TestWatchlistAddAndPersist(t *testing.T) {
	store, kv := newWatchlist(t)
	ctx := context.Background()

	store.Add(ctx, watched("AAPL", 150))
	store.Add(ctx, watched("MSFT", 400))

	stocks := store.Stocks()
	require.Len(t, stocks, 2)
	assert.Equal(t, "AAPL", stocks[0].Symbol)
	assert.Equal(t, "MSFT", stocks[1].Symbol)

	// A new store instance sees the persisted set.
	reloaded := NewWatchlistStore(ctx, kv, common.NewSilentLogger())
	assert.Equal(t, stocks, reloaded.Stocks())
}

func TestWatchlistAddDuplicateIsIgnored(t *testing.T) {
	store, _ := newWatchlist(t)
	ctx := context.Background()

	store.Add(ctx, watched("AAPL", 150))
	store.Add(ctx, watched("aapl", 155))

	stocks := store.Stocks()
	require.Len(t, stocks, 1)
	// The original entry wins; duplicates do not refresh it.
	assert.Equal(t, 150.0, stocks[0].CurrentPrice)
}

func TestWatchlistRemove(t *testing.T) {
	store, _ := newWatchlist(t)
	ctx := context.Background()

	store.Add(ctx, watched("AAPL", 150))
	store.Add(ctx, watched("MSFT", 400))

	store.Remove(ctx, models.Stock{Symbol: "aapl"})

	stocks := store.Stocks()
	require.Len(t, stocks, 1)
	assert.Equal(t, "MSFT", stocks[0].Symbol)

	// Removing an absent symbol is a no-op.
	store.Remove(ctx, models.Stock{Symbol: "GOOG"})
	assert.Len(t, store.Stocks(), 1)
}

func TestWatchlistContains(t *testing.T) {
	store, _ := newWatchlist(t)
	store.Add(context.Background(), watched("AAPL", 150))

	assert.True(t, store.Contains(models.Stock{Symbol: "AAPL"}))
	assert.True(t, store.Contains(models.Stock{Symbol: "aapl"}))
	assert.False(t, store.Contains(models.Stock{Symbol: "MSFT"}))
}

func TestWatchlistClear(t *testing.T) {
	store, kv := newWatchlist(t)
	ctx := context.Background()

	store.Add(ctx, watched("AAPL", 150))
	store.Clear(ctx)

	assert.Empty(t, store.Stocks())

	reloaded := NewWatchlistStore(ctx, kv, common.NewSilentLogger())
	assert.Empty(t, reloaded.Stocks())
}

func TestWatchlistReplacePreservesOrder(t *testing.T) {
	store, _ := newWatchlist(t)
	ctx := context.Background()

	store.Add(ctx, watched("AAPL", 150))
	store.Replace(ctx, []models.Stock{watched("MSFT", 400), watched("GOOG", 120)})

	stocks := store.Stocks()
	require.Len(t, stocks, 2)
	assert.Equal(t, "MSFT", stocks[0].Symbol)
	assert.Equal(t, "GOOG", stocks[1].Symbol)
}

func TestWatchlistBackupRestore(t *testing.T) {
	store, _ := newWatchlist(t)
	ctx := context.Background()

	store.Add(ctx, watched("AAPL", 150))
	store.Add(ctx, watched("MSFT", 400))

	backup, err := store.CreateBackup()
	require.NoError(t, err)

	store.Clear(ctx)
	require.Empty(t, store.Stocks())

	require.True(t, store.RestoreFromBackup(ctx, backup))

	stocks := store.Stocks()
	require.Len(t, stocks, 2)
	assert.Equal(t, "AAPL", stocks[0].Symbol)
}

func TestWatchlistRestoreRejectsGarbage(t *testing.T) {
	store, _ := newWatchlist(t)
	ctx := context.Background()

	store.Add(ctx, watched("AAPL", 150))

	assert.False(t, store.RestoreFromBackup(ctx, []byte(`{not a backup`)))

	// A failed restore leaves the set untouched.
	stocks := store.Stocks()
	require.Len(t, stocks, 1)
	assert.Equal(t, "AAPL", stocks[0].Symbol)
}

func TestWatchlistCorruptSnapshotStartsEmpty(t *testing.T) {
	kv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "watchlist.json", []byte(`garbage`)))

	store := NewWatchlistStore(ctx, kv, common.NewSilentLogger())
	assert.Empty(t, store.Stocks())
}

func TestWatchlistMigrationClearsCorruptData(t *testing.T) {
	kv := newTestStore(t)
	ctx := context.Background()

	// Unversioned corrupt data from an old install.
	require.NoError(t, kv.Put(ctx, "watchlist.json", []byte(`garbage`)))

	NewWatchlistStore(ctx, kv, common.NewSilentLogger())

	// The migration removed the corrupt key and stamped the version.
	exists, err := kv.Exists(ctx, "watchlist.json")
	require.NoError(t, err)
	assert.False(t, exists)

	version, err := kv.Get(ctx, "watchlist.version")
	require.NoError(t, err)
	assert.Equal(t, "1", string(version))
}

func TestWatchlistMigrationKeepsValidData(t *testing.T) {
	kv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "watchlist.json",
		[]byte(`[{"symbol": "AAPL", "company_name": "Apple Inc", "current_price": 150}]`)))

	store := NewWatchlistStore(ctx, kv, common.NewSilentLogger())

	stocks := store.Stocks()
	require.Len(t, stocks, 1)
	assert.Equal(t, "AAPL", stocks[0].Symbol)
}
