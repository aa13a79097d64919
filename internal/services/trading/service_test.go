package trading

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papertrader/papertrader/internal/common"
	"github.com/papertrader/papertrader/internal/models"
	"github.com/papertrader/papertrader/internal/storage"
)

// fakeQuotes serves canned prices and records failures per symbol.
type fakeQuotes struct {
	prices map[string]float64
	errs   map[string]error
	calls  int
}

func (f *fakeQuotes) Quote(ctx context.Context, symbol string) (*models.Stock, error) {
	f.calls++
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	price, ok := f.prices[symbol]
	if !ok {
		return nil, errors.New("stock symbol not found")
	}
	return &models.Stock{Symbol: symbol, CompanyName: symbol + " Inc.", CurrentPrice: price}, nil
}

func (f *fakeQuotes) Search(ctx context.Context, query string) ([]models.SearchMatch, error) {
	return nil, nil
}

func (f *fakeQuotes) Ping(ctx context.Context) bool { return true }

func newTestService(t *testing.T, quotes *fakeQuotes) (*Service, *storage.LedgerStore) {
	t.Helper()
	kv, err := storage.NewFileStore(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	store := storage.NewLedgerStore(kv, common.NewSilentLogger(), 10000)
	return NewService(context.Background(), store, quotes, common.NewSilentLogger()), store
}

func TestServiceBuyPersists(t *testing.T) {
	quotes := &fakeQuotes{prices: map[string]float64{"AAPL": 150}}
	service, store := newTestService(t, quotes)
	ctx := context.Background()

	result := service.Buy(ctx, "AAPL", 10)

	require.True(t, result.IsSuccess())
	assert.Equal(t, 10, service.SharesOwned("AAPL"))

	// Reload from disk: the mutation survived the process.
	reloaded := store.Load(ctx)
	assert.InDelta(t, 8500.0, reloaded.CashBalance, 1e-9)
	require.Len(t, reloaded.Holdings, 1)
	assert.Equal(t, 10, reloaded.Holdings[0].Shares)
}

func TestServiceBuyQuoteFailure(t *testing.T) {
	quotes := &fakeQuotes{errs: map[string]error{"AAPL": errors.New("request timed out")}}
	service, store := newTestService(t, quotes)
	ctx := context.Background()

	result := service.Buy(ctx, "AAPL", 10)

	assert.Equal(t, models.BuyStatusAPIError, result.Status)
	assert.Contains(t, result.Message(), "request timed out")

	// Nothing was persisted.
	reloaded := store.Load(ctx)
	assert.InDelta(t, 10000.0, reloaded.CashBalance, 1e-9)
	assert.Empty(t, reloaded.Holdings)
}

func TestServiceBuyRejectionNotPersisted(t *testing.T) {
	quotes := &fakeQuotes{prices: map[string]float64{"AAPL": 150}}
	service, _ := newTestService(t, quotes)
	ctx := context.Background()

	result := service.Buy(ctx, "AAPL", 1000)

	assert.Equal(t, models.BuyStatusInsufficientFunds, result.Status)
	assert.Equal(t, 0, service.SharesOwned("AAPL"))
}

func TestServiceSellRoundTrip(t *testing.T) {
	quotes := &fakeQuotes{prices: map[string]float64{"AAPL": 150}}
	service, _ := newTestService(t, quotes)
	ctx := context.Background()

	require.True(t, service.Buy(ctx, "AAPL", 10).IsSuccess())

	quotes.prices["AAPL"] = 165
	result := service.Sell(ctx, "AAPL", 10)

	require.True(t, result.IsSuccess())
	assert.InDelta(t, 1650.0, result.SaleValue, 1e-9)
	assert.InDelta(t, 150.0, result.GainLoss, 1e-9)

	snapshot := service.Snapshot()
	assert.InDelta(t, 10150.0, snapshot.CashBalance, 1e-9)
	assert.Empty(t, snapshot.Holdings)
}

func TestServiceSellQuoteFailure(t *testing.T) {
	quotes := &fakeQuotes{errs: map[string]error{"AAPL": errors.New("network error")}}
	service, _ := newTestService(t, quotes)

	result := service.Sell(context.Background(), "AAPL", 5)
	assert.Equal(t, models.SellStatusAPIError, result.Status)
}

func TestServiceRefreshPricesSkipsFailures(t *testing.T) {
	quotes := &fakeQuotes{prices: map[string]float64{"AAPL": 150, "MSFT": 400}}
	service, _ := newTestService(t, quotes)
	ctx := context.Background()

	require.True(t, service.Buy(ctx, "AAPL", 2).IsSuccess())
	require.True(t, service.Buy(ctx, "MSFT", 1).IsSuccess())

	quotes.prices["AAPL"] = 160
	quotes.errs = map[string]error{"MSFT": errors.New("network error")}

	service.RefreshPrices(ctx)

	snapshot := service.Snapshot()
	require.Len(t, snapshot.Holdings, 2)
	for _, h := range snapshot.Holdings {
		switch h.Symbol {
		case "AAPL":
			assert.Equal(t, 160.0, h.CurrentPrice)
		case "MSFT":
			// Failed refresh keeps the stale price.
			assert.Equal(t, 400.0, h.CurrentPrice)
		}
	}
}

func TestServiceRefreshPricesNoHoldings(t *testing.T) {
	quotes := &fakeQuotes{}
	service, _ := newTestService(t, quotes)

	service.RefreshPrices(context.Background())
	assert.Zero(t, quotes.calls)
}

func TestServiceReset(t *testing.T) {
	quotes := &fakeQuotes{prices: map[string]float64{"AAPL": 150}}
	service, store := newTestService(t, quotes)
	ctx := context.Background()

	require.True(t, service.Buy(ctx, "AAPL", 10).IsSuccess())
	service.Reset(ctx, 5000)

	snapshot := service.Snapshot()
	assert.Equal(t, 5000.0, snapshot.CashBalance)
	assert.Empty(t, snapshot.Holdings)
	assert.Empty(t, snapshot.Transactions)

	reloaded := store.Load(ctx)
	assert.Equal(t, 5000.0, reloaded.CashBalance)
}

func TestServiceAddCash(t *testing.T) {
	quotes := &fakeQuotes{}
	service, _ := newTestService(t, quotes)
	ctx := context.Background()

	assert.True(t, service.AddCash(ctx, 500))
	assert.False(t, service.AddCash(ctx, 0))
	assert.False(t, service.AddCash(ctx, -100))

	assert.InDelta(t, 10500.0, service.Snapshot().CashBalance, 1e-9)
}

func TestServiceSnapshotIsACopy(t *testing.T) {
	quotes := &fakeQuotes{prices: map[string]float64{"AAPL": 150}}
	service, _ := newTestService(t, quotes)
	ctx := context.Background()

	require.True(t, service.Buy(ctx, "AAPL", 10).IsSuccess())

	snapshot := service.Snapshot()
	snapshot.Holdings[0].Shares = 999
	snapshot.CashBalance = 0

	assert.Equal(t, 10, service.SharesOwned("AAPL"))
	assert.InDelta(t, 8500.0, service.Snapshot().CashBalance, 1e-9)
}

func TestServiceHistory(t *testing.T) {
	quotes := &fakeQuotes{prices: map[string]float64{"AAPL": 100}}
	service, _ := newTestService(t, quotes)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, service.Buy(ctx, "AAPL", 1).IsSuccess())
	}

	assert.Len(t, service.History(0), 3)
	assert.Len(t, service.History(2), 2)
}
