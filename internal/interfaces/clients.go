// Package interfaces defines service contracts for the paper trader.
package interfaces

import (
	"context"

	"github.com/papertrader/papertrader/internal/models"
)

// QuoteClient talks to the external quote provider.
type QuoteClient interface {
	// Search looks up instruments matching query. Best-effort: most
	// failures surface as an empty result, rate limiting as an error.
	Search(ctx context.Context, query string) ([]models.SearchMatch, error)

	// Quote fetches a fresh quote snapshot for symbol. Bounded by the
	// client's configured timeout.
	Quote(ctx context.Context, symbol string) (*models.Stock, error)

	// Ping reports whether the provider is reachable.
	Ping(ctx context.Context) bool
}
