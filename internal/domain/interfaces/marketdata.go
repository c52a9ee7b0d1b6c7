package interfaces

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"main/internal/domain/entity/marketdata"
)

// ErrTickerNotFound means the market data source does not know the ticker.
var ErrTickerNotFound = errors.New("ticker not found")

// MarketDataProvider is the external market data capability the ledger
// consumes. Both calls may block on the network and must never be made while
// holding a database transaction.
type MarketDataProvider interface {
	// Metadata resolves instrument metadata for one ticker. Returns
	// ErrTickerNotFound for unknown tickers.
	Metadata(ctx context.Context, ticker string) (*marketdata.AssetMetadata, error)
	// BatchPrices resolves current prices for many tickers in one call.
	// Tickers the source cannot price are omitted from the result, not
	// errored.
	BatchPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
}
