package marketdata

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/domain/entity/portfolio"
)

// AssetMetadata is what the external market data source knows about a
// ticker. The option fields are zero-valued for stocks.
type AssetMetadata struct {
	Ticker           string
	Type             portfolio.AssetType
	Name             string
	Sector           string
	UnderlyingSymbol string
	StrikePrice      decimal.Decimal
	ExpirationDate   time.Time
	OptionType       portfolio.OptionType
	ExerciseType     portfolio.ExerciseType
}
