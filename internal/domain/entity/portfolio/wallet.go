package portfolio

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "BRL"

// Wallet is a client's investment account holding cash and positions.
// CashBalance is exact decimal and never goes negative through a ledger
// operation.
type Wallet struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	Name        string
	Description string
	Currency    string
	CashBalance decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Position is a held quantity of one asset within one wallet, unique per
// (wallet, asset). A fully sold position is deleted, never kept at zero.
type Position struct {
	ID           uuid.UUID
	WalletID     uuid.UUID
	AssetID      uuid.UUID
	Quantity     decimal.Decimal
	AveragePrice decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PositionWithAsset joins a position with its asset row for read paths.
type PositionWithAsset struct {
	Position
	Asset Asset
}
