package portfolio

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletSummary is the flat wallet representation returned by list endpoints.
type WalletSummary struct {
	ID          uuid.UUID       `json:"id"`
	ClientID    uuid.UUID       `json:"client_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Currency    string          `json:"currency"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PositionView is a position priced against current market data. The pricing
// fields are nil when no current price was available for the ticker.
type PositionView struct {
	ID                uuid.UUID        `json:"id"`
	AssetID           uuid.UUID        `json:"asset_id"`
	Ticker            string           `json:"ticker"`
	Name              string           `json:"name"`
	Type              AssetType        `json:"type"`
	Quantity          decimal.Decimal  `json:"quantity"`
	AveragePrice      decimal.Decimal  `json:"average_price"`
	TotalCost         decimal.Decimal  `json:"total_cost"`
	CurrentPrice      *decimal.Decimal `json:"current_price,omitempty"`
	CurrentValue      *decimal.Decimal `json:"current_value,omitempty"`
	ProfitLoss        *decimal.Decimal `json:"profit_loss,omitempty"`
	ProfitLossPercent *decimal.Decimal `json:"profit_loss_percent,omitempty"`
}

// WalletView is the priced dashboard aggregate returned by every mutating
// operation and by the dashboard read path.
type WalletView struct {
	WalletSummary
	Positions           []PositionView  `json:"positions"`
	TotalPositionsValue decimal.Decimal `json:"total_positions_value"`
	TotalValue          decimal.Decimal `json:"total_value"`
}

// TransactionView is a ledger entry shaped for the transaction history.
type TransactionView struct {
	ID         uuid.UUID        `json:"id"`
	WalletID   uuid.UUID        `json:"wallet_id"`
	AssetID    *uuid.UUID       `json:"asset_id,omitempty"`
	Ticker     string           `json:"ticker,omitempty"`
	Type       TransactionType  `json:"type"`
	Quantity   *decimal.Decimal `json:"quantity,omitempty"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	TotalValue decimal.Decimal  `json:"total_value"`
	ExecutedAt time.Time        `json:"executed_at"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NewWalletSummary shapes a wallet row for responses.
func NewWalletSummary(w *Wallet) WalletSummary {
	return WalletSummary{
		ID:          w.ID,
		ClientID:    w.ClientID,
		Name:        w.Name,
		Description: w.Description,
		Currency:    w.Currency,
		CashBalance: w.CashBalance,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

// NewPositionView prices one position. currentPrice may be nil when the
// market data source could not price the ticker; the view then carries cost
// basis only.
func NewPositionView(p PositionWithAsset, currentPrice *decimal.Decimal) PositionView {
	totalCost := p.Quantity.Mul(p.AveragePrice)
	view := PositionView{
		ID:           p.ID,
		AssetID:      p.AssetID,
		Ticker:       p.Asset.Ticker,
		Name:         p.Asset.Name,
		Type:         p.Asset.Type,
		Quantity:     p.Quantity,
		AveragePrice: p.AveragePrice,
		TotalCost:    totalCost,
	}
	if currentPrice == nil {
		return view
	}

	currentValue := p.Quantity.Mul(*currentPrice)
	profitLoss := currentValue.Sub(totalCost)
	profitLossPercent := decimal.Zero
	if totalCost.IsPositive() {
		profitLossPercent = profitLoss.Div(totalCost).Mul(decimal.NewFromInt(100))
	}

	view.CurrentPrice = currentPrice
	view.CurrentValue = &currentValue
	view.ProfitLoss = &profitLoss
	view.ProfitLossPercent = &profitLossPercent
	return view
}

// MarketValue is what the position contributes to the wallet total: current
// value when priced, cost basis otherwise.
func (v PositionView) MarketValue() decimal.Decimal {
	if v.CurrentValue != nil {
		return *v.CurrentValue
	}
	return v.TotalCost
}

// NewTransactionView shapes a ledger entry for responses.
func NewTransactionView(tx TransactionWithTicker) TransactionView {
	return TransactionView{
		ID:         tx.ID,
		WalletID:   tx.WalletID,
		AssetID:    tx.AssetID,
		Ticker:     tx.Ticker,
		Type:       tx.Type,
		Quantity:   tx.Quantity,
		Price:      tx.Price,
		TotalValue: tx.TotalValue,
		ExecutedAt: tx.ExecutedAt,
		CreatedAt:  tx.CreatedAt,
	}
}
