package portfolio

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeBuy        TransactionType = "BUY"
	TransactionTypeSell       TransactionType = "SELL"
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	// Reserved for corporate actions, not produced by any ledger operation yet.
	TransactionTypeDividend     TransactionType = "DIVIDEND"
	TransactionTypeSplit        TransactionType = "SPLIT"
	TransactionTypeSubscription TransactionType = "SUBSCRIPTION"
)

func (t TransactionType) String() string {
	return string(t)
}

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeBuy, TransactionTypeSell, TransactionTypeDeposit,
		TransactionTypeWithdrawal, TransactionTypeDividend,
		TransactionTypeSplit, TransactionTypeSubscription:
		return true
	default:
		return false
	}
}

func NewTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid transaction type: %s", s)
	}
	return t, nil
}

// Transaction is a write-once ledger entry. Quantity and Price are set for
// trades and nil for cash movements. IdempotencyKey is unique per wallet.
type Transaction struct {
	ID             uuid.UUID
	WalletID       uuid.UUID
	AssetID        *uuid.UUID
	Type           TransactionType
	Quantity       *decimal.Decimal
	Price          *decimal.Decimal
	TotalValue     decimal.Decimal
	ExecutedAt     time.Time
	IdempotencyKey string
	Notes          string
	CreatedAt      time.Time
}

// TransactionWithTicker joins a transaction with the traded asset's ticker,
// empty for cash movements.
type TransactionWithTicker struct {
	Transaction
	Ticker string
}
