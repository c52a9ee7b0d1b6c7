package interfaces

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "main/internal/domain/entity/portfolio"
)

// Storage sentinels shared by every repository implementation. ErrConflict
// maps a unique-constraint violation so callers can branch on the benign
// races the ledger tolerates without importing the driver.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("unique constraint violated")
)

// LedgerTx is the handle scoped to one atomic unit of work. Every mutation
// and its audit entry go through the same handle so they commit or roll back
// together.
type LedgerTx interface {
	InsertWallet(ctx context.Context, wallet *domain.Wallet) error
	// WalletForUpdate reads the wallet's current committed state and locks
	// the row until the unit of work ends.
	WalletForUpdate(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error)
	UpdateWalletBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error

	// PositionForUpdate returns ErrNotFound when the wallet holds no
	// position for the asset.
	PositionForUpdate(ctx context.Context, walletID, assetID uuid.UUID) (*domain.Position, error)
	UpsertPosition(ctx context.Context, position *domain.Position) error
	DeletePosition(ctx context.Context, positionID uuid.UUID) error

	// InsertTransaction returns ErrConflict when the (wallet, idempotency
	// key) pair already exists.
	InsertTransaction(ctx context.Context, tx *domain.Transaction) error
	AppendAuditLog(ctx context.Context, entry *domain.AuditLog) error
}

// LedgerRepository is the durable store behind the portfolio ledger.
type LedgerRepository interface {
	InTx(ctx context.Context, fn func(tx LedgerTx) error) error

	WalletByID(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error)
	WalletsForActor(ctx context.Context, actorID uuid.UUID, clientID *uuid.UUID) ([]domain.Wallet, error)
	PositionsByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.PositionWithAsset, error)
	TransactionByIdempotencyKey(ctx context.Context, walletID uuid.UUID, key string) (*domain.Transaction, error)
	TransactionsByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.TransactionWithTicker, error)
	Close()
}

// AssetRepository stores the asset catalog. Asset rows are append-only.
type AssetRepository interface {
	AssetByTicker(ctx context.Context, ticker string) (*domain.Asset, error)
	// CreateAsset inserts the asset and, for options, its detail record in
	// one atomic step. Returns ErrConflict when a concurrent caller created
	// the same ticker first.
	CreateAsset(ctx context.Context, asset *domain.Asset, detail *domain.OptionDetail) error
}

// AccessChecker resolves whether an actor may operate on a wallet or client.
// Boolean, no partial grants.
type AccessChecker interface {
	CanAccessWallet(ctx context.Context, walletID, actorID uuid.UUID) (bool, error)
	CanAccessClient(ctx context.Context, clientID, actorID uuid.UUID) (bool, error)
}

// TransactionPublisher broadcasts committed ledger entries to downstream
// consumers. Publishing is best-effort and never part of the unit of work.
type TransactionPublisher interface {
	PublishTransaction(ctx context.Context, tx *domain.Transaction) error
}
