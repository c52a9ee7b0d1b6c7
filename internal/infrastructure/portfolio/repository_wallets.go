package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	domain "main/internal/domain/entity/portfolio"
	"main/internal/domain/interfaces"
)

const walletColumns = `id, client_id, name, description, currency, cash_balance, created_at, updated_at`

func scanWalletInto(row pgx.Row, wallet *domain.Wallet) error {
	return row.Scan(
		&wallet.ID,
		&wallet.ClientID,
		&wallet.Name,
		&wallet.Description,
		&wallet.Currency,
		&wallet.CashBalance,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
}

func (r *Repository) WalletByID(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	return walletByID(ctx, r.pool, walletID, false)
}

func (r *Repository) WalletsForActor(ctx context.Context, actorID uuid.UUID, clientID *uuid.UUID) ([]domain.Wallet, error) {
	query := `
		SELECT w.id, w.client_id, w.name, w.description, w.currency, w.cash_balance, w.created_at, w.updated_at
		FROM wallets w
		INNER JOIN clients c ON c.id = w.client_id
		WHERE (c.advisor_id = $1 OR c.user_id = $1)`
	args := []interface{}{actorID}
	if clientID != nil {
		query += ` AND w.client_id = $2`
		args = append(args, *clientID)
	}
	query += ` ORDER BY w.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		var wallet domain.Wallet
		if err := scanWalletInto(rows, &wallet); err != nil {
			return nil, err
		}
		wallets = append(wallets, wallet)
	}
	return wallets, rows.Err()
}

func (t *ledgerTx) InsertWallet(ctx context.Context, wallet *domain.Wallet) error {
	const query = `
		INSERT INTO wallets (id, client_id, name, description, currency, cash_balance, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := t.tx.Exec(ctx, query,
		wallet.ID,
		wallet.ClientID,
		wallet.Name,
		wallet.Description,
		wallet.Currency,
		wallet.CashBalance,
		wallet.CreatedAt,
		wallet.UpdatedAt,
	)
	return mapStoreError(err)
}

func (t *ledgerTx) WalletForUpdate(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	return walletByID(ctx, t.tx, walletID, true)
}

func (t *ledgerTx) UpdateWalletBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	const query = `UPDATE wallets SET cash_balance = $2, updated_at = $3 WHERE id = $1`
	tag, err := t.tx.Exec(ctx, query, walletID, balance, time.Now().UTC())
	if err != nil {
		return mapStoreError(err)
	}
	if tag.RowsAffected() == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

func walletByID(ctx context.Context, runner queryRower, walletID uuid.UUID, forUpdate bool) (*domain.Wallet, error) {
	query := fmt.Sprintf(`SELECT %s FROM wallets WHERE id = $1`, walletColumns)
	if forUpdate {
		query += ` FOR UPDATE`
	}
	wallet := &domain.Wallet{}
	if err := scanWalletInto(runner.QueryRow(ctx, query, walletID), wallet); err != nil {
		return nil, mapStoreError(err)
	}
	return wallet, nil
}
