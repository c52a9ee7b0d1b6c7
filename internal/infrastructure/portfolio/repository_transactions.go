package portfolio

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "main/internal/domain/entity/portfolio"
)

func (r *Repository) TransactionByIdempotencyKey(ctx context.Context, walletID uuid.UUID, key string) (*domain.Transaction, error) {
	const query = `
		SELECT id, wallet_id, asset_id, type, quantity, price, total_value, executed_at,
		       COALESCE(idempotency_key, ''), COALESCE(notes, ''), created_at
		FROM transactions
		WHERE wallet_id = $1 AND idempotency_key = $2`

	tx := &domain.Transaction{}
	var quantity, price decimal.NullDecimal
	err := r.pool.QueryRow(ctx, query, walletID, key).Scan(
		&tx.ID,
		&tx.WalletID,
		&tx.AssetID,
		&tx.Type,
		&quantity,
		&price,
		&tx.TotalValue,
		&tx.ExecutedAt,
		&tx.IdempotencyKey,
		&tx.Notes,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if quantity.Valid {
		tx.Quantity = &quantity.Decimal
	}
	if price.Valid {
		tx.Price = &price.Decimal
	}
	return tx, nil
}

func (r *Repository) TransactionsByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.TransactionWithTicker, error) {
	const query = `
		SELECT t.id, t.wallet_id, t.asset_id, t.type, t.quantity, t.price, t.total_value, t.executed_at,
		       COALESCE(t.idempotency_key, ''), COALESCE(t.notes, ''), t.created_at,
		       COALESCE(a.ticker, '')
		FROM transactions t
		LEFT JOIN assets a ON a.id = t.asset_id
		WHERE t.wallet_id = $1
		ORDER BY t.executed_at DESC`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.TransactionWithTicker
	for rows.Next() {
		var entry domain.TransactionWithTicker
		var quantity, price decimal.NullDecimal
		if err := rows.Scan(
			&entry.ID,
			&entry.WalletID,
			&entry.AssetID,
			&entry.Type,
			&quantity,
			&price,
			&entry.TotalValue,
			&entry.ExecutedAt,
			&entry.IdempotencyKey,
			&entry.Notes,
			&entry.CreatedAt,
			&entry.Ticker,
		); err != nil {
			return nil, err
		}
		if quantity.Valid {
			entry.Quantity = &quantity.Decimal
		}
		if price.Valid {
			entry.Price = &price.Decimal
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// InsertTransaction books one write-once ledger entry. The idempotency key
// is stored as NULL when absent so internal entries (e.g. the initial
// deposit) never collide on the (wallet_id, idempotency_key) constraint.
func (t *ledgerTx) InsertTransaction(ctx context.Context, entry *domain.Transaction) error {
	const query = `
		INSERT INTO transactions (id, wallet_id, asset_id, type, quantity, price, total_value,
		                          executed_at, idempotency_key, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	var key *string
	if entry.IdempotencyKey != "" {
		key = &entry.IdempotencyKey
	}
	var notes *string
	if entry.Notes != "" {
		notes = &entry.Notes
	}

	_, err := t.tx.Exec(ctx, query,
		entry.ID,
		entry.WalletID,
		entry.AssetID,
		entry.Type,
		nullDecimal(entry.Quantity),
		nullDecimal(entry.Price),
		entry.TotalValue,
		entry.ExecutedAt,
		key,
		notes,
		entry.CreatedAt,
	)
	return mapStoreError(err)
}

func nullDecimal(value *decimal.Decimal) decimal.NullDecimal {
	if value == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *value, Valid: true}
}
