package portfolio

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domain "main/internal/domain/entity/portfolio"
	"main/internal/domain/interfaces"
)

func scanPositionInto(row pgx.Row, position *domain.Position) error {
	return row.Scan(
		&position.ID,
		&position.WalletID,
		&position.AssetID,
		&position.Quantity,
		&position.AveragePrice,
		&position.CreatedAt,
		&position.UpdatedAt,
	)
}

func (r *Repository) PositionsByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.PositionWithAsset, error) {
	const query = `
		SELECT p.id, p.wallet_id, p.asset_id, p.quantity, p.average_price, p.created_at, p.updated_at,
		       a.id, a.ticker, a.name, a.type, COALESCE(a.sector, ''), COALESCE(a.market, ''), a.created_at
		FROM positions p
		INNER JOIN assets a ON a.id = p.asset_id
		WHERE p.wallet_id = $1
		ORDER BY a.ticker`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []domain.PositionWithAsset
	for rows.Next() {
		var p domain.PositionWithAsset
		if err := rows.Scan(
			&p.ID,
			&p.WalletID,
			&p.AssetID,
			&p.Quantity,
			&p.AveragePrice,
			&p.CreatedAt,
			&p.UpdatedAt,
			&p.Asset.ID,
			&p.Asset.Ticker,
			&p.Asset.Name,
			&p.Asset.Type,
			&p.Asset.Sector,
			&p.Asset.Market,
			&p.Asset.CreatedAt,
		); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func (t *ledgerTx) PositionForUpdate(ctx context.Context, walletID, assetID uuid.UUID) (*domain.Position, error) {
	const query = `
		SELECT id, wallet_id, asset_id, quantity, average_price, created_at, updated_at
		FROM positions
		WHERE wallet_id = $1 AND asset_id = $2
		FOR UPDATE`

	position := &domain.Position{}
	if err := scanPositionInto(t.tx.QueryRow(ctx, query, walletID, assetID), position); err != nil {
		return nil, mapStoreError(err)
	}
	return position, nil
}

func (t *ledgerTx) UpsertPosition(ctx context.Context, position *domain.Position) error {
	const query = `
		INSERT INTO positions (id, wallet_id, asset_id, quantity, average_price, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (wallet_id, asset_id) DO UPDATE
		SET quantity = EXCLUDED.quantity,
			average_price = EXCLUDED.average_price,
			updated_at = EXCLUDED.updated_at`
	_, err := t.tx.Exec(ctx, query,
		position.ID,
		position.WalletID,
		position.AssetID,
		position.Quantity,
		position.AveragePrice,
		position.CreatedAt,
		position.UpdatedAt,
	)
	return mapStoreError(err)
}

func (t *ledgerTx) DeletePosition(ctx context.Context, positionID uuid.UUID) error {
	const query = `DELETE FROM positions WHERE id = $1`
	tag, err := t.tx.Exec(ctx, query, positionID)
	if err != nil {
		return mapStoreError(err)
	}
	if tag.RowsAffected() == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}
