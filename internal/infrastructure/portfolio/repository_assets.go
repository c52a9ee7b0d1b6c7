package portfolio

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	domain "main/internal/domain/entity/portfolio"
)

func (r *Repository) AssetByTicker(ctx context.Context, ticker string) (*domain.Asset, error) {
	const query = `
		SELECT id, ticker, name, type, COALESCE(sector, ''), COALESCE(market, ''), created_at
		FROM assets
		WHERE ticker = $1`

	asset := &domain.Asset{}
	err := r.pool.QueryRow(ctx, query, ticker).Scan(
		&asset.ID,
		&asset.Ticker,
		&asset.Name,
		&asset.Type,
		&asset.Sector,
		&asset.Market,
		&asset.CreatedAt,
	)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return asset, nil
}

// CreateAsset inserts the asset row and, for options, its detail record in
// one transaction. A unique violation on the ticker surfaces as ErrConflict
// so the resolver can fall back to the concurrently created row.
func (r *Repository) CreateAsset(ctx context.Context, asset *domain.Asset, detail *domain.OptionDetail) (err error) {
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	const assetQuery = `
		INSERT INTO assets (id, ticker, name, type, sector, market, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if _, err = tx.Exec(ctx, assetQuery,
		asset.ID,
		asset.Ticker,
		asset.Name,
		asset.Type,
		nullIfEmpty(asset.Sector),
		nullIfEmpty(asset.Market),
		asset.CreatedAt,
	); err != nil {
		return mapStoreError(err)
	}

	if detail != nil {
		const detailQuery = `
			INSERT INTO option_details (asset_id, underlying_asset_id, option_type, exercise_type, strike_price, expiration_date)
			VALUES ($1,$2,$3,$4,$5,$6)`
		if _, err = tx.Exec(ctx, detailQuery,
			detail.AssetID,
			detail.UnderlyingAssetID,
			detail.OptionType,
			detail.ExerciseType,
			detail.StrikePrice,
			detail.ExpirationDate,
		); err != nil {
			return mapStoreError(err)
		}
	}

	return tx.Commit(ctx)
}

func nullIfEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
