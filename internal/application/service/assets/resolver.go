package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"main/internal/domain/entity/marketdata"
	domain "main/internal/domain/entity/portfolio"
	"main/internal/domain/interfaces"
)

// ErrAssetLookup means the external market data source could not resolve the
// ticker into instrument metadata.
var ErrAssetLookup = errors.New("asset metadata lookup failed")

// defaultMarket tags lazily created assets; the metadata source does not
// report an exchange.
const defaultMarket = "B3"

// Resolver guarantees a traded instrument exists in the catalog before the
// ledger references it. Metadata fetches happen outside any database
// transaction, so concurrent creation of the same ticker is tolerated via a
// create-conflict-refetch fallback rather than a lock.
type Resolver struct {
	repo       interfaces.AssetRepository
	marketData interfaces.MarketDataProvider
	logger     *logrus.Entry
}

func NewResolver(repo interfaces.AssetRepository, marketData interfaces.MarketDataProvider, logger *logrus.Logger) *Resolver {
	return &Resolver{
		repo:       repo,
		marketData: marketData,
		logger:     logger.WithField("component", "asset_resolver"),
	}
}

// EnsureAsset returns the catalog row for ticker, creating it from external
// metadata on first reference. For options the underlying instrument is
// resolved first; underlyings are always stocks, so the recursion is bounded
// to one level in practice.
func (r *Resolver) EnsureAsset(ctx context.Context, ticker string) (*domain.Asset, error) {
	existing, err := r.repo.AssetByTicker(ctx, ticker)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, fmt.Errorf("lookup asset %s: %w", ticker, err)
	}

	meta, err := r.marketData.Metadata(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetLookup, ticker, err)
	}

	asset := &domain.Asset{
		ID:     uuid.New(),
		Ticker: ticker,
		Name:   meta.Name,
		Type:   meta.Type,
		Sector: meta.Sector,
		Market: defaultMarket,
	}
	if asset.Name == "" {
		asset.Name = ticker
	}

	var detail *domain.OptionDetail
	if meta.Type == domain.AssetTypeOption && meta.UnderlyingSymbol != "" {
		underlying, err := r.EnsureAsset(ctx, meta.UnderlyingSymbol)
		if err != nil {
			return nil, err
		}
		detail = r.optionDetail(asset.ID, underlying.ID, meta)
	}

	if err := r.repo.CreateAsset(ctx, asset, detail); err != nil {
		if errors.Is(err, interfaces.ErrConflict) {
			// A concurrent caller created the ticker between the lookup and
			// the insert; theirs wins.
			r.logger.WithField("ticker", ticker).Debug("asset created concurrently, refetching")
			return r.repo.AssetByTicker(ctx, ticker)
		}
		return nil, fmt.Errorf("create asset %s: %w", ticker, err)
	}

	r.logger.WithFields(logrus.Fields{"ticker": ticker, "type": asset.Type}).Info("created asset")
	return asset, nil
}

func (r *Resolver) optionDetail(assetID, underlyingID uuid.UUID, meta *marketdata.AssetMetadata) *domain.OptionDetail {
	detail := &domain.OptionDetail{
		AssetID:           assetID,
		UnderlyingAssetID: underlyingID,
		OptionType:        meta.OptionType,
		ExerciseType:      meta.ExerciseType,
		StrikePrice:       meta.StrikePrice,
		ExpirationDate:    meta.ExpirationDate,
	}
	if !detail.OptionType.IsValid() {
		detail.OptionType = domain.OptionTypeCall
	}
	if !detail.ExerciseType.IsValid() {
		detail.ExerciseType = domain.ExerciseTypeAmerican
	}
	if detail.ExpirationDate.IsZero() {
		detail.ExpirationDate = time.Now().UTC()
	}
	return detail
}
