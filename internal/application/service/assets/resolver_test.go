package assets

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"main/internal/domain/entity/marketdata"
	domain "main/internal/domain/entity/portfolio"
	"main/internal/domain/interfaces"
)

type fakeAssetRepo struct {
	assets       map[string]*domain.Asset
	details      map[string]*domain.OptionDetail
	createOrder  []string
	conflictOn   map[string]bool
	conflictSeen map[string]*domain.Asset
}

func newFakeAssetRepo() *fakeAssetRepo {
	return &fakeAssetRepo{
		assets:       make(map[string]*domain.Asset),
		details:      make(map[string]*domain.OptionDetail),
		conflictOn:   make(map[string]bool),
		conflictSeen: make(map[string]*domain.Asset),
	}
}

func (r *fakeAssetRepo) AssetByTicker(_ context.Context, ticker string) (*domain.Asset, error) {
	if asset, ok := r.assets[ticker]; ok {
		return asset, nil
	}
	return nil, interfaces.ErrNotFound
}

func (r *fakeAssetRepo) CreateAsset(_ context.Context, asset *domain.Asset, detail *domain.OptionDetail) error {
	if r.conflictOn[asset.Ticker] {
		// Simulate a concurrent winner: the row appears on refetch.
		r.assets[asset.Ticker] = r.conflictSeen[asset.Ticker]
		return interfaces.ErrConflict
	}
	r.createOrder = append(r.createOrder, asset.Ticker)
	r.assets[asset.Ticker] = asset
	if detail != nil {
		r.details[asset.Ticker] = detail
	}
	return nil
}

type fakeMetadataSource struct {
	metadata map[string]*marketdata.AssetMetadata
	err      error
}

func (m fakeMetadataSource) Metadata(_ context.Context, ticker string) (*marketdata.AssetMetadata, error) {
	if m.err != nil {
		return nil, m.err
	}
	meta, ok := m.metadata[ticker]
	if !ok {
		return nil, interfaces.ErrTickerNotFound
	}
	return meta, nil
}

func (m fakeMetadataSource) BatchPrices(context.Context, []string) (map[string]decimal.Decimal, error) {
	return nil, nil
}

func newTestResolver(repo *fakeAssetRepo, source fakeMetadataSource) *Resolver {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewResolver(repo, source, logger)
}

func TestResolver_EnsureAsset_Existing(t *testing.T) {
	repo := newFakeAssetRepo()
	known := &domain.Asset{ID: uuid.New(), Ticker: "PETR4", Name: "Petrobras", Type: domain.AssetTypeStock}
	repo.assets["PETR4"] = known

	resolver := newTestResolver(repo, fakeMetadataSource{err: errors.New("must not be called")})

	got, err := resolver.EnsureAsset(context.Background(), "PETR4")
	if err != nil {
		t.Fatalf("EnsureAsset() error = %v", err)
	}
	if got.ID != known.ID {
		t.Errorf("EnsureAsset() id = %s, want %s", got.ID, known.ID)
	}
	if len(repo.createOrder) != 0 {
		t.Errorf("EnsureAsset() created %d assets for a known ticker", len(repo.createOrder))
	}
}

func TestResolver_EnsureAsset_CreatesStock(t *testing.T) {
	repo := newFakeAssetRepo()
	source := fakeMetadataSource{metadata: map[string]*marketdata.AssetMetadata{
		"VALE3": {Ticker: "VALE3", Type: domain.AssetTypeStock, Name: "Vale S.A.", Sector: "Basic Materials"},
	}}
	resolver := newTestResolver(repo, source)

	got, err := resolver.EnsureAsset(context.Background(), "VALE3")
	if err != nil {
		t.Fatalf("EnsureAsset() error = %v", err)
	}
	if got.Name != "Vale S.A." {
		t.Errorf("EnsureAsset() name = %s, want Vale S.A.", got.Name)
	}
	if got.Sector != "Basic Materials" {
		t.Errorf("EnsureAsset() sector = %s, want Basic Materials", got.Sector)
	}
	if got.Market != defaultMarket {
		t.Errorf("EnsureAsset() market = %s, want %s", got.Market, defaultMarket)
	}
}

func TestResolver_EnsureAsset_OptionResolvesUnderlyingFirst(t *testing.T) {
	expiry := time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC)
	repo := newFakeAssetRepo()
	source := fakeMetadataSource{metadata: map[string]*marketdata.AssetMetadata{
		"PETRL245": {
			Ticker:           "PETRL245",
			Type:             domain.AssetTypeOption,
			Name:             "PETR4 Call 24.50",
			UnderlyingSymbol: "PETR4",
			StrikePrice:      decimal.NewFromFloat(24.50),
			ExpirationDate:   expiry,
			OptionType:       domain.OptionTypeCall,
			ExerciseType:     domain.ExerciseTypeAmerican,
		},
		"PETR4": {Ticker: "PETR4", Type: domain.AssetTypeStock, Name: "Petrobras"},
	}}
	resolver := newTestResolver(repo, source)

	got, err := resolver.EnsureAsset(context.Background(), "PETRL245")
	if err != nil {
		t.Fatalf("EnsureAsset() error = %v", err)
	}
	if got.Type != domain.AssetTypeOption {
		t.Errorf("EnsureAsset() type = %s, want %s", got.Type, domain.AssetTypeOption)
	}

	if len(repo.createOrder) != 2 {
		t.Fatalf("EnsureAsset() created %d assets, want 2", len(repo.createOrder))
	}
	if repo.createOrder[0] != "PETR4" || repo.createOrder[1] != "PETRL245" {
		t.Errorf("EnsureAsset() create order = %v, want underlying first", repo.createOrder)
	}

	detail := repo.details["PETRL245"]
	if detail == nil {
		t.Fatal("EnsureAsset() stored no option detail")
	}
	underlying := repo.assets["PETR4"]
	if detail.UnderlyingAssetID != underlying.ID {
		t.Errorf("EnsureAsset() underlying = %s, want %s", detail.UnderlyingAssetID, underlying.ID)
	}
	if !detail.StrikePrice.Equal(decimal.NewFromFloat(24.50)) {
		t.Errorf("EnsureAsset() strike = %s, want 24.5", detail.StrikePrice)
	}
	if !detail.ExpirationDate.Equal(expiry) {
		t.Errorf("EnsureAsset() expiry = %s, want %s", detail.ExpirationDate, expiry)
	}
}

func TestResolver_EnsureAsset_OptionDefaults(t *testing.T) {
	repo := newFakeAssetRepo()
	source := fakeMetadataSource{metadata: map[string]*marketdata.AssetMetadata{
		"PETRL245": {
			Ticker:           "PETRL245",
			Type:             domain.AssetTypeOption,
			UnderlyingSymbol: "PETR4",
		},
		"PETR4": {Ticker: "PETR4", Type: domain.AssetTypeStock, Name: "Petrobras"},
	}}
	resolver := newTestResolver(repo, source)

	if _, err := resolver.EnsureAsset(context.Background(), "PETRL245"); err != nil {
		t.Fatalf("EnsureAsset() error = %v", err)
	}

	detail := repo.details["PETRL245"]
	if detail == nil {
		t.Fatal("EnsureAsset() stored no option detail")
	}
	if detail.OptionType != domain.OptionTypeCall {
		t.Errorf("EnsureAsset() option type = %s, want %s", detail.OptionType, domain.OptionTypeCall)
	}
	if detail.ExerciseType != domain.ExerciseTypeAmerican {
		t.Errorf("EnsureAsset() exercise type = %s, want %s", detail.ExerciseType, domain.ExerciseTypeAmerican)
	}
	if detail.ExpirationDate.IsZero() {
		t.Error("EnsureAsset() expiry is zero")
	}
}

func TestResolver_EnsureAsset_ConcurrentCreateRefetches(t *testing.T) {
	winner := &domain.Asset{ID: uuid.New(), Ticker: "VALE3", Name: "Vale S.A.", Type: domain.AssetTypeStock}
	repo := newFakeAssetRepo()
	repo.conflictOn["VALE3"] = true
	repo.conflictSeen["VALE3"] = winner

	source := fakeMetadataSource{metadata: map[string]*marketdata.AssetMetadata{
		"VALE3": {Ticker: "VALE3", Type: domain.AssetTypeStock, Name: "Vale S.A."},
	}}
	resolver := newTestResolver(repo, source)

	got, err := resolver.EnsureAsset(context.Background(), "VALE3")
	if err != nil {
		t.Fatalf("EnsureAsset() error = %v", err)
	}
	if got.ID != winner.ID {
		t.Errorf("EnsureAsset() id = %s, want the concurrent winner %s", got.ID, winner.ID)
	}
}

func TestResolver_EnsureAsset_LookupFailure(t *testing.T) {
	repo := newFakeAssetRepo()
	resolver := newTestResolver(repo, fakeMetadataSource{err: errors.New("upstream down")})

	_, err := resolver.EnsureAsset(context.Background(), "NOPE11")
	if !errors.Is(err, ErrAssetLookup) {
		t.Fatalf("EnsureAsset() error = %v, want %v", err, ErrAssetLookup)
	}
	if len(repo.createOrder) != 0 {
		t.Errorf("EnsureAsset() created %d assets on lookup failure", len(repo.createOrder))
	}
}
