package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"main/internal/application/service/assets"
	"main/internal/application/service/audit"
	domain "main/internal/domain/entity/portfolio"
	"main/internal/domain/interfaces"
)

// Service is the portfolio ledger engine. It mutates wallet cash balances
// and security positions inside single atomic units of work, records an
// audit trail alongside every mutation, and prices read views against live
// market data.
//
// All collaborators are explicit constructor dependencies; the service holds
// no global state and no in-process locks. Per-wallet serialization relies
// on the store locking the wallet row for the duration of the unit of work.
type Service struct {
	ledger     interfaces.LedgerRepository
	assetRepo  interfaces.AssetRepository
	resolver   *assets.Resolver
	access     interfaces.AccessChecker
	marketData interfaces.MarketDataProvider
	recorder   *audit.Recorder
	publisher  interfaces.TransactionPublisher
	logger     *logrus.Entry
}

// NewService wires the ledger engine. publisher may be nil when no broker is
// configured.
func NewService(
	ledger interfaces.LedgerRepository,
	assetRepo interfaces.AssetRepository,
	resolver *assets.Resolver,
	access interfaces.AccessChecker,
	marketData interfaces.MarketDataProvider,
	recorder *audit.Recorder,
	publisher interfaces.TransactionPublisher,
	logger *logrus.Logger,
) *Service {
	return &Service{
		ledger:     ledger,
		assetRepo:  assetRepo,
		resolver:   resolver,
		access:     access,
		marketData: marketData,
		recorder:   recorder,
		publisher:  publisher,
		logger:     logger.WithField("component", "portfolio_service"),
	}
}

// CreateWalletInput is an already shape-validated create request.
type CreateWalletInput struct {
	ClientID           uuid.UUID
	Name               string
	Description        string
	Currency           string
	InitialCashBalance decimal.Decimal
}

// CashOperationInput is an already shape-validated deposit or withdrawal.
// Type is DEPOSIT or WITHDRAWAL and Amount is strictly positive.
type CashOperationInput struct {
	Type           domain.TransactionType
	Amount         decimal.Decimal
	Date           time.Time
	IdempotencyKey string
}

// TradeInput is an already shape-validated buy or sell. Quantity and Price
// are strictly positive.
type TradeInput struct {
	Ticker         string
	Quantity       decimal.Decimal
	Price          decimal.Decimal
	Date           time.Time
	IdempotencyKey string
}

// CreateWallet opens a wallet for a client the actor controls. A strictly
// positive opening balance additionally books a DEPOSIT transaction, all
// within one unit of work.
func (s *Service) CreateWallet(ctx context.Context, in CreateWalletInput, actor domain.Actor) (*domain.WalletView, error) {
	if err := s.authorizeClient(ctx, in.ClientID, actor); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	wallet := &domain.Wallet{
		ID:          uuid.New(),
		ClientID:    in.ClientID,
		Name:        in.Name,
		Description: in.Description,
		Currency:    in.Currency,
		CashBalance: in.InitialCashBalance,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if wallet.Currency == "" {
		wallet.Currency = domain.DefaultCurrency
	}

	err := s.ledger.InTx(ctx, func(tx interfaces.LedgerTx) error {
		if err := tx.InsertWallet(ctx, wallet); err != nil {
			return err
		}

		if in.InitialCashBalance.IsPositive() {
			deposit := &domain.Transaction{
				ID:         uuid.New(),
				WalletID:   wallet.ID,
				Type:       domain.TransactionTypeDeposit,
				TotalValue: in.InitialCashBalance,
				ExecutedAt: now,
				Notes:      "initial deposit",
				CreatedAt:  now,
			}
			if err := tx.InsertTransaction(ctx, deposit); err != nil {
				return err
			}
			if err := s.recorder.Record(ctx, tx, audit.Entry{
				TableName: "transactions",
				RecordID:  deposit.ID,
				Action:    domain.AuditActionCreate,
				Actor:     actor,
				Context: map[string]any{
					"type":   "INITIAL_DEPOSIT",
					"amount": in.InitialCashBalance.String(),
				},
			}); err != nil {
				return err
			}
		}

		return s.recorder.Record(ctx, tx, audit.Entry{
			TableName: "wallets",
			RecordID:  wallet.ID,
			Action:    domain.AuditActionCreate,
			Actor:     actor,
			After: map[string]any{
				"id":           wallet.ID.String(),
				"name":         wallet.Name,
				"cash_balance": wallet.CashBalance.String(),
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}

	return &domain.WalletView{
		WalletSummary:       domain.NewWalletSummary(wallet),
		Positions:           []domain.PositionView{},
		TotalPositionsValue: decimal.Zero,
		TotalValue:          wallet.CashBalance,
	}, nil
}

// ListWallets returns every wallet the actor may access, newest first,
// optionally narrowed to one client.
func (s *Service) ListWallets(ctx context.Context, actor domain.Actor, clientID *uuid.UUID) ([]domain.WalletSummary, error) {
	wallets, err := s.ledger.WalletsForActor(ctx, actor.ID, clientID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	summaries := make([]domain.WalletSummary, 0, len(wallets))
	for i := range wallets {
		summaries = append(summaries, domain.NewWalletSummary(&wallets[i]))
	}
	return summaries, nil
}

// GetWallet returns the flat wallet summary without pricing.
func (s *Service) GetWallet(ctx context.Context, walletID uuid.UUID, actor domain.Actor) (*domain.WalletSummary, error) {
	if err := s.authorizeWallet(ctx, walletID, actor); err != nil {
		return nil, err
	}
	wallet, err := s.ledger.WalletByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	summary := domain.NewWalletSummary(wallet)
	return &summary, nil
}

// GetDashboard loads the wallet and all positions, batch-prices the held
// tickers and returns the aggregate view. Pricing degrades per ticker:
// positions the source cannot price fall back to cost basis.
func (s *Service) GetDashboard(ctx context.Context, walletID uuid.UUID, actor domain.Actor) (*domain.WalletView, error) {
	if err := s.authorizeWallet(ctx, walletID, actor); err != nil {
		return nil, err
	}

	wallet, err := s.ledger.WalletByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	positions, err := s.ledger.PositionsByWallet(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}

	prices := s.currentPrices(ctx, positions)

	views := make([]domain.PositionView, 0, len(positions))
	totalPositionsValue := decimal.Zero
	for _, position := range positions {
		var currentPrice *decimal.Decimal
		if price, ok := prices[position.Asset.Ticker]; ok {
			currentPrice = &price
		}
		view := domain.NewPositionView(position, currentPrice)
		totalPositionsValue = totalPositionsValue.Add(view.MarketValue())
		views = append(views, view)
	}

	return &domain.WalletView{
		WalletSummary:       domain.NewWalletSummary(wallet),
		Positions:           views,
		TotalPositionsValue: totalPositionsValue,
		TotalValue:          wallet.CashBalance.Add(totalPositionsValue),
	}, nil
}

// CashOperation books a deposit or withdrawal. The wallet row is locked for
// the duration of the unit of work so the balance check always runs against
// the current committed value.
func (s *Service) CashOperation(ctx context.Context, walletID uuid.UUID, in CashOperationInput, actor domain.Actor) (*domain.WalletView, error) {
	if err := s.checkIdempotency(ctx, walletID, in.IdempotencyKey); err != nil {
		return nil, err
	}
	if err := s.authorizeWallet(ctx, walletID, actor); err != nil {
		return nil, err
	}

	ledgerEntry := &domain.Transaction{
		ID:             uuid.New(),
		WalletID:       walletID,
		Type:           in.Type,
		TotalValue:     in.Amount,
		ExecutedAt:     in.Date,
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}

	err := s.ledger.InTx(ctx, func(tx interfaces.LedgerTx) error {
		wallet, err := tx.WalletForUpdate(ctx, walletID)
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				return ErrWalletNotFound
			}
			return err
		}

		var newBalance decimal.Decimal
		switch in.Type {
		case domain.TransactionTypeDeposit:
			newBalance = wallet.CashBalance.Add(in.Amount)
		case domain.TransactionTypeWithdrawal:
			if wallet.CashBalance.LessThan(in.Amount) {
				return ErrInsufficientFunds
			}
			newBalance = wallet.CashBalance.Sub(in.Amount)
		default:
			return fmt.Errorf("unsupported cash operation type: %s", in.Type)
		}

		if err := tx.UpdateWalletBalance(ctx, walletID, newBalance); err != nil {
			return err
		}
		if err := s.insertLedgerEntry(ctx, tx, ledgerEntry); err != nil {
			return err
		}

		return s.recorder.Record(ctx, tx, audit.Entry{
			TableName: "wallets",
			RecordID:  walletID,
			Action:    domain.AuditActionUpdate,
			Actor:     actor,
			Before:    map[string]any{"cash_balance": wallet.CashBalance.String()},
			After:     map[string]any{"cash_balance": newBalance.String()},
			Context: map[string]any{
				"operation": in.Type.String(),
				"amount":    in.Amount.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, ledgerEntry)
	return s.GetDashboard(ctx, walletID, actor)
}

// Buy executes a purchase: the asset is resolved outside the unit of work
// (external call boundary), then cash is checked against total cost and the
// position is upserted with the quantity-weighted average price.
func (s *Service) Buy(ctx context.Context, walletID uuid.UUID, in TradeInput, actor domain.Actor) (*domain.WalletView, error) {
	if err := s.checkIdempotency(ctx, walletID, in.IdempotencyKey); err != nil {
		return nil, err
	}
	if err := s.authorizeWallet(ctx, walletID, actor); err != nil {
		return nil, err
	}

	asset, err := s.resolver.EnsureAsset(ctx, in.Ticker)
	if err != nil {
		return nil, err
	}

	totalCost := in.Quantity.Mul(in.Price)
	assetID := asset.ID
	quantity := in.Quantity
	price := in.Price
	ledgerEntry := &domain.Transaction{
		ID:             uuid.New(),
		WalletID:       walletID,
		AssetID:        &assetID,
		Type:           domain.TransactionTypeBuy,
		Quantity:       &quantity,
		Price:          &price,
		TotalValue:     totalCost,
		ExecutedAt:     in.Date,
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}

	err = s.ledger.InTx(ctx, func(tx interfaces.LedgerTx) error {
		wallet, err := tx.WalletForUpdate(ctx, walletID)
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				return ErrWalletNotFound
			}
			return err
		}
		if wallet.CashBalance.LessThan(totalCost) {
			return ErrInsufficientFunds
		}

		existing, err := tx.PositionForUpdate(ctx, walletID, asset.ID)
		if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
			return err
		}

		existingQty := decimal.Zero
		existingAvg := decimal.Zero
		position := &domain.Position{
			ID:        uuid.New(),
			WalletID:  walletID,
			AssetID:   asset.ID,
			CreatedAt: time.Now().UTC(),
		}
		action := domain.AuditActionCreate
		if existing != nil {
			existingQty = existing.Quantity
			existingAvg = existing.AveragePrice
			position.ID = existing.ID
			position.CreatedAt = existing.CreatedAt
			action = domain.AuditActionUpdate
		}

		position.Quantity = existingQty.Add(in.Quantity)
		position.AveragePrice = weightedAveragePrice(existingQty, existingAvg, in.Quantity, in.Price)
		position.UpdatedAt = time.Now().UTC()

		if err := tx.UpsertPosition(ctx, position); err != nil {
			return err
		}
		if err := tx.UpdateWalletBalance(ctx, walletID, wallet.CashBalance.Sub(totalCost)); err != nil {
			return err
		}
		if err := s.insertLedgerEntry(ctx, tx, ledgerEntry); err != nil {
			return err
		}

		var before map[string]any
		if existing != nil {
			before = map[string]any{
				"quantity":      existingQty.String(),
				"average_price": existingAvg.String(),
			}
		}
		if err := s.recorder.Record(ctx, tx, audit.Entry{
			TableName: "positions",
			RecordID:  position.ID,
			Action:    action,
			Actor:     actor,
			Before:    before,
			After: map[string]any{
				"quantity":      position.Quantity.String(),
				"average_price": position.AveragePrice.String(),
			},
			Context: map[string]any{"trade": "BUY", "ticker": in.Ticker},
		}); err != nil {
			return err
		}

		return s.recorder.Record(ctx, tx, audit.Entry{
			TableName: "wallets",
			RecordID:  walletID,
			Action:    domain.AuditActionUpdate,
			Actor:     actor,
			Before:    map[string]any{"cash_balance": wallet.CashBalance.String()},
			After:     map[string]any{"cash_balance": wallet.CashBalance.Sub(totalCost).String()},
			Context: map[string]any{
				"trade":  "BUY",
				"ticker": in.Ticker,
				"cost":   totalCost.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, ledgerEntry)
	return s.GetDashboard(ctx, walletID, actor)
}

// Sell executes a liquidation against an existing position. The average
// price never changes on a sell; a fully sold position row is deleted.
func (s *Service) Sell(ctx context.Context, walletID uuid.UUID, in TradeInput, actor domain.Actor) (*domain.WalletView, error) {
	if err := s.checkIdempotency(ctx, walletID, in.IdempotencyKey); err != nil {
		return nil, err
	}
	if err := s.authorizeWallet(ctx, walletID, actor); err != nil {
		return nil, err
	}

	// No lazy creation on sell: you cannot liquidate what the catalog has
	// never seen.
	asset, err := s.assetRepo.AssetByTicker(ctx, in.Ticker)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrUnknownAsset
		}
		return nil, fmt.Errorf("lookup asset %s: %w", in.Ticker, err)
	}

	totalProceeds := in.Quantity.Mul(in.Price)
	assetID := asset.ID
	quantity := in.Quantity
	price := in.Price
	ledgerEntry := &domain.Transaction{
		ID:             uuid.New(),
		WalletID:       walletID,
		AssetID:        &assetID,
		Type:           domain.TransactionTypeSell,
		Quantity:       &quantity,
		Price:          &price,
		TotalValue:     totalProceeds,
		ExecutedAt:     in.Date,
		IdempotencyKey: in.IdempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}

	err = s.ledger.InTx(ctx, func(tx interfaces.LedgerTx) error {
		wallet, err := tx.WalletForUpdate(ctx, walletID)
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				return ErrWalletNotFound
			}
			return err
		}

		position, err := tx.PositionForUpdate(ctx, walletID, asset.ID)
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				return ErrNoPosition
			}
			return err
		}
		if position.Quantity.LessThan(in.Quantity) {
			return ErrInsufficientQuantity
		}

		remaining := position.Quantity.Sub(in.Quantity)
		action := domain.AuditActionUpdate
		var after map[string]any
		if remaining.IsZero() {
			if err := tx.DeletePosition(ctx, position.ID); err != nil {
				return err
			}
			action = domain.AuditActionDelete
		} else {
			updated := *position
			updated.Quantity = remaining
			updated.UpdatedAt = time.Now().UTC()
			if err := tx.UpsertPosition(ctx, &updated); err != nil {
				return err
			}
			after = map[string]any{
				"quantity":      remaining.String(),
				"average_price": position.AveragePrice.String(),
			}
		}

		if err := tx.UpdateWalletBalance(ctx, walletID, wallet.CashBalance.Add(totalProceeds)); err != nil {
			return err
		}
		if err := s.insertLedgerEntry(ctx, tx, ledgerEntry); err != nil {
			return err
		}

		if err := s.recorder.Record(ctx, tx, audit.Entry{
			TableName: "positions",
			RecordID:  position.ID,
			Action:    action,
			Actor:     actor,
			Before: map[string]any{
				"quantity":      position.Quantity.String(),
				"average_price": position.AveragePrice.String(),
			},
			After:   after,
			Context: map[string]any{"trade": "SELL", "ticker": in.Ticker},
		}); err != nil {
			return err
		}

		return s.recorder.Record(ctx, tx, audit.Entry{
			TableName: "wallets",
			RecordID:  walletID,
			Action:    domain.AuditActionUpdate,
			Actor:     actor,
			Before:    map[string]any{"cash_balance": wallet.CashBalance.String()},
			After:     map[string]any{"cash_balance": wallet.CashBalance.Add(totalProceeds).String()},
			Context: map[string]any{
				"trade":    "SELL",
				"ticker":   in.Ticker,
				"proceeds": totalProceeds.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, ledgerEntry)
	return s.GetDashboard(ctx, walletID, actor)
}

// Transactions returns the wallet's ledger history, newest first.
func (s *Service) Transactions(ctx context.Context, walletID uuid.UUID, actor domain.Actor) ([]domain.TransactionView, error) {
	if err := s.authorizeWallet(ctx, walletID, actor); err != nil {
		return nil, err
	}
	entries, err := s.ledger.TransactionsByWallet(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	views := make([]domain.TransactionView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, domain.NewTransactionView(entry))
	}
	return views, nil
}

func (s *Service) authorizeWallet(ctx context.Context, walletID uuid.UUID, actor domain.Actor) error {
	ok, err := s.access.CanAccessWallet(ctx, walletID, actor.ID)
	if err != nil {
		return fmt.Errorf("check wallet access: %w", err)
	}
	if !ok {
		return ErrAccessDenied
	}
	return nil
}

func (s *Service) authorizeClient(ctx context.Context, clientID uuid.UUID, actor domain.Actor) error {
	ok, err := s.access.CanAccessClient(ctx, clientID, actor.ID)
	if err != nil {
		return fmt.Errorf("check client access: %w", err)
	}
	if !ok {
		return ErrAccessDenied
	}
	return nil
}

// checkIdempotency short-circuits a replayed operation before any mutation
// is attempted. The unique constraint on (wallet, key) remains the safety
// net for two submissions racing past this check.
func (s *Service) checkIdempotency(ctx context.Context, walletID uuid.UUID, key string) error {
	_, err := s.ledger.TransactionByIdempotencyKey(ctx, walletID, key)
	if err == nil {
		return ErrDuplicateOperation
	}
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("check idempotency key: %w", err)
}

// insertLedgerEntry books the transaction row, translating the constraint
// violation from a lost idempotency race into the same failure the pre-check
// produces.
func (s *Service) insertLedgerEntry(ctx context.Context, tx interfaces.LedgerTx, entry *domain.Transaction) error {
	if err := tx.InsertTransaction(ctx, entry); err != nil {
		if errors.Is(err, interfaces.ErrConflict) {
			return ErrDuplicateOperation
		}
		return err
	}
	return nil
}

// currentPrices batch-fetches prices for all held tickers. A provider
// failure degrades the dashboard to cost basis instead of failing the read.
func (s *Service) currentPrices(ctx context.Context, positions []domain.PositionWithAsset) map[string]decimal.Decimal {
	if len(positions) == 0 {
		return nil
	}
	tickers := make([]string, 0, len(positions))
	for _, position := range positions {
		tickers = append(tickers, position.Asset.Ticker)
	}
	prices, err := s.marketData.BatchPrices(ctx, tickers)
	if err != nil {
		s.logger.WithError(err).Warn("price lookup failed, serving cost basis")
		return nil
	}
	return prices
}

func (s *Service) publish(ctx context.Context, entry *domain.Transaction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransaction(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("transaction_id", entry.ID).Warn("failed to publish transaction event")
	}
}

// weightedAveragePrice is the quantity-weighted mean acquisition price after
// adding a fill to an existing position.
func weightedAveragePrice(existingQty, existingAvg, fillQty, fillPrice decimal.Decimal) decimal.Decimal {
	if existingQty.IsZero() {
		return fillPrice
	}
	newQty := existingQty.Add(fillQty)
	return existingQty.Mul(existingAvg).Add(fillQty.Mul(fillPrice)).Div(newQty)
}
