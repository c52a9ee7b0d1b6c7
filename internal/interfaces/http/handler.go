// @title           Portfolio Ledger API
// @version         1.0
// @description     Client and portfolio management backend for a financial advisory platform

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"main/internal/application/service/assets"
	portfoliosvc "main/internal/application/service/portfolio"
	domain "main/internal/domain/entity/portfolio"
)

const (
	walletsBasePath = "/api/v1/wallets"

	actorContextKey = "actor"

	actorIDHeader   = "X-Actor-Id"
	actorRoleHeader = "X-Actor-Role"
)

var (
	errMissingActor    = errors.New("actor identity headers required")
	errInvalidWalletID = errors.New("invalid wallet id")
	errInvalidClientID = errors.New("invalid client id")
)

type Handler struct {
	router    *gin.Engine
	portfolio *portfoliosvc.Service
}

func NewHandler(portfolio *portfoliosvc.Service) *Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	h := &Handler{
		router:    router,
		portfolio: portfolio,
	}
	h.registerRoutes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	wallets := h.router.Group(walletsBasePath)
	wallets.Use(actorMiddleware())
	{
		wallets.POST("/", h.createWallet)
		wallets.GET("/", h.listWallets)
		wallets.GET("/:id", h.getWallet)
		wallets.GET("/:id/dashboard", h.getDashboard)
		wallets.GET("/:id/transactions", h.listTransactions)
		wallets.POST("/:id/cash", h.cashOperation)
		wallets.POST("/:id/buy", h.buy)
		wallets.POST("/:id/sell", h.sell)
	}
}

// actorMiddleware reads the authenticated identity the gateway attaches to
// every request. Requests without it never reach the ledger.
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, err := uuid.Parse(c.GetHeader(actorIDHeader))
		role := c.GetHeader(actorRoleHeader)
		if err != nil || role == "" {
			writeError(c, http.StatusUnauthorized, errMissingActor)
			c.Abort()
			return
		}
		c.Set(actorContextKey, domain.Actor{ID: actorID, Role: role})
		c.Next()
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	value, _ := c.Get(actorContextKey)
	actor, _ := value.(domain.Actor)
	return actor
}

// --- Payloads ---

type createWalletPayload struct {
	ClientID           string          `json:"client_id" binding:"required,uuid"`
	Name               string          `json:"name" binding:"required,min=2,max=100"`
	Description        string          `json:"description" binding:"max=500"`
	Currency           string          `json:"currency" binding:"omitempty,len=3"`
	InitialCashBalance decimal.Decimal `json:"initial_cash_balance"`
}

func (p createWalletPayload) toInput() (portfoliosvc.CreateWalletInput, error) {
	clientID, err := uuid.Parse(p.ClientID)
	if err != nil {
		return portfoliosvc.CreateWalletInput{}, errInvalidClientID
	}
	if p.InitialCashBalance.IsNegative() {
		return portfoliosvc.CreateWalletInput{}, errors.New("initial_cash_balance must not be negative")
	}
	return portfoliosvc.CreateWalletInput{
		ClientID:           clientID,
		Name:               p.Name,
		Description:        p.Description,
		Currency:           p.Currency,
		InitialCashBalance: p.InitialCashBalance,
	}, nil
}

type cashOperationPayload struct {
	Type           string          `json:"type" binding:"required,oneof=DEPOSIT WITHDRAWAL"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Date           time.Time       `json:"date" binding:"required"`
	IdempotencyKey string          `json:"idempotency_key" binding:"required"`
}

func (p cashOperationPayload) toInput() (portfoliosvc.CashOperationInput, error) {
	if !p.Amount.IsPositive() {
		return portfoliosvc.CashOperationInput{}, errors.New("amount must be positive")
	}
	return portfoliosvc.CashOperationInput{
		Type:           domain.TransactionType(p.Type),
		Amount:         p.Amount,
		Date:           p.Date,
		IdempotencyKey: p.IdempotencyKey,
	}, nil
}

type tradePayload struct {
	Ticker         string          `json:"ticker" binding:"required,min=1,max=20"`
	Quantity       decimal.Decimal `json:"quantity" binding:"required"`
	Price          decimal.Decimal `json:"price" binding:"required"`
	Date           time.Time       `json:"date" binding:"required"`
	IdempotencyKey string          `json:"idempotency_key" binding:"required"`
}

func (p tradePayload) toInput() (portfoliosvc.TradeInput, error) {
	if !p.Quantity.IsPositive() {
		return portfoliosvc.TradeInput{}, errors.New("quantity must be positive")
	}
	if !p.Price.IsPositive() {
		return portfoliosvc.TradeInput{}, errors.New("price must be positive")
	}
	return portfoliosvc.TradeInput{
		Ticker:         p.Ticker,
		Quantity:       p.Quantity,
		Price:          p.Price,
		Date:           p.Date,
		IdempotencyKey: p.IdempotencyKey,
	}, nil
}

// --- Wallet handlers ---

// createWallet opens a wallet for a client
// @Summary      Create wallet
// @Description  Create a wallet for a client, optionally funded with an initial deposit
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        wallet  body      createWalletPayload  true  "Wallet data"
// @Success      201     {object}  portfolio.WalletView
// @Failure      400     {object}  map[string]string
// @Failure      403     {object}  map[string]string
// @Router       /wallets [post]
func (h *Handler) createWallet(c *gin.Context) {
	var payload createWalletPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	input, err := payload.toInput()
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	view, err := h.portfolio.CreateWallet(c.Request.Context(), input, actorFrom(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// listWallets lists wallets accessible to the actor
// @Summary      List wallets
// @Description  List all wallets the actor may access, optionally filtered by client
// @Tags         wallets
// @Produce      json
// @Param        client_id  query     string  false  "Client UUID"
// @Success      200        {array}   portfolio.WalletSummary
// @Failure      400        {object}  map[string]string
// @Router       /wallets [get]
func (h *Handler) listWallets(c *gin.Context) {
	var clientID *uuid.UUID
	if raw := c.Query("client_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, errInvalidClientID)
			return
		}
		clientID = &parsed
	}
	summaries, err := h.portfolio.ListWallets(c.Request.Context(), actorFrom(c), clientID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// getWallet returns one wallet summary
// @Summary      Get wallet
// @Description  Get a wallet summary without pricing
// @Tags         wallets
// @Produce      json
// @Param        id   path      string  true  "Wallet UUID"
// @Success      200  {object}  portfolio.WalletSummary
// @Failure      403  {object}  map[string]string
// @Router       /wallets/{id} [get]
func (h *Handler) getWallet(c *gin.Context) {
	walletID, err := parseWalletID(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	summary, err := h.portfolio.GetWallet(c.Request.Context(), walletID, actorFrom(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// getDashboard returns the priced wallet dashboard
// @Summary      Wallet dashboard
// @Description  Wallet with positions priced against current market data
// @Tags         wallets
// @Produce      json
// @Param        id   path      string  true  "Wallet UUID"
// @Success      200  {object}  portfolio.WalletView
// @Failure      403  {object}  map[string]string
// @Router       /wallets/{id}/dashboard [get]
func (h *Handler) getDashboard(c *gin.Context) {
	walletID, err := parseWalletID(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	view, err := h.portfolio.GetDashboard(c.Request.Context(), walletID, actorFrom(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// listTransactions returns the wallet's ledger history
// @Summary      List transactions
// @Description  Ledger history for a wallet, newest first
// @Tags         wallets
// @Produce      json
// @Param        id   path      string  true  "Wallet UUID"
// @Success      200  {array}   portfolio.TransactionView
// @Failure      403  {object}  map[string]string
// @Router       /wallets/{id}/transactions [get]
func (h *Handler) listTransactions(c *gin.Context) {
	walletID, err := parseWalletID(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	views, err := h.portfolio.Transactions(c.Request.Context(), walletID, actorFrom(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// cashOperation books a deposit or withdrawal
// @Summary      Cash operation
// @Description  Deposit to or withdraw from the wallet's cash balance
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        id         path      string                true  "Wallet UUID"
// @Param        operation  body      cashOperationPayload  true  "Cash operation"
// @Success      200        {object}  portfolio.WalletView
// @Failure      400        {object}  map[string]string
// @Failure      403        {object}  map[string]string
// @Failure      409        {object}  map[string]string
// @Router       /wallets/{id}/cash [post]
func (h *Handler) cashOperation(c *gin.Context) {
	walletID, err := parseWalletID(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	var payload cashOperationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	input, err := payload.toInput()
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	view, err := h.portfolio.CashOperation(c.Request.Context(), walletID, input, actorFrom(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// buy executes a purchase
// @Summary      Buy
// @Description  Buy a quantity of a ticker at a price, resolving the asset on first reference
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        id     path      string        true  "Wallet UUID"
// @Param        trade  body      tradePayload  true  "Trade data"
// @Success      200    {object}  portfolio.WalletView
// @Failure      400    {object}  map[string]string
// @Failure      403    {object}  map[string]string
// @Failure      404    {object}  map[string]string
// @Failure      409    {object}  map[string]string
// @Router       /wallets/{id}/buy [post]
func (h *Handler) buy(c *gin.Context) {
	h.trade(c, h.portfolio.Buy)
}

// sell executes a liquidation
// @Summary      Sell
// @Description  Sell a held quantity of a ticker at a price
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        id     path      string        true  "Wallet UUID"
// @Param        trade  body      tradePayload  true  "Trade data"
// @Success      200    {object}  portfolio.WalletView
// @Failure      400    {object}  map[string]string
// @Failure      403    {object}  map[string]string
// @Failure      404    {object}  map[string]string
// @Failure      409    {object}  map[string]string
// @Router       /wallets/{id}/sell [post]
func (h *Handler) sell(c *gin.Context) {
	h.trade(c, h.portfolio.Sell)
}

type tradeFunc func(ctx context.Context, walletID uuid.UUID, in portfoliosvc.TradeInput, actor domain.Actor) (*domain.WalletView, error)

func (h *Handler) trade(c *gin.Context, execute tradeFunc) {
	walletID, err := parseWalletID(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	var payload tradePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	input, err := payload.toInput()
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	view, err := execute(c.Request.Context(), walletID, input, actorFrom(c))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func parseWalletID(c *gin.Context) (uuid.UUID, error) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errInvalidWalletID
	}
	return walletID, nil
}

func writeError(c *gin.Context, status int, err error) {
	if err == nil {
		status = http.StatusInternalServerError
		err = errors.New("unknown error")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// writeDomainError maps ledger failures onto stable status codes.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, portfoliosvc.ErrAccessDenied):
		writeError(c, http.StatusForbidden, err)
	case errors.Is(err, portfoliosvc.ErrDuplicateOperation):
		writeError(c, http.StatusConflict, err)
	case errors.Is(err, portfoliosvc.ErrInsufficientFunds),
		errors.Is(err, portfoliosvc.ErrInsufficientQuantity),
		errors.Is(err, portfoliosvc.ErrNoPosition):
		writeError(c, http.StatusBadRequest, err)
	case errors.Is(err, portfoliosvc.ErrUnknownAsset),
		errors.Is(err, portfoliosvc.ErrWalletNotFound),
		errors.Is(err, assets.ErrAssetLookup):
		writeError(c, http.StatusNotFound, err)
	default:
		writeError(c, http.StatusInternalServerError, err)
	}
}
