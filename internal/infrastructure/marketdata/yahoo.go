package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	entity "main/internal/domain/entity/marketdata"
	domain "main/internal/domain/entity/portfolio"
	"main/internal/domain/interfaces"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	quotePath = "/v7/finance/quote"
	// Brazilian tickers are quoted with the B3 suffix on Yahoo.
	brazilSuffix = ".SA"

	priceCachePrefix = "price:"
)

// Client resolves instrument metadata and current prices from the Yahoo
// Finance quote API. Prices are cached in redis with a short TTL; the cache
// is optional and a nil redis client disables it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     *logrus.Entry
}

var _ interfaces.MarketDataProvider = (*Client)(nil)

func NewClient(baseURL string, cache *redis.Client, cacheTTL time.Duration, logger *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger.WithField("component", "yahoo_marketdata"),
	}
}

type yahooQuote struct {
	Symbol             string   `json:"symbol"`
	QuoteType          string   `json:"quoteType"`
	ShortName          string   `json:"shortName"`
	LongName           string   `json:"longName"`
	Sector             string   `json:"sector"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	UnderlyingSymbol   string   `json:"underlyingSymbol"`
	Strike             *float64 `json:"strike"`
	ExpireDate         *int64   `json:"expireDate"`
	OptionType         string   `json:"optionType"`
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []yahooQuote `json:"result"`
	} `json:"quoteResponse"`
}

// Metadata resolves instrument metadata for one ticker. Returns
// interfaces.ErrTickerNotFound when Yahoo does not know the symbol.
func (c *Client) Metadata(ctx context.Context, ticker string) (*entity.AssetMetadata, error) {
	quotes, err := c.fetchQuotes(ctx, []string{toYahooTicker(ticker)})
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrTickerNotFound, ticker)
	}
	quote := quotes[0]

	meta := &entity.AssetMetadata{
		Ticker: ticker,
		Type:   domain.AssetTypeStock,
		Name:   quote.ShortName,
		Sector: quote.Sector,
	}
	if meta.Name == "" {
		meta.Name = quote.LongName
	}
	if meta.Name == "" {
		meta.Name = ticker
	}

	if quote.QuoteType == "OPTION" {
		meta.Type = domain.AssetTypeOption
		meta.UnderlyingSymbol = quote.UnderlyingSymbol
		meta.OptionType = domain.OptionType(strings.ToUpper(quote.OptionType))
		// The quote API does not report exercise style; Brazilian listed
		// options are American by default.
		meta.ExerciseType = domain.ExerciseTypeAmerican
		if quote.Strike != nil {
			meta.StrikePrice = decimal.NewFromFloat(*quote.Strike)
		}
		if quote.ExpireDate != nil {
			meta.ExpirationDate = time.Unix(*quote.ExpireDate, 0).UTC()
		}
	}

	return meta, nil
}

// BatchPrices resolves current prices for many tickers in one quote call.
// Tickers without a market price are omitted. When the upstream call fails
// but some prices were cached, the cached subset is served instead of an
// error.
func (c *Client) BatchPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal, len(tickers))

	var missing []string
	for _, ticker := range tickers {
		if price, ok := c.cachedPrice(ctx, ticker); ok {
			result[ticker] = price
			continue
		}
		missing = append(missing, ticker)
	}
	if len(missing) == 0 {
		return result, nil
	}

	symbols := make([]string, 0, len(missing))
	for _, ticker := range missing {
		symbols = append(symbols, toYahooTicker(ticker))
	}

	quotes, err := c.fetchQuotes(ctx, symbols)
	if err != nil {
		if len(result) > 0 {
			c.logger.WithError(err).Warn("batch quote failed, serving cached prices only")
			return result, nil
		}
		return nil, err
	}

	bySymbol := make(map[string]yahooQuote, len(quotes))
	for _, quote := range quotes {
		bySymbol[quote.Symbol] = quote
	}
	for i, ticker := range missing {
		quote, ok := bySymbol[symbols[i]]
		if !ok || quote.RegularMarketPrice == nil {
			continue
		}
		price := decimal.NewFromFloat(*quote.RegularMarketPrice)
		result[ticker] = price
		c.storePrice(ctx, ticker, price)
	}

	return result, nil
}

func (c *Client) fetchQuotes(ctx context.Context, symbols []string) ([]yahooQuote, error) {
	endpoint := fmt.Sprintf("%s%s?symbols=%s", c.baseURL, quotePath, url.QueryEscape(strings.Join(symbols, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, interfaces.ErrTickerNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch quotes: unexpected status %d", resp.StatusCode)
	}

	var payload quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}
	return payload.QuoteResponse.Result, nil
}

func (c *Client) cachedPrice(ctx context.Context, ticker string) (decimal.Decimal, bool) {
	if c.cache == nil {
		return decimal.Decimal{}, false
	}
	raw, err := c.cache.Get(ctx, priceCachePrefix+ticker).Result()
	if err != nil {
		return decimal.Decimal{}, false
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return price, true
}

func (c *Client) storePrice(ctx context.Context, ticker string, price decimal.Decimal) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, priceCachePrefix+ticker, price.String(), c.cacheTTL).Err(); err != nil {
		c.logger.WithError(err).WithField("ticker", ticker).Debug("failed to cache price")
	}
}

func toYahooTicker(ticker string) string {
	if strings.Contains(ticker, ".") {
		return ticker
	}
	return ticker + brazilSuffix
}
