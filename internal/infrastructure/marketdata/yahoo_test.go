package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	domain "main/internal/domain/entity/portfolio"
	"main/internal/domain/interfaces"
)

func testClient(baseURL string) *Client {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewClient(baseURL, nil, time.Minute, logger)
}

func quoteServer(t *testing.T, wantSymbols string, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != quotePath {
			t.Errorf("request path = %s, want %s", r.URL.Path, quotePath)
		}
		if got := r.URL.Query().Get("symbols"); wantSymbols != "" && got != wantSymbols {
			t.Errorf("symbols = %s, want %s", got, wantSymbols)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
}

func TestClient_Metadata_Stock(t *testing.T) {
	server := quoteServer(t, "PETR4.SA", `{
		"quoteResponse": {
			"result": [{
				"symbol": "PETR4.SA",
				"quoteType": "EQUITY",
				"shortName": "PETROBRAS PN",
				"sector": "Energy"
			}]
		}
	}`)
	defer server.Close()

	meta, err := testClient(server.URL).Metadata(context.Background(), "PETR4")
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if meta.Type != domain.AssetTypeStock {
		t.Errorf("Metadata() type = %s, want %s", meta.Type, domain.AssetTypeStock)
	}
	if meta.Name != "PETROBRAS PN" {
		t.Errorf("Metadata() name = %s, want PETROBRAS PN", meta.Name)
	}
	if meta.Sector != "Energy" {
		t.Errorf("Metadata() sector = %s, want Energy", meta.Sector)
	}
}

func TestClient_Metadata_Option(t *testing.T) {
	expire := time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC)
	server := quoteServer(t, "", fmt.Sprintf(`{
		"quoteResponse": {
			"result": [{
				"symbol": "PETRL245.SA",
				"quoteType": "OPTION",
				"shortName": "PETR CALL",
				"underlyingSymbol": "PETR4",
				"strike": 24.5,
				"expireDate": %d,
				"optionType": "call"
			}]
		}
	}`, expire.Unix()))
	defer server.Close()

	meta, err := testClient(server.URL).Metadata(context.Background(), "PETRL245")
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if meta.Type != domain.AssetTypeOption {
		t.Errorf("Metadata() type = %s, want %s", meta.Type, domain.AssetTypeOption)
	}
	if meta.UnderlyingSymbol != "PETR4" {
		t.Errorf("Metadata() underlying = %s, want PETR4", meta.UnderlyingSymbol)
	}
	if meta.OptionType != domain.OptionTypeCall {
		t.Errorf("Metadata() option type = %s, want %s", meta.OptionType, domain.OptionTypeCall)
	}
	if meta.ExerciseType != domain.ExerciseTypeAmerican {
		t.Errorf("Metadata() exercise type = %s, want %s", meta.ExerciseType, domain.ExerciseTypeAmerican)
	}
	if !meta.StrikePrice.Equal(decimal.NewFromFloat(24.5)) {
		t.Errorf("Metadata() strike = %s, want 24.5", meta.StrikePrice)
	}
	if !meta.ExpirationDate.Equal(expire) {
		t.Errorf("Metadata() expiry = %s, want %s", meta.ExpirationDate, expire)
	}
}

func TestClient_Metadata_UnknownTicker(t *testing.T) {
	server := quoteServer(t, "", `{"quoteResponse": {"result": []}}`)
	defer server.Close()

	_, err := testClient(server.URL).Metadata(context.Background(), "NOPE11")
	if !errors.Is(err, interfaces.ErrTickerNotFound) {
		t.Fatalf("Metadata() error = %v, want %v", err, interfaces.ErrTickerNotFound)
	}
}

func TestClient_Metadata_NameFallsBackToTicker(t *testing.T) {
	server := quoteServer(t, "", `{
		"quoteResponse": {
			"result": [{"symbol": "XPTO3.SA", "quoteType": "EQUITY"}]
		}
	}`)
	defer server.Close()

	meta, err := testClient(server.URL).Metadata(context.Background(), "XPTO3")
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if meta.Name != "XPTO3" {
		t.Errorf("Metadata() name = %s, want XPTO3", meta.Name)
	}
}

func TestClient_BatchPrices(t *testing.T) {
	server := quoteServer(t, "PETR4.SA,VALE3.SA,NOPE11.SA", `{
		"quoteResponse": {
			"result": [
				{"symbol": "PETR4.SA", "regularMarketPrice": 38.52},
				{"symbol": "VALE3.SA", "regularMarketPrice": 61.2},
				{"symbol": "NOPE11.SA"}
			]
		}
	}`)
	defer server.Close()

	prices, err := testClient(server.URL).BatchPrices(context.Background(), []string{"PETR4", "VALE3", "NOPE11"})
	if err != nil {
		t.Fatalf("BatchPrices() error = %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("BatchPrices() = %d prices, want 2", len(prices))
	}
	if !prices["PETR4"].Equal(decimal.NewFromFloat(38.52)) {
		t.Errorf("BatchPrices() PETR4 = %s, want 38.52", prices["PETR4"])
	}
	if !prices["VALE3"].Equal(decimal.NewFromFloat(61.2)) {
		t.Errorf("BatchPrices() VALE3 = %s, want 61.2", prices["VALE3"])
	}
	if _, ok := prices["NOPE11"]; ok {
		t.Error("BatchPrices() priced a ticker without a market price")
	}
}

func TestClient_BatchPrices_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	if _, err := testClient(server.URL).BatchPrices(context.Background(), []string{"PETR4"}); err == nil {
		t.Fatal("BatchPrices() error = nil, want upstream failure")
	}
}

func TestToYahooTicker(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PETR4", "PETR4.SA"},
		{"VALE3", "VALE3.SA"},
		{"AAPL.MX", "AAPL.MX"},
		{"PETR4.SA", "PETR4.SA"},
	}
	for _, tt := range tests {
		if got := toYahooTicker(tt.in); got != tt.want {
			t.Errorf("toYahooTicker(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
