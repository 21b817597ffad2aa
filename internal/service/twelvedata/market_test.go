package twelvedata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	drepo "StockBrain/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRouteClient serves body on path and records the query of the last request.
func newRouteClient(t *testing.T, path, body string) (*Client, *url.Values) {
	t.Helper()
	var last url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, path, r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("apikey"))
		last = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "key", BaseURL: srv.URL}, nil), &last
}

func TestSearchSymbolsKeepsUSCommonStock(t *testing.T) {
	c, q := newRouteClient(t, "/symbol_search", `{"data": [
		{"symbol": "AAPL", "instrument_name": "Apple Inc", "exchange": "NASDAQ", "instrument_type": "Common Stock", "country": "United States", "currency": "USD"},
		{"symbol": "AAPL", "instrument_name": "Apple Inc", "exchange": "BMV", "instrument_type": "Common Stock", "country": "Mexico", "currency": "MXN"},
		{"symbol": "APLE", "instrument_name": "Apple Hospitality REIT", "exchange": "NYSE", "instrument_type": "REIT", "country": "United States", "currency": "USD"},
		{"symbol": "AAPU", "instrument_name": "Direxion AAPL Bull", "exchange": "NASDAQ", "instrument_type": "ETF", "country": "United States", "currency": "USD"},
		{"symbol": "APPL", "instrument_name": "Appleseed", "exchange": "OTC", "type": "Common Stock", "country": "US", "currency_base": "USD"}
	], "status": "ok"}`)

	got, err := c.SearchSymbols(context.Background(), " apple ", 10)
	require.NoError(t, err)
	assert.Equal(t, "apple", q.Get("symbol"))
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, "NASDAQ", got[0].Exchange)
	assert.Equal(t, "Apple Inc", got[0].Name)
	assert.Equal(t, "APPL", got[1].Symbol)
	assert.Equal(t, "USD", got[1].Currency)

	got, err = c.SearchSymbols(context.Background(), "apple", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSearchSymbolsEmptyQuery(t *testing.T) {
	c, _ := newRouteClient(t, "/symbol_search", `{}`)
	got, err := c.SearchSymbols(context.Background(), "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetQuotesSingle(t *testing.T) {
	c, q := newRouteClient(t, "/quote", `{
		"symbol": "AAPL", "name": "Apple Inc", "datetime": "2024-01-04",
		"close": "181.91", "volume": "71983600", "previous_close": "184.25",
		"change": "-2.34", "percent_change": "-1.27"
	}`)

	got, err := c.GetQuotes(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Get("symbol"))
	require.Len(t, got, 1)
	assert.Equal(t, "Apple Inc", got[0].Name)
	assert.Equal(t, 181.91, got[0].Price)
	assert.Equal(t, -2.34, got[0].Change)
	assert.Equal(t, -1.27, got[0].ChangePercent)
	assert.Equal(t, 71983600.0, got[0].Volume)
	assert.Equal(t, "2024-01-04", got[0].Date)
}

func TestGetQuotesMultiSkipsRejected(t *testing.T) {
	c, q := newRouteClient(t, "/quote", `{
		"AAPL": {"symbol": "AAPL", "close": "110", "previous_close": "100"},
		"NOPE": {"code": 404, "message": "symbol not found", "status": "error"},
		"MSFT": {"symbol": "MSFT", "close": "300", "change": "3", "percent_change": "1.01"}
	}`)

	got, err := c.GetQuotes(context.Background(), []string{"MSFT", "NOPE", "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, "MSFT,NOPE,AAPL", q.Get("symbol"))
	require.Len(t, got, 2)
	assert.Equal(t, "MSFT", got[0].Symbol)
	assert.Equal(t, 3.0, got[0].Change)
	assert.Equal(t, "AAPL", got[1].Symbol)
	assert.InDelta(t, 10.0, got[1].Change, 1e-9)
	assert.InDelta(t, 10.0, got[1].ChangePercent, 1e-9)
}

func TestGetQuotesVendorError(t *testing.T) {
	c, _ := newRouteClient(t, "/quote", `{"code": 404, "message": "symbol not found", "status": "error"}`)
	_, err := c.GetQuotes(context.Background(), []string{"NOPE"})
	assert.ErrorIs(t, err, drepo.ErrSymbolNotFound)

	c, _ = newRouteClient(t, "/quote", `{"code": 401, "message": "invalid api key", "status": "error"}`)
	_, err = c.GetQuotes(context.Background(), []string{"AAPL", "MSFT"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, drepo.ErrSymbolNotFound)
}
