package twelvedata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	drepo "StockBrain/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/time_series", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("apikey"))
		assert.Equal(t, "1day", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "key", BaseURL: srv.URL + "/"}, nil)
}

func TestGetLatestNBarsReversesOrder(t *testing.T) {
	c := newTestClient(t, `{
		"meta": {"symbol": "AAPL"},
		"values": [
			{"datetime": "2024-01-04", "open": "181.9", "high": "183.0", "low": "180.8", "close": "181.91", "volume": "71983600"},
			{"datetime": "2024-01-03", "open": "184.2", "high": "185.8", "low": "183.4", "close": "184.25", "volume": "58414500"},
			{"datetime": "2024-01-02", "open": "187.1", "high": "188.4", "low": "183.8", "close": "185.64"}
		],
		"status": "ok"
	}`)

	bars, err := c.GetLatestNBars(context.Background(), "AAPL", 3, drepo.Interval1Day)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, "2024-01-02", bars[0].Date)
	assert.Equal(t, 185.64, bars[0].Price)
	assert.Equal(t, 0.0, bars[0].Volume)
	assert.Equal(t, "2024-01-04", bars[2].Date)
	assert.Equal(t, 71983600.0, bars[2].Volume)
}

func TestGetLatestNBarsSkipsBadRows(t *testing.T) {
	c := newTestClient(t, `{"values": [
		{"datetime": "2024-01-03", "close": "abc"},
		{"datetime": "2024-01-02", "close": "10.5"}
	], "status": "ok"}`)

	bars, err := c.GetLatestNBars(context.Background(), "X", 2, drepo.Interval1Day)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 10.5, bars[0].High)
}

func TestGetLatestNBarsVendorError(t *testing.T) {
	c := newTestClient(t, `{"code": 404, "message": "symbol not found", "status": "error"}`)
	_, err := c.GetLatestNBars(context.Background(), "NOPE", 10, drepo.Interval1Day)
	assert.ErrorIs(t, err, drepo.ErrSymbolNotFound)

	c = newTestClient(t, `{"code": 429, "message": "run out of API credits", "status": "error"}`)
	_, err = c.GetLatestNBars(context.Background(), "AAPL", 10, drepo.Interval1Day)
	require.Error(t, err)
	assert.NotErrorIs(t, err, drepo.ErrSymbolNotFound)
}
