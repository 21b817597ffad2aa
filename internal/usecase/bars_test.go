package usecase

import (
	"context"
	"testing"

	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"
	svcmetrics "StockBrain/internal/service/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBars(t *testing.T) {
	src := &fakeSource{bars: map[string][]models.PriceBar{"AAPL": seriesBars(10, 1)}}
	uc := NewBarsUseCase(src)

	bars, err := uc.GetBars(context.Background(), GetBarsParams{Symbol: "aapl", N: 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{8, 9, 10}, models.Prices(bars))

	_, err = uc.GetBars(context.Background(), GetBarsParams{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = uc.GetBars(context.Background(), GetBarsParams{Symbol: "X"})
	assert.ErrorIs(t, err, domrepo.ErrSymbolNotFound)
}

func TestBarsIngestHandler(t *testing.T) {
	w := &fakeWriter{}
	inv := &fakeInvalidator{}
	h := NewBarsIngestHandler("bars", w, newFakeMetrics()).WithInvalidator(inv)
	assert.Equal(t, "bars", h.Topic())
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, []byte(`{"symbol":"aapl","interval":"1h","bars":[{"date":"2024-01-01","price":10},{"date":"2024-01-02","price":11}]}`)))
	assert.Equal(t, "AAPL", w.symbol)
	assert.Equal(t, domrepo.Interval1Hour, w.interval)
	assert.Len(t, w.bars, 2)
	assert.Equal(t, []string{"AAPL"}, inv.symbols)

	require.NoError(t, h.Handle(ctx, []byte(`{"symbol":"MSFT","date":"2024-01-03","close":301.5,"volume":1200}`)))
	assert.Equal(t, domrepo.Interval1Day, w.interval)
	require.Len(t, w.bars, 1)
	assert.Equal(t, 301.5, w.bars[0].Price)

	// malformed messages are not worth retrying
	var perm *backoff.PermanentError
	assert.ErrorAs(t, h.Handle(ctx, []byte(`{`)), &perm)
	assert.ErrorAs(t, h.Handle(ctx, []byte(`{"symbol":"MSFT"}`)), &perm)

	w.err = errBoom
	assert.ErrorIs(t, h.Handle(ctx, []byte(`{"symbol":"MSFT","date":"2024-01-03","price":1}`)), errBoom)
}

func TestBarsIngestHandlerRejectsInvalidBars(t *testing.T) {
	w := &fakeWriter{}
	h := NewBarsIngestHandler("bars", w, newFakeMetrics())
	ctx := context.Background()

	before := testutil.ToFloat64(svcmetrics.IngestedBars.WithLabelValues("invalid"))
	require.NoError(t, h.Handle(ctx, []byte(`{"symbol":"AAPL","bars":[{"date":"2024-01-01","price":10},{"date":"","price":11},{"date":"2024-01-03","price":0}]}`)))
	require.Len(t, w.bars, 1)
	assert.Equal(t, "2024-01-01", w.bars[0].Date)
	assert.Equal(t, before+2, testutil.ToFloat64(svcmetrics.IngestedBars.WithLabelValues("invalid")))

	w.bars = nil
	var perm *backoff.PermanentError
	err := h.Handle(ctx, []byte(`{"symbol":"AAPL","bars":[{"date":"2024-01-01","price":-1}]}`))
	assert.ErrorAs(t, err, &perm)
	assert.Nil(t, w.bars)
	assert.Equal(t, before+3, testutil.ToFloat64(svcmetrics.IngestedBars.WithLabelValues("invalid")))

	assert.ErrorAs(t, h.Handle(ctx, []byte(`{"symbol":"   ","date":"2024-01-01","price":1}`)), &perm)
}
