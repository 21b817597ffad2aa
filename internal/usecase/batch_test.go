package usecase

import (
	"context"
	"testing"

	"StockBrain/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchForecast(t *testing.T) {
	src := &fakeSource{bars: map[string][]models.PriceBar{
		"AAPL": seriesBars(40, 100),
		"MSFT": seriesBars(40, 300),
	}}
	uc := newTestUseCase(src, &stubForecaster{}, &fakePublisher{}, newFakeMetrics())
	batch := NewBatchForecastUseCase(uc, 2)

	items, err := batch.Run(context.Background(), BatchParams{
		Symbols: []string{"msft", "NOPE", "AAPL", "MSFT", " "},
		N:       30,
		Days:    2,
	})
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "MSFT", items[0].Symbol)
	require.NotNil(t, items[0].Report)
	assert.Equal(t, 339.0, items[0].Report.CurrentPrice)

	assert.Equal(t, "NOPE", items[1].Symbol)
	assert.Nil(t, items[1].Report)
	assert.Contains(t, items[1].Error, "symbol not found")

	assert.Equal(t, "AAPL", items[2].Symbol)
	assert.Empty(t, items[2].Error)
}

func TestBatchForecastCancelled(t *testing.T) {
	uc := newTestUseCase(&fakeSource{}, &stubForecaster{}, &fakePublisher{}, newFakeMetrics())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBatchForecastUseCase(uc, 0).Run(ctx, BatchParams{Symbols: []string{"AAPL"}, Days: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
