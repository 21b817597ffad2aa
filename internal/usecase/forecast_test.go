package usecase

import (
	"context"
	"testing"
	"time"

	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"
	"StockBrain/internal/services/forecast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUseCase(src *fakeSource, fc *stubForecaster, pub *fakePublisher, m *fakeMetrics) *ForecastUseCase {
	uc := NewForecastUseCase(src, fc, pub, m, nil, ForecastConfig{MaxDays: 30, Timeout: time.Minute})
	uc.now = func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) }
	return uc
}

func TestForecastSymbol(t *testing.T) {
	src := &fakeSource{bars: map[string][]models.PriceBar{"AAPL": seriesBars(40, 100)}}
	pub := &fakePublisher{}
	m := newFakeMetrics()
	fc := &stubForecaster{}
	uc := newTestUseCase(src, fc, pub, m)

	var frames int
	report, err := uc.ForecastSymbol(context.Background(), ForecastParams{
		Symbol: " aapl ", N: 30, Days: 3, Epochs: 50, Seed: 7,
		OnProgress: func(models.TrainingProgress) { frames++ },
	})
	require.NoError(t, err)

	assert.Equal(t, "AAPL", report.Symbol)
	assert.Equal(t, "1day", report.Interval)
	assert.Equal(t, 30, report.Bars)
	assert.Equal(t, 139.0, report.CurrentPrice)
	assert.Equal(t, 140.0, report.PredictedPrice)
	assert.Equal(t, 1.0, report.Change)
	assert.InDelta(t, 0.72, report.ChangePercent, 1e-9)
	assert.Equal(t, "High", report.ConfidenceLabel)
	require.Len(t, report.Days, 3)
	assert.Equal(t, 1, frames)
	assert.Equal(t, 50, fc.lastOpts.Epochs)
	assert.Equal(t, uint64(7), fc.lastOpts.Seed)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "AAPL", pub.events[0].Symbol)
	assert.Equal(t, time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC).UnixMilli(), pub.events[0].Timestamp)
	assert.Equal(t, 1, m.results["ok"])
	assert.Equal(t, 1, m.training)
}

func TestForecastSymbolErrors(t *testing.T) {
	src := &fakeSource{bars: map[string][]models.PriceBar{"AAPL": seriesBars(40, 100)}}
	m := newFakeMetrics()
	uc := newTestUseCase(src, &stubForecaster{}, &fakePublisher{}, m)
	ctx := context.Background()

	_, err := uc.ForecastSymbol(ctx, ForecastParams{Symbol: "", Days: 5})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = uc.ForecastSymbol(ctx, ForecastParams{Symbol: "AAPL", Days: 0})
	assert.ErrorIs(t, err, forecast.ErrInvalidHorizon)

	_, err = uc.ForecastSymbol(ctx, ForecastParams{Symbol: "AAPL", Days: 31})
	assert.ErrorIs(t, err, forecast.ErrInvalidHorizon)

	_, err = uc.ForecastSymbol(ctx, ForecastParams{Symbol: "AAPL", Days: 5, Interval: "2day"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = uc.ForecastSymbol(ctx, ForecastParams{Symbol: "NOPE", N: 10, Days: 5})
	assert.ErrorIs(t, err, domrepo.ErrSymbolNotFound)
	assert.Equal(t, 1, m.errors["fetch_bars"])
}

func TestForecastEngineErrorIsCounted(t *testing.T) {
	src := &fakeSource{bars: map[string][]models.PriceBar{"AAPL": seriesBars(40, 100)}}
	m := newFakeMetrics()
	pub := &fakePublisher{}
	uc := newTestUseCase(src, &stubForecaster{err: forecast.ErrInsufficientData}, pub, m)

	_, err := uc.ForecastSymbol(context.Background(), ForecastParams{Symbol: "AAPL", N: 10, Days: 5})
	assert.ErrorIs(t, err, forecast.ErrInsufficientData)
	assert.Equal(t, 1, m.results["error"])
	assert.Equal(t, 1, m.errors["insufficient_data"])
	assert.Empty(t, pub.events)
}

func TestForecastPublishFailureIsNotFatal(t *testing.T) {
	m := newFakeMetrics()
	uc := newTestUseCase(&fakeSource{}, &stubForecaster{}, &fakePublisher{err: errBoom}, m)

	report, err := uc.ForecastBars(context.Background(), "", seriesBars(30, 10), ForecastParams{Days: 2})
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM", report.Symbol)
	assert.Equal(t, 1, m.errors["publish"])
}

func TestBuildReport(t *testing.T) {
	res := &models.PredictionResult{
		CurrentPrice:   100,
		PredictedPrice: 110.004,
		FuturePrices:   []float64{110.004, 120, 130, 140, 150, 160, 170, 180, 190, 200},
		FutureDates:    []string{"d0", "d1", "d2", "d3", "d4", "d5", "d6", "d7", "d8", "d9"},
		Confidence:     0.7,
	}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := BuildReport("X", "1day", 50, res, at)

	assert.Equal(t, 110.0, r.PredictedPrice)
	assert.Equal(t, 10.0, r.ChangePercent)
	assert.Equal(t, "Medium", r.ConfidenceLabel)
	assert.Equal(t, at, r.GeneratedAt)

	assert.Equal(t, 70.0, r.Days[0].Confidence)
	assert.Equal(t, 65.0, r.Days[1].Confidence)
	assert.Equal(t, 30.0, r.Days[8].Confidence)
	assert.Equal(t, 30.0, r.Days[9].Confidence)

	// band is price * (1 +/- 0.03)
	assert.Equal(t, 116.4, r.Days[1].Lower)
	assert.Equal(t, 123.6, r.Days[1].Upper)
	assert.Equal(t, "d1", r.Days[1].Date)
}

func TestConfidenceLabel(t *testing.T) {
	assert.Equal(t, "High", ConfidenceLabel(80))
	assert.Equal(t, "Medium", ConfidenceLabel(79.9))
	assert.Equal(t, "Medium", ConfidenceLabel(60))
	assert.Equal(t, "Low", ConfidenceLabel(59.99))
}

func TestForecastBarsRejectsBadLastDateBeforeTraining(t *testing.T) {
	fc := &stubForecaster{}
	uc := newTestUseCase(&fakeSource{}, fc, &fakePublisher{}, newFakeMetrics())

	bars := seriesBars(30, 100)
	bars[len(bars)-1].Date = "next tuesday"
	_, err := uc.ForecastBars(context.Background(), "custom", bars, ForecastParams{Days: 3})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, 0, fc.calls)

	bars[len(bars)-1].Date = "2024-03-01"
	_, err = uc.ForecastBars(context.Background(), "custom", bars, ForecastParams{Days: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, fc.calls)
}
