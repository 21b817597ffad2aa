package forecast

import (
	"fmt"
	"math"

	"StockBrain/internal/domain/models"
	"StockBrain/internal/services/features"
	"StockBrain/pkg/util"
)

const (
	minPrice = 0.01

	confidenceFloor    = 0.3
	confidenceCeiling  = 0.95
	volatilityLookback = 10
)

// Predict runs an autoregressive forecast of days steps. Each step feeds the previous
// normalized output back into the window. Indicators stay fixed at the last real bar.
func (e *Engine) Predict(m *Model, bars []models.PriceBar, days int) (*models.PredictionResult, error) {
	if days < 1 {
		return nil, fmt.Errorf("%w: days must be at least 1, got %d", ErrInvalidHorizon, days)
	}
	if len(bars) < m.window {
		return nil, fmt.Errorf("%w: %d bars, need at least %d to predict", ErrInsufficientData, len(bars), m.window)
	}

	lastBar := bars[len(bars)-1]
	lastDate, ok := util.ParseTime(lastBar.Date)
	if !ok {
		return nil, fmt.Errorf("%w: unparseable date %q on last bar", ErrPredictionFailure, lastBar.Date)
	}

	prices := models.Prices(bars)
	norm := features.NormalizeWith(prices, m.params)
	inds := features.ComputeIndicators(bars)
	frozen := inds[len(inds)-1]

	seq := make([]float64, 0, m.window+days)
	seq = append(seq, norm[len(norm)-m.window:]...)
	if err := features.CheckFinite(seq, []features.Indicators{frozen}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPredictionFailure, err)
	}

	futurePrices := make([]float64, 0, days)
	futureDates := make([]string, 0, days)
	for step := 0; step < days; step++ {
		out, err := m.net.Predict(features.FeatureVector(seq[len(seq)-m.window:], frozen))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPredictionFailure, err)
		}
		v := out[0]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite output at step %d", ErrPredictionFailure, step+1)
		}
		price := math.Max(minPrice, m.params.Invert(v))

		seq = append(seq, v)
		futurePrices = append(futurePrices, price)
		futureDates = append(futureDates, util.AddDays(lastDate, step+1))
	}

	current := lastBar.Price
	return &models.PredictionResult{
		CurrentPrice:   current,
		PredictedPrice: futurePrices[0],
		FuturePrices:   futurePrices,
		FutureDates:    futureDates,
		Confidence:     Confidence(m.trainError, prices),
		TrainingError:  m.trainError,
		Iterations:     m.iterations,
	}, nil
}

// Confidence blends training error and recent relative volatility into [0.3, 0.95].
func Confidence(trainError float64, prices []float64) float64 {
	if len(prices) == 0 {
		return confidenceFloor
	}
	current := prices[len(prices)-1]
	relVol := 0.0
	if current > 0 {
		relVol = features.Volatility(prices, volatilityLookback) / current
	}
	c := 1 - (trainError*10 + relVol)
	if math.IsNaN(c) {
		return confidenceFloor
	}
	return math.Max(confidenceFloor, math.Min(confidenceCeiling, c))
}
