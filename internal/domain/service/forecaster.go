package service

import (
	"context"

	"StockBrain/internal/domain/models"
)

// ForecastOptions tune a single forecast. Zero values keep the engine defaults.
type ForecastOptions struct {
	Epochs     int
	Seed       uint64
	OnProgress func(models.TrainingProgress)
}

// Forecaster trains on bars and predicts days ahead.
type Forecaster interface {
	Forecast(ctx context.Context, bars []models.PriceBar, days int, opts ForecastOptions) (*models.PredictionResult, error)
}
