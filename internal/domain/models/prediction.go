package models

import "time"

// PredictionResult is produced fresh by every prediction call.
type PredictionResult struct {
	CurrentPrice   float64   `json:"current_price"`
	PredictedPrice float64   `json:"predicted_price"`
	FuturePrices   []float64 `json:"future_prices"`
	FutureDates    []string  `json:"future_dates"`
	Confidence     float64   `json:"confidence"`
	TrainingError  float64   `json:"training_error"`
	Iterations     int       `json:"iterations"`
}

// DailyForecast is one row of the display horizon.
type DailyForecast struct {
	Date       string  `json:"date"`
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"` // percent
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
}

// ForecastReport wraps an engine result with presentation data.
type ForecastReport struct {
	Symbol          string          `json:"symbol"`
	Interval        string          `json:"interval"`
	Bars            int             `json:"bars"`
	CurrentPrice    float64         `json:"current_price"`
	PredictedPrice  float64         `json:"predicted_price"`
	Change          float64         `json:"change"`
	ChangePercent   float64         `json:"change_percent"`
	Confidence      float64         `json:"confidence"`
	ConfidenceLabel string          `json:"confidence_label"`
	TrainingError   float64         `json:"training_error"`
	Iterations      int             `json:"iterations"`
	Days            []DailyForecast `json:"days"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// ForecastEvent is published after every successful forecast.
type ForecastEvent struct {
	Symbol         string    `json:"symbol"`
	Interval       string    `json:"interval"`
	CurrentPrice   float64   `json:"current_price"`
	PredictedPrice float64   `json:"predicted_price"`
	FuturePrices   []float64 `json:"future_prices"`
	FutureDates    []string  `json:"future_dates"`
	Confidence     float64   `json:"confidence"`
	TrainingError  float64   `json:"training_error"`
	Iterations     int       `json:"iterations"`
	Timestamp      int64     `json:"t"`
}

// TrainingProgress is emitted while a network trains.
type TrainingProgress struct {
	Epoch  int     `json:"epoch"`
	Epochs int     `json:"epochs"`
	Error  float64 `json:"error"`
}
