package usecase

import (
	"context"
	"errors"

	domrepo "StockBrain/internal/domain/repository"
	"StockBrain/internal/services/forecast"
)

var ErrInvalidRequest = errors.New("invalid request")

// errorKind labels an error for the errors_total metric.
func errorKind(err error) string {
	switch {
	case errors.Is(err, forecast.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, forecast.ErrInvalidHorizon):
		return "invalid_horizon"
	case errors.Is(err, forecast.ErrTrainingFailure):
		return "training"
	case errors.Is(err, forecast.ErrPredictionFailure):
		return "prediction"
	case errors.Is(err, domrepo.ErrSymbolNotFound):
		return "symbol_not_found"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "internal"
	}
}
