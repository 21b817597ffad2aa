package api

import (
	"context"
	"errors"
	"net/http"

	domrepo "StockBrain/internal/domain/repository"
	"StockBrain/internal/services/forecast"
	"StockBrain/internal/usecase"
	xhttp "StockBrain/pkg/http"
	"StockBrain/pkg/queue"
)

// toAppError maps domain and engine errors onto HTTP statuses.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, forecast.ErrInsufficientData):
		return xhttp.NewAppError("ERR_INSUFFICIENT_DATA", "bars", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, forecast.ErrInvalidHorizon):
		return xhttp.NewAppError("ERR_INVALID_HORIZON", "days", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, usecase.ErrInvalidRequest):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, forecast.ErrTrainingFailure), errors.Is(err, forecast.ErrPredictionFailure):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.Is(err, domrepo.ErrSymbolNotFound), errors.Is(err, domrepo.ErrJobNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, queue.ErrQueueFull):
		return xhttp.NewAppError("ERR_QUEUE_FULL", "", "forecast queue is full", http.StatusServiceUnavailable).WithError(err)
	case errors.Is(err, usecase.ErrDirectoryUnavailable):
		return xhttp.UnavailableError("symbol search needs a market data api key").WithError(err)
	case errors.Is(err, queue.ErrNotRunning):
		return xhttp.UnavailableError("job queue is not running").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "forecast timed out", http.StatusGatewayTimeout).WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
