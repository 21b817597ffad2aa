package forecast

import (
	"errors"

	"StockBrain/internal/services/features"
)

var (
	// ErrInsufficientData is shared with the feature builder so errors.Is matches either.
	ErrInsufficientData  = features.ErrInsufficientData
	ErrTrainingFailure   = errors.New("training failure")
	ErrPredictionFailure = errors.New("prediction failure")
	ErrInvalidHorizon    = errors.New("invalid horizon")
)
