package repository

import (
	"context"
	"errors"
	"time"

	"StockBrain/internal/domain/models"
)

var ErrJobNotFound = errors.New("job not found")

// Publisher fans forecast results out to downstream consumers.
type Publisher interface {
	PublishForecast(ctx context.Context, ev *models.ForecastEvent) error
	Close() error
}

// JobStore keeps asynchronous forecast jobs until they expire.
type JobStore interface {
	Save(ctx context.Context, job *models.ForecastJob) error
	Get(ctx context.Context, id string) (*models.ForecastJob, error)
}

type Metrics interface {
	RecordForecast(symbol, result string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordPredictedPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordTraining(epochs int, trainErr float64, took time.Duration)
}
