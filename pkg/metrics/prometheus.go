package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	forecasts      *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	predictedPrice *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
	trainEpochs    prometheus.Histogram
	trainError     prometheus.Histogram
	trainDuration  prometheus.Histogram
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		forecasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockbrain_forecasts_total",
				Help: "Total number of forecasts by symbol and result",
			},
			[]string{"symbol", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockbrain_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockbrain_last_price",
				Help: "Last observed price for a symbol",
			},
			[]string{"symbol"},
		),
		predictedPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockbrain_predicted_price",
				Help: "Latest next-step predicted price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockbrain_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		trainEpochs: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockbrain_training_epochs",
			Help:    "Epochs run per training call",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2000, 5000, 10000},
		}),
		trainError: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockbrain_training_error",
			Help:    "Final mean squared training error (normalized units)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		trainDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockbrain_training_duration_seconds",
			Help:    "Wall time of training plus prediction",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// RecordForecast counts a forecast outcome ("ok" or an error kind).
func (r *Recorder) RecordForecast(symbol, result string) {
	r.forecasts.WithLabelValues(symbol, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordPredictedPrice(symbol string, price float64) {
	r.predictedPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordTraining(epochs int, trainErr float64, took time.Duration) {
	r.trainEpochs.Observe(float64(epochs))
	r.trainError.Observe(trainErr)
	r.trainDuration.Observe(took.Seconds())
}
