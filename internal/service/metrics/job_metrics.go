package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockbrain",
			Subsystem: "jobs",
			Name:      "total",
			Help:      "Forecast jobs by terminal status",
		},
		[]string{"status"},
	)

	JobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stockbrain",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Time from job pickup to terminal status",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stockbrain",
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Open websocket forecast streams",
		},
	)

	IngestedBars = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockbrain",
			Subsystem: "ingest",
			Name:      "bars_total",
			Help:      "Bars written from the bars topic",
		},
		[]string{"result"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(JobsTotal, JobDuration, StreamClients, IngestedBars)
	})
}
