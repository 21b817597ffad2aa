package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type clientMetrics struct {
	published    *prometheus.CounterVec
	publishBytes *prometheus.CounterVec
	publishTime  *prometheus.HistogramVec
	consumed     *prometheus.CounterVec
	handleTime   *prometheus.HistogramVec
	backlog      *prometheus.GaugeVec
}

var (
	metricsOnce sync.Once
	kmetrics    *clientMetrics
)

// clientMetricsFor registers the collectors on the default registry the first
// time a producer or consumer is created.
func clientMetricsFor() *clientMetrics {
	metricsOnce.Do(func() {
		f := promauto.With(prometheus.DefaultRegisterer)
		kmetrics = &clientMetrics{
			published: f.NewCounterVec(prometheus.CounterOpts{
				Name: "stockbrain_kafka_published_messages_total",
				Help: "Messages written to Kafka by topic and result",
			}, []string{"topic", "result"}),
			publishBytes: f.NewCounterVec(prometheus.CounterOpts{
				Name: "stockbrain_kafka_published_bytes_total",
				Help: "Payload bytes written to Kafka",
			}, []string{"topic"}),
			publishTime: f.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "stockbrain_kafka_publish_seconds",
				Help:    "WriteMessages latency",
				Buckets: prometheus.DefBuckets,
			}, []string{"topic"}),
			consumed: f.NewCounterVec(prometheus.CounterOpts{
				Name: "stockbrain_kafka_consumed_messages_total",
				Help: "Messages handled by topic and outcome (ok, dlq, dropped)",
			}, []string{"topic", "outcome"}),
			handleTime: f.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "stockbrain_kafka_handle_seconds",
				Help:    "Handling time per message, retries included",
				Buckets: prometheus.DefBuckets,
			}, []string{"topic"}),
			backlog: f.NewGaugeVec(prometheus.GaugeOpts{
				Name: "stockbrain_kafka_worker_backlog",
				Help: "Fetched messages waiting for a worker",
			}, []string{"worker"}),
		}
	})
	return kmetrics
}

func (m *clientMetrics) observePublish(topic string, msgs, bytes int, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.published.WithLabelValues(topic, result).Add(float64(msgs))
	m.publishBytes.WithLabelValues(topic).Add(float64(bytes))
	m.publishTime.WithLabelValues(topic).Observe(took.Seconds())
}
