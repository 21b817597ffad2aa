package repository

import (
	"context"
	"fmt"

	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"
)

// producer is the slice of pkg/kafka.Producer the publisher needs.
type producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaForecastPublisher writes forecast events keyed by symbol so one
// symbol's events stay ordered within a partition.
type KafkaForecastPublisher struct {
	p     producer
	topic string
}

func NewKafkaForecastPublisher(p producer, topic string) *KafkaForecastPublisher {
	return &KafkaForecastPublisher{p: p, topic: topic}
}

func (k *KafkaForecastPublisher) PublishForecast(ctx context.Context, ev *models.ForecastEvent) error {
	if ev == nil {
		return nil
	}
	if err := k.p.Publish(ctx, k.topic, []byte(ev.Symbol), ev); err != nil {
		return fmt.Errorf("publish forecast %s: %w", ev.Symbol, err)
	}
	return nil
}

func (k *KafkaForecastPublisher) Close() error { return k.p.Close() }

// NopPublisher drops events. Used when kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishForecast(context.Context, *models.ForecastEvent) error { return nil }
func (NopPublisher) Close() error                                                { return nil }

var (
	_ domrepo.Publisher = (*KafkaForecastPublisher)(nil)
	_ domrepo.Publisher = NopPublisher{}
)
