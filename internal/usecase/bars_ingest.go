package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"
	svcmetrics "StockBrain/internal/service/metrics"
	pkgkafka "StockBrain/pkg/kafka"

	"github.com/go-playground/validator/v10"
)

// invalidator is implemented by caches that must drop a symbol after new bars land.
type invalidator interface {
	Invalidate(ctx context.Context, symbol string) error
}

// BarsIngestHandler consumes the bars topic and writes to the bar store.
type BarsIngestHandler struct {
	topic    string
	writer   domrepo.BarWriter
	cache    invalidator
	metrics  domrepo.Metrics
	validate *validator.Validate
}

func NewBarsIngestHandler(topic string, writer domrepo.BarWriter, metrics domrepo.Metrics) *BarsIngestHandler {
	return &BarsIngestHandler{
		topic:    topic,
		writer:   writer,
		metrics:  metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// WithInvalidator drops cached history for every symbol written.
func (h *BarsIngestHandler) WithInvalidator(c invalidator) *BarsIngestHandler {
	h.cache = c
	return h
}

func (h *BarsIngestHandler) Topic() string { return h.topic }

// barsMessage is either a batch {symbol, interval, bars:[...]} or a single bar
// {symbol, interval, date, close|price, open, high, low, volume}.
type barsMessage struct {
	Symbol   string            `json:"symbol"`
	Interval string            `json:"interval"`
	Bars     []models.PriceBar `json:"bars"`
	Date     string            `json:"date"`
	Price    float64           `json:"price"`
	Close    float64           `json:"close"`
	Open     float64           `json:"open"`
	High     float64           `json:"high"`
	Low      float64           `json:"low"`
	Volume   float64           `json:"volume"`
}

func (m barsMessage) bars() []models.PriceBar {
	if len(m.Bars) > 0 {
		return m.Bars
	}
	price := m.Price
	if price == 0 {
		price = m.Close
	}
	if m.Date == "" {
		return nil
	}
	return []models.PriceBar{{Date: m.Date, Price: price, Open: m.Open, High: m.High, Low: m.Low, Volume: m.Volume}}
}

func (h *BarsIngestHandler) Handle(ctx context.Context, b []byte) error {
	var m barsMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		svcmetrics.IngestedBars.WithLabelValues("invalid").Inc()
		return pkgkafka.Permanent(fmt.Errorf("bars message: %w", err))
	}
	symbol := strings.ToUpper(strings.TrimSpace(m.Symbol))
	if err := h.validate.Var(symbol, "required,max=16"); err != nil {
		svcmetrics.IngestedBars.WithLabelValues("invalid").Inc()
		return pkgkafka.Permanent(fmt.Errorf("bars message symbol %q: %w", m.Symbol, err))
	}
	bars, rejected := h.validBars(m.bars())
	if rejected > 0 {
		svcmetrics.IngestedBars.WithLabelValues("invalid").Add(float64(rejected))
	}
	if len(bars) == 0 {
		return pkgkafka.Permanent(fmt.Errorf("bars message %s: no valid bars, %d rejected", symbol, rejected))
	}

	start := time.Now()
	err := h.writer.StoreBars(ctx, symbol, domrepo.NormalizeInterval(m.Interval), bars)
	h.metrics.RecordLatency("store_bars", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		svcmetrics.IngestedBars.WithLabelValues("error").Add(float64(len(bars)))
		return err
	}
	svcmetrics.IngestedBars.WithLabelValues("ok").Add(float64(len(bars)))

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, symbol); err != nil {
			h.metrics.RecordError("cache_invalidate")
		}
	}
	return nil
}

// validBars keeps bars passing the PriceBar tags and reports how many were dropped.
func (h *BarsIngestHandler) validBars(in []models.PriceBar) ([]models.PriceBar, int) {
	out := make([]models.PriceBar, 0, len(in))
	for _, b := range in {
		if err := h.validate.Struct(b); err != nil {
			continue
		}
		out = append(out, b)
	}
	return out, len(in) - len(out)
}

var _ pkgkafka.MessageHandler = (*BarsIngestHandler)(nil)
