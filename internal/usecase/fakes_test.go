package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"
	domsvc "StockBrain/internal/domain/service"
)

type fakeSource struct {
	mu    sync.Mutex
	bars  map[string][]models.PriceBar
	calls []string
}

func (f *fakeSource) GetLatestNBars(_ context.Context, symbol string, n int, _ domrepo.Interval) ([]models.PriceBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbol)
	bars, ok := f.bars[symbol]
	if !ok {
		return nil, domrepo.ErrSymbolNotFound
	}
	if n < len(bars) {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}

// stubForecaster returns a fixed result shaped by the inputs.
type stubForecaster struct {
	err      error
	lastOpts domsvc.ForecastOptions
	calls    int
	mu       sync.Mutex
}

func (s *stubForecaster) Forecast(_ context.Context, bars []models.PriceBar, days int, opts domsvc.ForecastOptions) (*models.PredictionResult, error) {
	s.mu.Lock()
	s.lastOpts = opts
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if opts.OnProgress != nil {
		opts.OnProgress(models.TrainingProgress{Epoch: 1, Epochs: 1, Error: 0.01})
	}
	cur := bars[len(bars)-1].Price
	res := &models.PredictionResult{
		CurrentPrice:  cur,
		Confidence:    0.9,
		TrainingError: 0.002,
		Iterations:    100,
	}
	for k := 0; k < days; k++ {
		res.FuturePrices = append(res.FuturePrices, cur+float64(k+1))
		res.FutureDates = append(res.FutureDates, time.Date(2024, 2, 1+k, 0, 0, 0, 0, time.UTC).Format("2006-01-02"))
	}
	res.PredictedPrice = res.FuturePrices[0]
	return res, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*models.ForecastEvent
	err    error
}

func (p *fakePublisher) PublishForecast(_ context.Context, ev *models.ForecastEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeMetrics struct {
	mu       sync.Mutex
	results  map[string]int
	errors   map[string]int
	training int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{results: map[string]int{}, errors: map[string]int{}}
}

func (m *fakeMetrics) RecordForecast(_, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[result]++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordLastPrice(string, float64)      {}
func (m *fakeMetrics) RecordPredictedPrice(string, float64) {}
func (m *fakeMetrics) RecordLatency(string, float64)        {}

func (m *fakeMetrics) RecordTraining(int, float64, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.training++
}

type memJobStore struct {
	mu   sync.Mutex
	jobs map[string]models.ForecastJob
}

func newMemJobStore() *memJobStore { return &memJobStore{jobs: map[string]models.ForecastJob{}} }

func (s *memJobStore) Save(_ context.Context, job *models.ForecastJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *memJobStore) Get(_ context.Context, id string) (*models.ForecastJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, domrepo.ErrJobNotFound
	}
	return &j, nil
}

type captureQueue struct {
	ids     []string
	payload []interface{}
	err     error
}

func (q *captureQueue) EnqueueWithID(_ context.Context, id, _ string, payload interface{}) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.ids = append(q.ids, id)
	q.payload = append(q.payload, payload)
	return id, nil
}

type fakeWriter struct {
	symbol   string
	interval domrepo.Interval
	bars     []models.PriceBar
	err      error
}

func (w *fakeWriter) StoreBars(_ context.Context, symbol string, iv domrepo.Interval, bars []models.PriceBar) error {
	w.symbol, w.interval, w.bars = symbol, iv, bars
	return w.err
}

type fakeInvalidator struct{ symbols []string }

func (f *fakeInvalidator) Invalidate(_ context.Context, symbol string) error {
	f.symbols = append(f.symbols, symbol)
	return nil
}

var errBoom = errors.New("boom")

func seriesBars(n int, start float64) []models.PriceBar {
	out := make([]models.PriceBar, n)
	for i := range out {
		out[i] = models.PriceBar{
			Date:  time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			Price: start + float64(i),
		}
	}
	return out
}
