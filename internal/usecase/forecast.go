package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"
	domsvc "StockBrain/internal/domain/service"
	"StockBrain/internal/services/forecast"
	"StockBrain/pkg/logger"
	"StockBrain/pkg/util"
)

const (
	labelHigh   = "High"
	labelMedium = "Medium"
	labelLow    = "Low"
)

// ForecastUseCase loads history, runs the engine and turns the result into a report.
type ForecastUseCase struct {
	source     domrepo.BarSource
	forecaster domsvc.Forecaster
	pub        domrepo.Publisher
	metrics    domrepo.Metrics
	logger     *logger.Logger
	maxDays    int
	timeout    time.Duration
	now        func() time.Time
}

type ForecastConfig struct {
	MaxDays int
	Timeout time.Duration
}

func NewForecastUseCase(
	source domrepo.BarSource,
	forecaster domsvc.Forecaster,
	pub domrepo.Publisher,
	metrics domrepo.Metrics,
	l *logger.Logger,
	cfg ForecastConfig,
) *ForecastUseCase {
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = 30
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &ForecastUseCase{
		source:     source,
		forecaster: forecaster,
		pub:        pub,
		metrics:    metrics,
		logger:     l,
		maxDays:    cfg.MaxDays,
		timeout:    cfg.Timeout,
		now:        time.Now,
	}
}

type ForecastParams struct {
	Symbol     string
	N          int
	Days       int
	Epochs     int
	Interval   domrepo.Interval
	Seed       uint64
	OnProgress func(models.TrainingProgress)
}

// ForecastSymbol fetches the latest N bars for a symbol and forecasts Days ahead.
func (uc *ForecastUseCase) ForecastSymbol(ctx context.Context, p ForecastParams) (*models.ForecastReport, error) {
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	if p.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol required", ErrInvalidRequest)
	}
	if p.Interval == "" {
		p.Interval = domrepo.DefaultInterval()
	}
	if !domrepo.IsValidInterval(p.Interval) {
		return nil, fmt.Errorf("%w: interval %q", ErrInvalidRequest, p.Interval)
	}
	if err := uc.checkDays(p.Days); err != nil {
		return nil, err
	}

	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	bars, err := uc.source.GetLatestNBars(ctx, p.Symbol, p.N, p.Interval)
	uc.metrics.RecordLatency("fetch_bars", time.Since(start).Seconds())
	if err != nil {
		uc.metrics.RecordError("fetch_bars")
		return nil, fmt.Errorf("load %s bars: %w", p.Symbol, err)
	}
	return uc.forecastBars(ctx, p.Symbol, p.Interval, bars, p)
}

// ForecastBars forecasts caller-supplied history.
func (uc *ForecastUseCase) ForecastBars(ctx context.Context, symbol string, bars []models.PriceBar, p ForecastParams) (*models.ForecastReport, error) {
	if err := uc.checkDays(p.Days); err != nil {
		return nil, err
	}
	if symbol == "" {
		symbol = "CUSTOM"
	}
	// future dates count from the last bar, so reject it before paying for training
	if n := len(bars); n > 0 {
		if _, ok := util.ParseTime(bars[n-1].Date); !ok {
			return nil, fmt.Errorf("%w: unparseable date %q on last bar", ErrInvalidRequest, bars[n-1].Date)
		}
	}
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()
	return uc.forecastBars(ctx, strings.ToUpper(symbol), p.Interval, bars, p)
}

func (uc *ForecastUseCase) forecastBars(ctx context.Context, symbol string, iv domrepo.Interval, bars []models.PriceBar, p ForecastParams) (*models.ForecastReport, error) {
	start := time.Now()
	res, err := uc.forecaster.Forecast(ctx, bars, p.Days, domsvc.ForecastOptions{
		Epochs:     p.Epochs,
		Seed:       p.Seed,
		OnProgress: p.OnProgress,
	})
	took := time.Since(start)
	uc.metrics.RecordLatency("forecast", took.Seconds())
	if err != nil {
		uc.metrics.RecordForecast(symbol, "error")
		uc.metrics.RecordError(errorKind(err))
		return nil, err
	}
	uc.metrics.RecordForecast(symbol, "ok")
	uc.metrics.RecordTraining(res.Iterations, res.TrainingError, took)
	uc.metrics.RecordLastPrice(symbol, res.CurrentPrice)
	uc.metrics.RecordPredictedPrice(symbol, res.PredictedPrice)

	now := uc.now().UTC()
	report := BuildReport(symbol, string(iv), len(bars), res, now)

	uc.logger.Info("forecast done",
		logger.String("symbol", symbol),
		logger.Int("bars", len(bars)),
		logger.Int("days", p.Days),
		logger.Int("iterations", res.Iterations),
		logger.Float64("training_error", res.TrainingError),
		logger.Float64("confidence", res.Confidence),
		logger.Duration("took", took),
	)

	ev := &models.ForecastEvent{
		Symbol:         symbol,
		Interval:       string(iv),
		CurrentPrice:   res.CurrentPrice,
		PredictedPrice: res.PredictedPrice,
		FuturePrices:   res.FuturePrices,
		FutureDates:    res.FutureDates,
		Confidence:     res.Confidence,
		TrainingError:  res.TrainingError,
		Iterations:     res.Iterations,
		Timestamp:      now.UnixMilli(),
	}
	if err := uc.pub.PublishForecast(ctx, ev); err != nil {
		uc.metrics.RecordError("publish")
		uc.logger.Warn("publish forecast failed", logger.String("symbol", symbol), logger.Error(err))
	}
	return report, nil
}

func (uc *ForecastUseCase) checkDays(days int) error {
	if days < 1 || days > uc.maxDays {
		return fmt.Errorf("%w: days must be in 1..%d, got %d", forecast.ErrInvalidHorizon, uc.maxDays, days)
	}
	return nil
}

func (uc *ForecastUseCase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, uc.timeout)
}

// BuildReport derives the display report from an engine result. Confidence decays
// 5 points per day with a floor of 30%; the band width scales with 1-confidence.
func BuildReport(symbol, interval string, bars int, res *models.PredictionResult, at time.Time) *models.ForecastReport {
	change := res.PredictedPrice - res.CurrentPrice
	var changePct float64
	if res.CurrentPrice != 0 {
		changePct = change / res.CurrentPrice * 100
	}

	pct := res.Confidence * 100
	spread := (1 - res.Confidence) * 0.1
	days := make([]models.DailyForecast, len(res.FuturePrices))
	for k, price := range res.FuturePrices {
		days[k] = models.DailyForecast{
			Date:       res.FutureDates[k],
			Price:      util.RoundPrice(price, 2),
			Confidence: util.RoundPrice(math.Max(30, pct-5*float64(k)), 1),
			Lower:      util.RoundPrice(price*(1-spread), 2),
			Upper:      util.RoundPrice(price*(1+spread), 2),
		}
	}

	return &models.ForecastReport{
		Symbol:          symbol,
		Interval:        interval,
		Bars:            bars,
		CurrentPrice:    util.RoundPrice(res.CurrentPrice, 2),
		PredictedPrice:  util.RoundPrice(res.PredictedPrice, 2),
		Change:          util.RoundPrice(change, 2),
		ChangePercent:   util.RoundPrice(changePct, 2),
		Confidence:      res.Confidence,
		ConfidenceLabel: ConfidenceLabel(pct),
		TrainingError:   res.TrainingError,
		Iterations:      res.Iterations,
		Days:            days,
		GeneratedAt:     at,
	}
}

// ConfidenceLabel buckets a confidence percentage.
func ConfidenceLabel(pct float64) string {
	switch {
	case pct >= 80:
		return labelHigh
	case pct >= 60:
		return labelMedium
	default:
		return labelLow
	}
}
