package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockBrain/internal/domain/models"
	"StockBrain/internal/domain/service"
	"StockBrain/internal/services/features"
	"StockBrain/internal/services/network"
	"StockBrain/pkg/logger"
)

const (
	DefaultWindow         = 10
	DefaultEpochs         = 2000
	DefaultErrorThreshold = 0.001
)

// DefaultArchitecture is the stock five-layer network for the given window.
func DefaultArchitecture(window int) []network.LayerSpec {
	return []network.LayerSpec{
		{Size: features.InputSize(window)},
		{Size: 16, Activation: network.ReLU, BatchNorm: true, Dropout: 0.1},
		{Size: 32, Activation: network.ReLU, BatchNorm: true, Dropout: 0.2},
		{Size: 16, Activation: network.Tanh, BatchNorm: true, Dropout: 0.1},
		{Size: 8, Activation: network.ReLU},
		{Size: 1, Activation: network.Sigmoid},
	}
}

type Option func(*Engine)

func WithWindow(w int) Option {
	return func(e *Engine) { e.window = w }
}

// WithArchitecture replaces the default layers. The first entry must be window+6 wide.
func WithArchitecture(arch []network.LayerSpec) Option {
	return func(e *Engine) { e.arch = arch }
}

func WithLearningRate(lr float64) Option {
	return func(e *Engine) { e.lr = lr }
}

// WithSeed fixes the random source of every network this engine builds.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.seed = seed
		e.seeded = true
	}
}

func WithEpochs(epochs int, threshold float64) Option {
	return func(e *Engine) {
		e.epochs = epochs
		e.threshold = threshold
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithProgress is forwarded to every training run.
func WithProgress(fn network.ProgressFunc, every int) Option {
	return func(e *Engine) {
		e.progress = fn
		e.progressEvery = every
	}
}

// Engine trains models and produces forecasts. It holds configuration only, so one
// Engine can serve concurrent calls.
type Engine struct {
	window    int
	arch      []network.LayerSpec
	lr        float64
	seed      uint64
	seeded    bool
	epochs    int
	threshold float64

	logger        *logger.Logger
	progress      network.ProgressFunc
	progressEvery int
}

func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		window:    DefaultWindow,
		lr:        network.DefaultLearningRate,
		epochs:    DefaultEpochs,
		threshold: DefaultErrorThreshold,
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.window < 2 {
		return nil, fmt.Errorf("window must be at least 2, got %d", e.window)
	}
	if e.epochs < 1 {
		return nil, fmt.Errorf("epochs must be positive, got %d", e.epochs)
	}
	if e.arch == nil {
		e.arch = DefaultArchitecture(e.window)
	}
	if err := network.ValidateArchitecture(e.arch); err != nil {
		return nil, err
	}
	if in := e.arch[0].Size; in != features.InputSize(e.window) {
		return nil, fmt.Errorf("%w: input width %d does not match window %d (+%d indicators)",
			network.ErrInvalidArchitecture, in, e.window, features.IndicatorCount)
	}
	if out := e.arch[len(e.arch)-1].Size; out != 1 {
		return nil, fmt.Errorf("%w: output width must be 1, got %d", network.ErrInvalidArchitecture, out)
	}
	return e, nil
}

func (e *Engine) Window() int { return e.window }

// WithOverrides returns a copy of the engine with extra options applied.
func (e *Engine) WithOverrides(opts ...Option) *Engine {
	cp := *e
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// Train builds a fresh network and fits it to bars. Data is checked before any network exists.
func (e *Engine) Train(ctx context.Context, bars []models.PriceBar, epochs int, threshold float64) (*Model, error) {
	if len(bars) < e.window+1 {
		return nil, fmt.Errorf("%w: %d bars, need at least %d", ErrInsufficientData, len(bars), e.window+1)
	}
	if epochs < 1 {
		return nil, fmt.Errorf("%w: epochs must be positive, got %d", ErrTrainingFailure, epochs)
	}

	if n := len(bars) - e.window; n < features.MinTrainingExamples {
		return nil, fmt.Errorf("%w: %d bars yield %d examples with window %d, need %d",
			ErrInsufficientData, len(bars), n, e.window, features.MinTrainingExamples)
	}

	set, err := features.BuildTrainingSet(bars, e.window)
	if err != nil {
		if errors.Is(err, features.ErrNonFinite) {
			return nil, fmt.Errorf("%w: %v", ErrTrainingFailure, err)
		}
		return nil, err
	}

	opts := []network.Option{network.WithLearningRate(e.lr)}
	if e.seeded {
		opts = append(opts, network.WithSeed(e.seed))
	}
	if e.progress != nil {
		opts = append(opts, network.WithProgress(e.progress, e.progressEvery))
	}
	net, err := network.New(e.arch, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrainingFailure, err)
	}

	examples := make([]network.Example, len(set.Examples))
	for i, ex := range set.Examples {
		examples[i] = network.Example(ex)
	}

	start := time.Now()
	res, err := net.Train(ctx, examples, epochs, threshold)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("training interrupted: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTrainingFailure, err)
	}

	e.logger.Debug("model trained",
		logger.Int("bars", len(bars)),
		logger.Int("examples", len(examples)),
		logger.Int("epochs", res.Epochs),
		logger.Float64("error", res.Error),
		logger.Duration("took", time.Since(start)),
	)

	return &Model{
		net:        net,
		params:     set.Params,
		window:     e.window,
		trainError: res.Error,
		iterations: res.Epochs,
	}, nil
}

// Forecast trains with the engine's epoch settings and predicts days ahead.
func (e *Engine) Forecast(ctx context.Context, bars []models.PriceBar, days int, opts service.ForecastOptions) (*models.PredictionResult, error) {
	if days < 1 {
		return nil, fmt.Errorf("%w: days must be at least 1, got %d", ErrInvalidHorizon, days)
	}
	run := e
	var overrides []Option
	if opts.Epochs > 0 {
		overrides = append(overrides, WithEpochs(opts.Epochs, e.threshold))
	}
	if opts.Seed != 0 {
		overrides = append(overrides, WithSeed(opts.Seed))
	}
	if opts.OnProgress != nil {
		overrides = append(overrides, WithProgress(func(epoch, epochs int, loss float64) {
			opts.OnProgress(models.TrainingProgress{Epoch: epoch, Epochs: epochs, Error: loss})
		}, progressEvery(opts.Epochs, e.epochs)))
	}
	if len(overrides) > 0 {
		run = e.WithOverrides(overrides...)
	}

	m, err := run.Train(ctx, bars, run.epochs, run.threshold)
	if err != nil {
		return nil, err
	}
	return run.Predict(m, bars, days)
}

// progressEvery spreads roughly 50 progress reports across a run.
func progressEvery(requested, fallback int) int {
	epochs := requested
	if epochs <= 0 {
		epochs = fallback
	}
	return max(epochs/50, 1)
}

var _ service.Forecaster = (*Engine)(nil)
