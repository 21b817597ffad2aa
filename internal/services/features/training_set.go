package features

import (
	"errors"
	"fmt"
	"math"

	"StockBrain/internal/domain/models"
)

// MinTrainingExamples is the smallest training set a model may be fitted on.
// The builder itself only needs one example; callers enforce this floor.
const MinTrainingExamples = 10

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrNonFinite        = errors.New("non-finite feature value")
)

// TrainingExample pairs a feature vector with the next normalized price.
type TrainingExample struct {
	Input  []float64
	Target []float64
}

// TrainingSet is the builder output: examples plus the params needed to invert predictions.
type TrainingSet struct {
	Examples   []TrainingExample
	Params     NormalizationParams
	Normalized []float64
	Indicators []Indicators
}

// InputSize is the width of a feature vector for the given window.
func InputSize(window int) int { return window + IndicatorCount }

// FeatureVector concatenates a normalized price window and the squashed indicators.
func FeatureVector(window []float64, ind Indicators) []float64 {
	out := make([]float64, 0, len(window)+IndicatorCount)
	out = append(out, window...)
	return append(out, ind.Squashed()...)
}

// BuildTrainingSet turns ordered bars into len(bars)-window supervised examples.
// Example i uses the window of normalized prices before bar i and the
// indicators of bar i.
func BuildTrainingSet(bars []models.PriceBar, window int) (*TrainingSet, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", ErrInsufficientData, window)
	}
	if len(bars) < window+1 {
		return nil, fmt.Errorf("%w: %d bars, window %d needs at least %d",
			ErrInsufficientData, len(bars), window, window+1)
	}

	norm, params := Normalize(models.Prices(bars))
	inds := ComputeIndicators(bars)

	if err := CheckFinite(norm, inds); err != nil {
		return nil, err
	}

	examples := make([]TrainingExample, 0, len(bars)-window)
	for i := window; i < len(bars); i++ {
		examples = append(examples, TrainingExample{
			Input:  FeatureVector(norm[i-window:i], inds[i]),
			Target: []float64{norm[i]},
		})
	}

	return &TrainingSet{
		Examples:   examples,
		Params:     params,
		Normalized: norm,
		Indicators: inds,
	}, nil
}

// CheckFinite reports the first NaN or Inf among normalized prices and indicator rows.
func CheckFinite(norm []float64, inds []Indicators) error {
	for i, v := range norm {
		if !finite(v) {
			return fmt.Errorf("%w: normalized price at bar %d", ErrNonFinite, i)
		}
	}
	for i, row := range inds {
		for _, x := range row {
			if !finite(x) {
				return fmt.Errorf("%w: indicator at bar %d", ErrNonFinite, i)
			}
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
