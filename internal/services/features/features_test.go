package features

import (
	"math"
	"testing"

	"StockBrain/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearBars(n int, start, step float64) []models.PriceBar {
	bars := make([]models.PriceBar, n)
	for i := range bars {
		bars[i] = models.PriceBar{
			Date:   "2024-01-01",
			Price:  start + float64(i)*step,
			Volume: 100,
		}
	}
	return bars
}

func TestNormalize(t *testing.T) {
	norm, p := Normalize([]float64{10, 20, 15, 30})
	assert.Equal(t, NormalizationParams{Min: 10, Max: 30}, p)
	assert.Equal(t, []float64{0, 0.5, 0.25, 1}, norm)

	for i, v := range norm {
		assert.InDelta(t, []float64{10, 20, 15, 30}[i], p.Invert(v), 1e-9)
	}
}

func TestNormalizeConstantSeries(t *testing.T) {
	norm, p := Normalize([]float64{42, 42, 42})
	assert.True(t, p.Degenerate())
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, norm)
	assert.Equal(t, 42.0, Denormalize(0.5, p.Min, p.Max))
}

func TestNormalizeEmpty(t *testing.T) {
	norm, p := Normalize(nil)
	assert.Nil(t, norm)
	assert.Equal(t, NormalizationParams{}, p)
}

func TestDenormalizeExtrapolates(t *testing.T) {
	assert.InDelta(t, 120.0, Denormalize(1.2, 0, 100), 1e-9)
	assert.InDelta(t, -10.0, Denormalize(-0.1, 0, 100), 1e-9)
}

func TestSquash(t *testing.T) {
	assert.Equal(t, 0.5, Squash(0))
	assert.Equal(t, 1.0, Squash(1))
	assert.Equal(t, 1.0, Squash(5))
	assert.Equal(t, 0.0, Squash(-3))
	assert.InDelta(t, 0.75, Squash(0.5), 1e-12)
}

func TestComputeIndicatorsWarmup(t *testing.T) {
	inds := ComputeIndicators(linearBars(3, 10, 1))
	require.Len(t, inds, 3)
	for _, ind := range inds {
		assert.Equal(t, 1.0, ind[IdxSMA5Ratio])
		assert.Equal(t, 1.0, ind[IdxSMA10Ratio])
		assert.Equal(t, 1.0, ind[IdxSMA20Ratio])
		assert.Equal(t, 0.0, ind[IdxVolatility])
		assert.Equal(t, 0.0, ind[IdxMomentum])
		assert.Equal(t, 1.0, ind[IdxVolumeRatio])
	}
}

func TestComputeIndicatorsValues(t *testing.T) {
	inds := ComputeIndicators(linearBars(10, 1, 1))
	require.Len(t, inds, 10)

	// sma5 at bar 4 is mean(1..5) = 3
	assert.InDelta(t, 5.0/3.0, inds[4][IdxSMA5Ratio], 1e-9)
	assert.Equal(t, 1.0, inds[3][IdxSMA5Ratio])

	// momentum at bar 5: (6-1)/1
	assert.InDelta(t, 5.0, inds[5][IdxMomentum], 1e-9)
	assert.Equal(t, 0.0, inds[4][IdxMomentum])

	assert.InDelta(t, math.Sqrt(8.25)/10, inds[9][IdxVolatility], 1e-9)
	assert.Equal(t, 0.0, inds[8][IdxVolatility])

	assert.InDelta(t, 10.0/5.5, inds[9][IdxSMA10Ratio], 1e-9)
	assert.Equal(t, 1.0, inds[9][IdxSMA20Ratio])
}

func TestComputeIndicatorsVolume(t *testing.T) {
	bars := linearBars(12, 10, 0)
	for i := range bars {
		bars[i].Volume = 100
	}
	bars[11].Volume = 300
	bars[10].Volume = 0

	inds := ComputeIndicators(bars)
	assert.Equal(t, 1.0, inds[10][IdxVolumeRatio])
	// window 2..11 sums to 8*100 + 0 + 300
	assert.InDelta(t, 300.0/110.0, inds[11][IdxVolumeRatio], 1e-9)
	assert.Equal(t, 1.0, inds[5][IdxVolumeRatio])
}

func TestComputeIndicatorsEmpty(t *testing.T) {
	assert.Nil(t, ComputeIndicators(nil))
}

func TestVolatility(t *testing.T) {
	assert.Equal(t, 0.0, Volatility([]float64{5}, 10))
	assert.Equal(t, 0.0, Volatility(nil, 10))
	assert.InDelta(t, 1.0, Volatility([]float64{1, 3}, 10), 1e-9)
	// only the last 2 are used
	assert.InDelta(t, 0.5, Volatility([]float64{100, 1, 2}, 2), 1e-9)
}

func TestBuildTrainingSet(t *testing.T) {
	bars := linearBars(30, 100, 1)
	set, err := BuildTrainingSet(bars, 10)
	require.NoError(t, err)
	require.Len(t, set.Examples, 20)

	assert.Equal(t, NormalizationParams{Min: 100, Max: 129}, set.Params)
	for i, ex := range set.Examples {
		require.Len(t, ex.Input, InputSize(10))
		require.Len(t, ex.Target, 1)
		assert.Equal(t, set.Normalized[i+10], ex.Target[0])
		assert.Equal(t, set.Normalized[i:i+10], ex.Input[:10])
		for _, v := range ex.Input {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestBuildTrainingSetInsufficient(t *testing.T) {
	_, err := BuildTrainingSet(linearBars(5, 100, 1), 10)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = BuildTrainingSet(linearBars(10, 100, 1), 10)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = BuildTrainingSet(linearBars(30, 100, 1), 0)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestBuildTrainingSetExampleCount(t *testing.T) {
	for _, n := range []int{11, 15, 19, 20, 25} {
		set, err := BuildTrainingSet(linearBars(n, 100, 1), 10)
		require.NoError(t, err, "%d bars", n)
		assert.Len(t, set.Examples, n-10, "%d bars", n)
	}
}

func TestCheckFinite(t *testing.T) {
	var ind Indicators
	assert.NoError(t, CheckFinite([]float64{0, 0.5, 1}, []Indicators{ind}))
	assert.ErrorIs(t, CheckFinite([]float64{0, math.NaN()}, nil), ErrNonFinite)

	ind[IdxMomentum] = math.Inf(1)
	assert.ErrorIs(t, CheckFinite([]float64{0.5}, []Indicators{ind}), ErrNonFinite)
}

func TestFeatureVector(t *testing.T) {
	var ind Indicators
	ind[IdxMomentum] = 1
	v := FeatureVector([]float64{0.1, 0.2}, ind)
	assert.Equal(t, []float64{0.1, 0.2, 0.5, 0.5, 0.5, 0.5, 1, 0.5}, v)
}

func TestBuildTrainingSetNonFinite(t *testing.T) {
	bars := linearBars(25, 100, 1)
	bars[12].Price = math.Inf(1)
	_, err := BuildTrainingSet(bars, 10)
	assert.ErrorIs(t, err, ErrNonFinite)
}
