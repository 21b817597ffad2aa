package features

import (
	"math"

	"StockBrain/internal/domain/models"

	"github.com/markcheno/go-talib"
)

// IndicatorCount is the number of derived values appended to each price window.
const IndicatorCount = 6

const (
	IdxSMA5Ratio = iota
	IdxSMA10Ratio
	IdxSMA20Ratio
	IdxVolatility
	IdxMomentum
	IdxVolumeRatio
)

const (
	volatilityWindow = 10
	momentumLag      = 5
	volumeWindow     = 10
)

// Indicators are the raw (unsquashed) technical values for one bar.
type Indicators [IndicatorCount]float64

// Squashed maps every value through Squash.
func (ind Indicators) Squashed() []float64 {
	out := make([]float64, IndicatorCount)
	for i, v := range ind {
		out[i] = Squash(v)
	}
	return out
}

// Squash is the fixed indicator normalization: clamp((x+1)/2, 0, 1).
func Squash(x float64) float64 {
	return math.Max(0, math.Min(1, (x+1)/2))
}

// ComputeIndicators derives the per-bar indicator vectors. Bar i only sees bars <= i.
func ComputeIndicators(bars []models.PriceBar) []Indicators {
	if len(bars) == 0 {
		return nil
	}
	prices := models.Prices(bars)
	volumes := models.Volumes(bars)

	sma5 := trailingSMA(prices, 5)
	sma10 := trailingSMA(prices, 10)
	sma20 := trailingSMA(prices, 20)
	std10 := trailingStdDev(prices, volatilityWindow)
	vol10 := trailingSMA(volumes, volumeWindow)

	out := make([]Indicators, len(bars))
	for i, p := range prices {
		var ind Indicators
		ind[IdxSMA5Ratio] = p / orPrice(sma5, i, 5, p)
		ind[IdxSMA10Ratio] = p / orPrice(sma10, i, 10, p)
		ind[IdxSMA20Ratio] = p / orPrice(sma20, i, 20, p)
		if i >= volatilityWindow-1 {
			ind[IdxVolatility] = std10[i] / p
		}
		if i >= momentumLag {
			ind[IdxMomentum] = (p - prices[i-momentumLag]) / prices[i-momentumLag]
		}
		ind[IdxVolumeRatio] = 1
		if volumes[i] > 0 {
			avg := volumes[i]
			if i >= volumeWindow-1 {
				avg = vol10[i]
			}
			ind[IdxVolumeRatio] = volumes[i] / avg
		}
		out[i] = ind
	}
	return out
}

// Volatility is the population std-dev of the last n prices (0 for fewer than 2).
func Volatility(prices []float64, n int) float64 {
	if len(prices) > n {
		prices = prices[len(prices)-n:]
	}
	if len(prices) < 2 {
		return 0
	}
	std := talib.StdDev(prices, len(prices), 1)
	return std[len(std)-1]
}

// trailingSMA returns talib's SMA series, or nil when the series is shorter than the period.
func trailingSMA(series []float64, period int) []float64 {
	if len(series) < period {
		return nil
	}
	return talib.Sma(series, period)
}

func trailingStdDev(series []float64, period int) []float64 {
	if len(series) < period {
		return nil
	}
	return talib.StdDev(series, period, 1)
}

// orPrice falls back to the price itself until the average has enough history.
func orPrice(sma []float64, i, period int, price float64) float64 {
	if sma == nil || i < period-1 {
		return price
	}
	return sma[i]
}
