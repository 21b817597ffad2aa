package features

import "math"

// NormalizationParams holds the min/max of a price series.
type NormalizationParams struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Degenerate reports a constant series.
func (p NormalizationParams) Degenerate() bool { return p.Max == p.Min }

// Apply scales v into [0,1]. A constant series maps every value to 0.5.
func (p NormalizationParams) Apply(v float64) float64 {
	if p.Degenerate() {
		return 0.5
	}
	return (v - p.Min) / (p.Max - p.Min)
}

// Invert maps a normalized value back to price scale.
func (p NormalizationParams) Invert(v float64) float64 {
	return Denormalize(v, p.Min, p.Max)
}

// Normalize min/max scales a series. An empty series returns nil and zero params.
func Normalize(series []float64) ([]float64, NormalizationParams) {
	if len(series) == 0 {
		return nil, NormalizationParams{}
	}
	p := NormalizationParams{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range series {
		p.Min = math.Min(p.Min, v)
		p.Max = math.Max(p.Max, v)
	}
	return NormalizeWith(series, p), p
}

// NormalizeWith scales a series using previously computed params.
func NormalizeWith(series []float64, p NormalizationParams) []float64 {
	out := make([]float64, len(series))
	for i, v := range series {
		out[i] = p.Apply(v)
	}
	return out
}

// Denormalize is the inverse of Normalize; values outside [0,1] extrapolate linearly.
func Denormalize(value, min, max float64) float64 {
	return value*(max-min) + min
}
