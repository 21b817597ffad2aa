package models

// PriceBar is one observed market sample. Price is the close and must be positive.
type PriceBar struct {
	Date   string  `json:"date" validate:"required"`
	Price  float64 `json:"price" validate:"gt=0"`
	Open   float64 `json:"open,omitempty"`
	High   float64 `json:"high,omitempty"`
	Low    float64 `json:"low,omitempty"`
	Volume float64 `json:"volume,omitempty"`
}

// WithDefaults fills missing open/high/low with the price.
func (b PriceBar) WithDefaults() PriceBar {
	if b.Open == 0 {
		b.Open = b.Price
	}
	if b.High == 0 {
		b.High = b.Price
	}
	if b.Low == 0 {
		b.Low = b.Price
	}
	if b.Volume < 0 {
		b.Volume = 0
	}
	return b
}

// Prices extracts the close series.
func Prices(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Price
	}
	return out
}

// Volumes extracts the volume series.
func Volumes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}
