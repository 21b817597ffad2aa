package util

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundPrice rounds half away from zero to the given number of decimal places.
// NaN and infinities are returned unchanged.
func RoundPrice(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// ParseDecimal parses a vendor price string exactly and converts it to float64.
func ParseDecimal(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}
