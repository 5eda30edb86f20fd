package valuation

import (
	"fmt"
	"math"
)

// CAGR returns the compound annual growth rate between two values as a
// decimal. years is the number of periods between them.
// CAGR = (end/begin)^(1/years) - 1
func CAGR(begin, end float64, years int) (float64, error) {
	if years <= 0 {
		return 0, fmt.Errorf("cagr: years must be positive, got %d", years)
	}
	if begin <= 0 || end <= 0 {
		return 0, fmt.Errorf("cagr: values must be positive (begin %.2f, end %.2f)", begin, end)
	}
	return math.Pow(end/begin, 1/float64(years)) - 1, nil
}

// Upside is the fractional distance from the market price to the modeled
// price. Positive means the model sees the stock as undervalued.
func Upside(modelPrice, marketPrice float64) float64 {
	if marketPrice == 0 {
		return 0
	}
	return (modelPrice - marketPrice) / marketPrice
}

// ExitMultipleFromPeers averages the EV/EBITDA multiples of a peer basket.
// Non-positive multiples are ignored; an empty basket is an error so the
// caller can fall back to the company's own multiple.
func ExitMultipleFromPeers(multiples []float64) (float64, error) {
	var sum float64
	count := 0
	for _, m := range multiples {
		if m <= 0 {
			continue
		}
		sum += m
		count++
	}
	if count == 0 {
		return 0, fmt.Errorf("no usable peer multiples in basket of %d", len(multiples))
	}
	return sum / float64(count), nil
}
