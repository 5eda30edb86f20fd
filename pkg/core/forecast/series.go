package forecast

import (
	"math"
	"sort"
)

// PercentChange converts an absolute value series into period-over-period
// fractional changes. The first element of the result is always 0 because
// the first value has no prior period to compare against. Changes that come
// out non-finite (the previous value was zero) are dropped.
func PercentChange(values []float64) []float64 {
	if len(values) == 0 {
		return []float64{}
	}
	changes := make([]float64, 0, len(values))
	changes = append(changes, 0)
	for i := 1; i < len(values); i++ {
		change := (values[i] - values[i-1]) / values[i-1]
		if math.IsNaN(change) || math.IsInf(change, 0) {
			continue
		}
		changes = append(changes, change)
	}
	return changes
}

// Compound applies successive growth rates to a starting value:
// out[i] = base * (1+rates[0]) * ... * (1+rates[i]).
func Compound(base float64, rates []float64) []float64 {
	out := make([]float64, len(rates))
	value := base
	for i, rate := range rates {
		value *= 1 + rate
		out[i] = value
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// popVariance is the population variance (divide by N, not N-1).
func popVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

// percentile returns the q-th percentile (q in [0, 1]) of values, using
// linear interpolation between the two nearest ranks.
func percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := q * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// linspace returns n evenly spaced values from start to stop. The endpoint
// is included; with n == 1 only the start is returned.
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}
