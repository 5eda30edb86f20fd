package forecast

import "fmt"

// WeightedMovingAverage appends the dot product of the supplied weights and
// the trailing window of values. Weights apply oldest to newest and are used
// as-is: a set that does not sum to 1 scales the forecast accordingly.
type WeightedMovingAverage struct{}

func (f *WeightedMovingAverage) Name() string { return "WeightedMovingAverage" }

func (f *WeightedMovingAverage) Kind() Kind { return KindRates }

func (f *WeightedMovingAverage) Forecast(ctx Context, series []float64) ([]float64, error) {
	window := ctx.Params.Window
	weights := ctx.Params.Weights
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", window)
	}
	if len(weights) != window {
		return nil, fmt.Errorf("weights length %d does not match window %d", len(weights), window)
	}
	if window > len(series) {
		return nil, fmt.Errorf("window %d exceeds available history (%d points)", window, len(series))
	}
	out := append(make([]float64, 0, len(series)+ctx.Horizon), series...)
	for i := 0; i < ctx.Horizon; i++ {
		out = append(out, dot(weights, out[len(out)-window:]))
	}
	mustExtend(f.Name(), len(out), len(series), ctx.Horizon)
	return out, nil
}

// ConvergingWeightedMovingAverage blends the weighted moving average with a
// terminal rate, landing exactly on the terminal rate in the final period.
type ConvergingWeightedMovingAverage struct{}

func (f *ConvergingWeightedMovingAverage) Name() string { return "ConvergingWeightedMovingAverage" }

func (f *ConvergingWeightedMovingAverage) Kind() Kind { return KindRates }

func (f *ConvergingWeightedMovingAverage) Forecast(ctx Context, series []float64) ([]float64, error) {
	window := ctx.Params.Window
	weights := ctx.Params.Weights
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", window)
	}
	if len(weights) != window {
		return nil, fmt.Errorf("weights length %d does not match window %d", len(weights), window)
	}
	if window > len(series) {
		return nil, fmt.Errorf("window %d exceeds available history (%d points)", window, len(series))
	}
	terminal := ctx.Params.TerminalRate
	if terminal == 0 {
		return nil, fmt.Errorf("terminal rate is required and must be non-zero")
	}
	out := append(make([]float64, 0, len(series)+ctx.Horizon), series...)
	for i := 0; i < ctx.Horizon; i++ {
		avg := dot(weights, out[len(out)-window:])
		weight := float64(i+1) / float64(ctx.Horizon)
		out = append(out, (1-weight)*avg+weight*terminal)
	}
	mustExtend(f.Name(), len(out), len(series), ctx.Horizon)
	return out, nil
}

func dot(weights, values []float64) float64 {
	var sum float64
	for i, w := range weights {
		sum += w * values[i]
	}
	return sum
}
