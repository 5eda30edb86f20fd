package forecast

import "fmt"

// MovingAverage extends a rate series with the mean of the trailing window.
// Each new value is appended before the next one is computed, so the
// forecast feeds back into the window.
type MovingAverage struct{}

func (f *MovingAverage) Name() string { return "MovingAverage" }

func (f *MovingAverage) Kind() Kind { return KindRates }

func (f *MovingAverage) Forecast(ctx Context, series []float64) ([]float64, error) {
	window := ctx.Params.Window
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", window)
	}
	if window > len(series) {
		return nil, fmt.Errorf("window %d exceeds available history (%d points)", window, len(series))
	}
	out := append(make([]float64, 0, len(series)+ctx.Horizon), series...)
	for i := 0; i < ctx.Horizon; i++ {
		out = append(out, mean(out[len(out)-window:]))
	}
	mustExtend(f.Name(), len(out), len(series), ctx.Horizon)
	return out, nil
}

// ConvergingMovingAverage blends the trailing moving average with a terminal
// rate, weighting the terminal rate more heavily towards the end of the
// horizon. The final period lands exactly on the terminal rate.
type ConvergingMovingAverage struct{}

func (f *ConvergingMovingAverage) Name() string { return "ConvergingMovingAverage" }

func (f *ConvergingMovingAverage) Kind() Kind { return KindRates }

func (f *ConvergingMovingAverage) Forecast(ctx Context, series []float64) ([]float64, error) {
	window := ctx.Params.Window
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", window)
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
		weight := float64(i+1) / float64(ctx.Horizon)
		avg := mean(out[len(out)-window:])
		out = append(out, (1-weight)*avg+weight*terminal)
	}
	mustExtend(f.Name(), len(out), len(series), ctx.Horizon)
	return out, nil
}
