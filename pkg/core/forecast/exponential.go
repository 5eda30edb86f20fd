package forecast

import "fmt"

// ExponentialMovingAverage appends a smoothed next rate built from the
// trailing window mean and the latest value:
//
//	next = alpha*mean(window) + (1-alpha)*last
//
// Alpha defaults to the standard 2/(window+1) smoothing factor.
type ExponentialMovingAverage struct{}

func (f *ExponentialMovingAverage) Name() string { return "ExponentialMovingAverage" }

func (f *ExponentialMovingAverage) Kind() Kind { return KindRates }

func (f *ExponentialMovingAverage) Forecast(ctx Context, series []float64) ([]float64, error) {
	window := ctx.Params.Window
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", window)
	}
	if window > len(series) {
		return nil, fmt.Errorf("window %d exceeds available history (%d points)", window, len(series))
	}
	alpha := ctx.Params.Alpha
	if alpha == 0 {
		alpha = 2 / float64(window+1)
	}
	out := append(make([]float64, 0, len(series)+ctx.Horizon), series...)
	for i := 0; i < ctx.Horizon; i++ {
		avg := mean(out[len(out)-window:])
		last := out[len(out)-1]
		out = append(out, alpha*avg+(1-alpha)*last)
	}
	mustExtend(f.Name(), len(out), len(series), ctx.Horizon)
	return out, nil
}

// ConvergingExponentialMovingAverage runs the exponential moving average and
// pulls each new rate towards a terminal rate, reaching it exactly in the
// final period.
type ConvergingExponentialMovingAverage struct{}

func (f *ConvergingExponentialMovingAverage) Name() string {
	return "ConvergingExponentialMovingAverage"
}

func (f *ConvergingExponentialMovingAverage) Kind() Kind { return KindRates }

func (f *ConvergingExponentialMovingAverage) Forecast(ctx Context, series []float64) ([]float64, error) {
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
	alpha := ctx.Params.Alpha
	if alpha == 0 {
		alpha = 2 / float64(window+1)
	}
	out := append(make([]float64, 0, len(series)+ctx.Horizon), series...)
	for i := 0; i < ctx.Horizon; i++ {
		avg := mean(out[len(out)-window:])
		last := out[len(out)-1]
		ema := alpha*avg + (1-alpha)*last
		weight := float64(i+1) / float64(ctx.Horizon)
		out = append(out, (1-weight)*ema+weight*terminal)
	}
	mustExtend(f.Name(), len(out), len(series), ctx.Horizon)
	return out, nil
}
