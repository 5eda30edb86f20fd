package forecast

import "fmt"

// LinearRate is the one value-kind forecaster: it reads the raw value
// series and returns evenly spaced steps from the last observed value to
// the terminal value. The output has exactly horizon points and the final
// one sits on the terminal value; the first point repeats the last observed
// value, so the glide spans the whole horizon.
type LinearRate struct{}

func (f *LinearRate) Name() string { return "LinearRate" }

func (f *LinearRate) Kind() Kind { return KindValues }

func (f *LinearRate) Forecast(ctx Context, series []float64) ([]float64, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("needs at least 1 point")
	}
	out := linspace(series[len(series)-1], ctx.Params.TerminalRate, ctx.Horizon)
	mustCount(f.Name(), len(out), ctx.Horizon)
	return out, nil
}
