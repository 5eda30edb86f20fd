package forecast

import "fmt"

const (
	defaultPhi   = 0.7
	defaultKappa = 0.2
)

// MeanReverting projects the next rate from the latest momentum and the
// distance to a long-run terminal rate:
//
//	next = last + phi*(last-prev) - kappa*(last-terminal)
//
// Phi damps momentum and kappa controls the pull towards the terminal rate.
// Defaults are phi 0.7 and kappa 0.2.
type MeanReverting struct{}

func (f *MeanReverting) Name() string { return "MeanReverting" }

func (f *MeanReverting) Kind() Kind { return KindRates }

func (f *MeanReverting) Forecast(ctx Context, series []float64) ([]float64, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("needs at least 2 points, got %d", len(series))
	}
	phi := ctx.Params.Phi
	if phi == 0 {
		phi = defaultPhi
	}
	kappa := ctx.Params.Kappa
	if kappa == 0 {
		kappa = defaultKappa
	}
	terminal := ctx.Params.TerminalRate
	out := append(make([]float64, 0, len(series)+ctx.Horizon), series...)
	for i := 0; i < ctx.Horizon; i++ {
		last := out[len(out)-1]
		prev := out[len(out)-2]
		out = append(out, last+phi*(last-prev)-kappa*(last-terminal))
	}
	mustExtend(f.Name(), len(out), len(series), ctx.Horizon)
	return out, nil
}
