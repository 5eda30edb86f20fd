package forecast

import (
	"fmt"
	"math"
)

const (
	defaultPercentile = 0.9
	defaultEpisodes   = 100
)

// Uniform repeats the last observed rate with optional symmetric noise.
// Every draw references the same last value rather than feeding back, so
// with max randomness 0 the forecast is a flat repeat of the last rate.
type Uniform struct{}

func (f *Uniform) Name() string { return "Uniform" }

func (f *Uniform) Kind() Kind { return KindRates }

func (f *Uniform) Forecast(ctx Context, series []float64) ([]float64, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("needs at least 1 point")
	}
	maxRandomness := ctx.Params.MaxRandomness
	if maxRandomness < 0 {
		return nil, fmt.Errorf("max randomness must not be negative, got %v", maxRandomness)
	}
	rng := ctx.source()
	last := series[len(series)-1]
	out := append(make([]float64, 0, len(series)+ctx.Horizon), series...)
	for i := 0; i < ctx.Horizon; i++ {
		noise := 0.0
		if maxRandomness > 0 {
			noise = (rng.Float64()*2 - 1) * maxRandomness
		}
		out = append(out, last*(1+noise))
	}
	mustExtend(f.Name(), len(out), len(series), ctx.Horizon)
	return out, nil
}

// MonteCarlo simulates a batch of normally distributed growth outcomes per
// period and appends the chosen percentile of the batch. The distribution
// is centered on the running mean of the series; its spread comes from the
// series' population standard deviation, computed once on the first period
// and reused afterwards unless a sigma is supplied.
type MonteCarlo struct{}

func (f *MonteCarlo) Name() string { return "MonteCarlo" }

func (f *MonteCarlo) Kind() Kind { return KindRates }

func (f *MonteCarlo) Forecast(ctx Context, series []float64) ([]float64, error) {
	out, err := monteCarloWalk(ctx, series, false)
	if err != nil {
		return nil, err
	}
	mustExtend(f.Name(), len(out), len(series), ctx.Horizon)
	return out, nil
}

// ConvergingMonteCarlo runs the Monte Carlo simulation and blends each
// simulated rate with a terminal rate, landing exactly on the terminal rate
// in the final period.
type ConvergingMonteCarlo struct{}

func (f *ConvergingMonteCarlo) Name() string { return "ConvergingMonteCarlo" }

func (f *ConvergingMonteCarlo) Kind() Kind { return KindRates }

func (f *ConvergingMonteCarlo) Forecast(ctx Context, series []float64) ([]float64, error) {
	out, err := monteCarloWalk(ctx, series, true)
	if err != nil {
		return nil, err
	}
	mustExtend(f.Name(), len(out), len(series), ctx.Horizon)
	return out, nil
}

func monteCarloWalk(ctx Context, series []float64, converge bool) ([]float64, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("needs at least 1 point")
	}
	pct := ctx.Params.Percentile
	if pct == 0 {
		pct = defaultPercentile
	}
	if pct < 0 || pct > 1 {
		return nil, fmt.Errorf("percentile must be between 0 and 1, got %v", pct)
	}
	episodes := ctx.Params.Episodes
	if episodes == 0 {
		episodes = defaultEpisodes
	}
	if episodes < 0 {
		return nil, fmt.Errorf("episodes must be positive, got %d", episodes)
	}
	terminal := ctx.Params.TerminalRate
	if converge && terminal == 0 {
		return nil, fmt.Errorf("terminal rate is required and must be non-zero")
	}
	rng := ctx.source()
	sigma := ctx.Params.Sigma
	out := append(make([]float64, 0, len(series)+ctx.Horizon), series...)
	candidates := make([]float64, episodes)
	for i := 0; i < ctx.Horizon; i++ {
		if sigma == 0 {
			sigma = math.Sqrt(popVariance(out))
		}
		mu := mean(out)
		last := out[len(out)-1]
		for j := range candidates {
			candidates[j] = last * (1 + mu + rng.NormFloat64()*sigma)
		}
		next := percentile(candidates, pct)
		if converge {
			weight := float64(i+1) / float64(ctx.Horizon)
			next = (1-weight)*next + weight*terminal
		}
		out = append(out, next)
	}
	return out, nil
}
