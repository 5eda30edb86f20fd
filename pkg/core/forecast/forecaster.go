// Package forecast projects financial series into future periods. Every
// projection algorithm implements the Forecaster interface and is looked up
// by name through a Registry, so config files name methods explicitly and an
// unknown method fails before any computation starts. The Engine applies a
// per-column Policy (auto, manual or hybrid) to a statement table and fills
// in its forecast periods.
package forecast

import (
	"fmt"
	"math/rand"
	"time"
)

// Kind tells the engine how to interpret a forecaster's output.
type Kind int

const (
	// KindRates marks forecasters that consume a percent-change series and
	// return it extended by the horizon. The engine compounds the appended
	// rates into future values.
	KindRates Kind = iota
	// KindValues marks forecasters that consume the raw value series and
	// return exactly one value per forecast period, written into the table
	// as-is.
	KindValues
)

// Params carries the tuning knobs a forecaster may use. A zero value means
// "not set": forecasters fall back to their documented defaults where one
// exists and reject the input where the parameter is required.
type Params struct {
	Window        int
	Weights       []float64
	TerminalRate  float64
	Alpha         float64
	Phi           float64
	Kappa         float64
	Percentile    float64
	Episodes      int
	Sigma         float64
	MaxRandomness float64
}

// Context bundles the inputs shared by every forecaster invocation.
type Context struct {
	// Horizon is the number of future periods to produce.
	Horizon int
	// Params holds the algorithm parameters resolved from the column policy.
	Params Params
	// Rand is the random source for stochastic forecasters. When nil, a
	// time-seeded source is used.
	Rand *rand.Rand
}

// source returns the random source for this invocation.
func (c Context) source() *rand.Rand {
	if c.Rand != nil {
		return c.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Forecaster is a single projection algorithm. Implementations are
// stateless: everything they need arrives through the context and the
// series argument.
type Forecaster interface {
	// Name returns the identifier the registry and config files use.
	Name() string
	// Kind reports how the engine should treat the output series.
	Kind() Kind
	// Forecast extends series by ctx.Horizon periods. Rate forecasters
	// return the full input plus the new periods; value forecasters return
	// only the new periods.
	Forecast(ctx Context, series []float64) ([]float64, error)
}

// mustExtend checks the output length contract for rate forecasters. A
// violation is a bug in the forecaster itself, not bad input.
func mustExtend(name string, got, have, horizon int) {
	if got != have+horizon {
		panic(fmt.Sprintf("%s: size mismatch: %d != %d", name, got, have+horizon))
	}
}

// mustCount is the value-forecaster equivalent of mustExtend.
func mustCount(name string, got, horizon int) {
	if got != horizon {
		panic(fmt.Sprintf("%s: size mismatch: %d != %d", name, got, horizon))
	}
}
