// Package config loads and validates the per-run valuation configuration.
// Run files are written in Hjson so they tolerate comments and unquoted
// keys; every omitted field falls back to a built-in default.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"autodcf/pkg/core/forecast"
	"autodcf/pkg/core/fundamentals"
	"autodcf/pkg/core/valuation"
)

// AutoFloat is a config value that is either an explicit number or the
// literal sentinel "auto" (any casing), meaning "compute it for me". The
// zero value counts as auto, so omitted keys ask for computation.
type AutoFloat struct {
	Value float64
	Auto  bool
}

func (a *AutoFloat) UnmarshalJSON(data []byte) error {
	var number float64
	if err := json.Unmarshal(data, &number); err == nil {
		*a = AutoFloat{Value: number}
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		text = strings.TrimSpace(text)
		if strings.EqualFold(text, "auto") {
			*a = AutoFloat{Auto: true}
			return nil
		}
		if number, err := strconv.ParseFloat(text, 64); err == nil {
			*a = AutoFloat{Value: number}
			return nil
		}
	}
	return fmt.Errorf("expected a number or \"auto\", got %s", string(data))
}

func (a AutoFloat) MarshalJSON() ([]byte, error) {
	if !a.IsSet() {
		return []byte(`"auto"`), nil
	}
	return json.Marshal(a.Value)
}

// IsSet reports whether an explicit non-zero value was provided.
func (a AutoFloat) IsSet() bool { return !a.Auto && a.Value != 0 }

// Or returns the explicit value when set, otherwise the computed fallback.
func (a AutoFloat) Or(computed float64) float64 {
	if a.IsSet() {
		return a.Value
	}
	return computed
}

// Overrides are the manual escape hatches. Each one replaces a figure the
// pipeline would otherwise derive from market data.
type Overrides struct {
	WACC              AutoFloat `json:"wacc"`
	TerminalGrowth    AutoFloat `json:"terminal_growth"`
	SharesOutstanding AutoFloat `json:"shares_outstanding"`
	ExitMultiple      AutoFloat `json:"exit_multiple"`
	CurrentPrice      AutoFloat `json:"current_price"`
	Beta              AutoFloat `json:"beta"`
	RiskFreeRate      AutoFloat `json:"risk_free_rate"`
	EquityRiskPremium AutoFloat `json:"equity_risk_premium"`
}

// ExportConfig selects the artifacts written after a successful run.
type ExportConfig struct {
	Excel bool   `json:"excel"`
	Dir   string `json:"dir"`
}

// Config is one valuation run: which company, how much history, how far to
// project, and how each DCF column is forecast.
type Config struct {
	// Ticker is the stock symbol to value.
	Ticker string `json:"ticker"`
	// Years is the historical lookback in fiscal years.
	Years int `json:"years"`
	// ForecastYears is the projection horizon.
	ForecastYears int `json:"forecast_years"`
	// Method picks the terminal value treatment, "perpetuity" or
	// "exit_multiple".
	Method string `json:"method"`
	// Seed makes the stochastic forecasters reproducible. Zero seeds from
	// the clock.
	Seed int64 `json:"seed"`
	// Rates maps DCF table columns to their forecast policies.
	Rates map[string]forecast.Policy `json:"rates"`
	// Peers lists tickers whose EV/EBITDA multiples feed the exit multiple
	// when no override is given.
	Peers []string `json:"peers"`

	Overrides Overrides    `json:"overrides"`
	Export    ExportConfig `json:"export"`
}

// Defaults is the baseline every run file is merged onto: four years of
// history, a five year projection, perpetuity terminal value, and a
// trailing-mean forecast per column with revenue converging onto the
// terminal growth rate.
func Defaults() Config {
	return Config{
		Years:         4,
		ForecastYears: 5,
		Method:        valuation.MethodPerpetuity,
		Rates:         defaultRates(),
		Export:        ExportConfig{Dir: "output"},
	}
}

func defaultRates() map[string]forecast.Policy {
	rates := make(map[string]forecast.Policy, len(fundamentals.DCFColumns))
	for _, column := range fundamentals.DCFColumns {
		rates[column] = forecast.Policy{
			Mode:       forecast.ModeAuto,
			Method:     "MovingAverage",
			Parameters: map[string]interface{}{"window": 3},
		}
	}
	rates[fundamentals.ColRevenue] = forecast.Policy{
		Mode:   forecast.ModeAuto,
		Method: "ConvergingMovingAverage",
		Parameters: map[string]interface{}{
			"window":        3,
			"terminal_rate": "auto",
		},
	}
	return rates
}

// withDefaults merges the parsed file onto Defaults. The rate map merges
// column-wise, so overriding one column keeps the defaults for the rest.
func (c Config) withDefaults() Config {
	defaults := Defaults()
	if c.Years == 0 {
		c.Years = defaults.Years
	}
	if c.ForecastYears == 0 {
		c.ForecastYears = defaults.ForecastYears
	}
	if c.Method == "" {
		c.Method = defaults.Method
	}
	if c.Export.Dir == "" {
		c.Export.Dir = defaults.Export.Dir
	}
	merged := defaults.Rates
	for column, policy := range c.Rates {
		merged[column] = policy
	}
	c.Rates = merged
	return c
}

// Validate fails fast on anything the pipeline could only discover
// mid-run: bad method names, malformed policies, nonsense horizons.
func (c Config) Validate(registry *forecast.Registry) error {
	if strings.TrimSpace(c.Ticker) == "" {
		return fmt.Errorf("config: ticker is required")
	}
	if c.Years < 1 {
		return fmt.Errorf("config: years must be at least 1, got %d", c.Years)
	}
	if c.ForecastYears < 1 {
		return fmt.Errorf("config: forecast_years must be at least 1, got %d", c.ForecastYears)
	}
	switch c.Method {
	case valuation.MethodPerpetuity, valuation.MethodExitMultiple:
	default:
		return fmt.Errorf("config: unknown valuation method %q", c.Method)
	}
	for column, policy := range c.Rates {
		if err := forecast.ValidatePolicy(registry, column, policy, c.ForecastYears); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}
