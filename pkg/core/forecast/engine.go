package forecast

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"autodcf/pkg/core/fundamentals"
)

// Engine fills the forecast periods of a statement table by applying each
// column's policy. Columns without a policy are skipped with a warning so a
// single run surfaces every gap; everything else fails fast, because a
// partially forecast table would corrupt the valuation downstream.
type Engine struct {
	registry *Registry
	terminal float64
	rng      *rand.Rand
}

// NewEngine builds an engine. terminal is the growth rate substituted for
// the "auto" sentinel in policy parameters. seed fixes the random source
// used by stochastic forecasters; pass 0 to seed from the clock.
func NewEngine(registry *Registry, terminal float64, seed int64) *Engine {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		registry: registry,
		terminal: terminal,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Result carries the filled table and the growth series behind it.
type Result struct {
	// Table is the input table with every policied column's future cells
	// populated.
	Table fundamentals.Table
	// Rates maps each forecast column to its full growth series: the
	// historical percent changes followed by the applied forecast rates.
	Rates map[string][]float64
	// Skipped lists columns that had no policy and were left unfilled.
	Skipped []string
}

// Run validates every policy, then walks the table columns in order and
// fills their forecast periods. Policies that reference a column the table
// does not have are fatal; table columns without a policy are skipped.
func (e *Engine) Run(table fundamentals.Table, policies map[string]Policy) (*Result, error) {
	horizon := table.Horizon()
	if horizon <= 0 {
		return nil, fmt.Errorf("table has no forecast periods")
	}
	columns := table.Columns()
	known := make(map[string]bool, len(columns))
	for _, column := range columns {
		known[column] = true
	}
	for column := range policies {
		if !known[column] {
			return nil, fmt.Errorf("rate policy for %q does not match any table column %v", column, columns)
		}
	}
	for _, column := range columns {
		policy, ok := policies[column]
		if !ok {
			continue
		}
		if err := ValidatePolicy(e.registry, column, policy, horizon); err != nil {
			return nil, err
		}
	}

	result := &Result{Rates: make(map[string][]float64, len(columns))}
	skipped := make(map[string]bool)
	for _, column := range columns {
		policy, ok := policies[column]
		if !ok {
			fmt.Printf("[WARN] no forecast policy for column %s, leaving it unfilled\n", column)
			result.Skipped = append(result.Skipped, column)
			skipped[column] = true
			continue
		}
		rates, values, err := e.forecastColumn(table, column, policy, horizon)
		if err != nil {
			return nil, err
		}
		filled, err := table.FillColumn(column, values)
		if err != nil {
			return nil, err
		}
		table = filled
		result.Rates[column] = rates
	}

	for _, column := range columns {
		if skipped[column] {
			continue
		}
		gaps, err := table.HasGaps(column)
		if err != nil {
			return nil, err
		}
		if gaps {
			return nil, fmt.Errorf("column %s still has unfilled values after forecasting", column)
		}
	}
	result.Table = table
	return result, nil
}

// forecastColumn produces the future values for one column along with the
// full growth series that was applied.
func (e *Engine) forecastColumn(table fundamentals.Table, column string, policy Policy, horizon int) (rates, values []float64, err error) {
	hist, err := table.Historical(column)
	if err != nil {
		return nil, nil, err
	}
	if len(hist) == 0 {
		return nil, nil, fmt.Errorf("column %s: no historical values", column)
	}
	last := hist[len(hist)-1]

	switch strings.ToLower(policy.Mode) {
	case ModeManual:
		manual, err := manualRates(column, policy.ManualRates)
		if err != nil {
			return nil, nil, err
		}
		values = Compound(last, manual)
		rates = append(PercentChange(hist), manual...)
		return rates, values, nil
	case ModeAuto:
		return e.autoForecast(column, policy, hist, nil, horizon)
	case ModeHybrid:
		manual, err := manualRates(column, policy.ManualRates)
		if err != nil {
			return nil, nil, err
		}
		prefix := Compound(last, manual)
		return e.autoForecast(column, policy, hist, prefix, horizon)
	}
	return nil, nil, fmt.Errorf("column %s: unknown forecast mode %q", column, policy.Mode)
}

// autoForecast runs the column's forecaster over the historical series plus
// any manually compounded prefix, producing the remaining future values.
// The prefix ordering matters: manual rates are applied to the values
// first, and the forecaster then reads the series including those periods.
func (e *Engine) autoForecast(column string, policy Policy, hist, prefix []float64, horizon int) (rates, values []float64, err error) {
	forecaster, err := e.registry.Create(policy.Method)
	if err != nil {
		return nil, nil, fmt.Errorf("column %s: %w", column, err)
	}
	params, err := e.resolveParams(column, policy.Parameters)
	if err != nil {
		return nil, nil, err
	}
	combined := append(append([]float64(nil), hist...), prefix...)
	base := combined[len(combined)-1]
	ctx := Context{Horizon: horizon - len(prefix), Params: params, Rand: e.rng}

	if forecaster.Kind() == KindValues {
		tail, err := forecaster.Forecast(ctx, combined)
		if err != nil {
			return nil, nil, fmt.Errorf("column %s: %w", column, err)
		}
		values = append(append([]float64(nil), prefix...), tail...)
		rates = append(PercentChange(combined), impliedRates(base, tail)...)
		return rates, values, nil
	}

	pct := PercentChange(combined)
	extended, err := forecaster.Forecast(ctx, pct)
	if err != nil {
		return nil, nil, fmt.Errorf("column %s: %w", column, err)
	}
	tail := extended[len(pct):]
	values = append(append([]float64(nil), prefix...), Compound(base, tail)...)
	return extended, values, nil
}

// resolveParams converts the raw parameter map into typed Params, applying
// the "auto" terminal rate substitution. Unknown keys and wrong types are
// fatal with the column named.
func (e *Engine) resolveParams(column string, raw map[string]interface{}) (Params, error) {
	var params Params
	for key, value := range raw {
		switch key {
		case "window":
			n, ok := toInt(value)
			if !ok {
				return params, fmt.Errorf("column %s: parameter window must be an integer (%T)", column, value)
			}
			params.Window = n
		case "episodes":
			n, ok := toInt(value)
			if !ok {
				return params, fmt.Errorf("column %s: parameter episodes must be an integer (%T)", column, value)
			}
			params.Episodes = n
		case "terminal_rate":
			if s, ok := value.(string); ok {
				if strings.EqualFold(s, autoSentinel) {
					params.TerminalRate = e.terminal
					continue
				}
				return params, fmt.Errorf("column %s: parameter terminal_rate must be a number or %q", column, autoSentinel)
			}
			f, ok := toFloat(value)
			if !ok {
				return params, fmt.Errorf("column %s: parameter terminal_rate must be a number (%T)", column, value)
			}
			params.TerminalRate = f
		case "weights":
			list, ok := value.([]interface{})
			if !ok {
				return params, fmt.Errorf("column %s: parameter weights must be a list (%T)", column, value)
			}
			weights := make([]float64, len(list))
			for i, entry := range list {
				f, ok := toFloat(entry)
				if !ok {
					return params, fmt.Errorf("column %s: weight %d is not a number (%T)", column, i, entry)
				}
				weights[i] = f
			}
			params.Weights = weights
		case "alpha", "phi", "kappa", "percentile", "sigma", "max_randomness":
			f, ok := toFloat(value)
			if !ok {
				return params, fmt.Errorf("column %s: parameter %s must be a number (%T)", column, key, value)
			}
			switch key {
			case "alpha":
				params.Alpha = f
			case "phi":
				params.Phi = f
			case "kappa":
				params.Kappa = f
			case "percentile":
				params.Percentile = f
			case "sigma":
				params.Sigma = f
			case "max_randomness":
				params.MaxRandomness = f
			}
		default:
			return params, fmt.Errorf("column %s: unknown parameter %q", column, key)
		}
	}
	return params, nil
}

// impliedRates back-computes the growth implied by a run of absolute
// values, so value forecasts can be reported alongside rate forecasts.
func impliedRates(base float64, values []float64) []float64 {
	rates := make([]float64, len(values))
	prev := base
	for i, value := range values {
		if prev != 0 {
			rates[i] = value/prev - 1
		}
		prev = value
	}
	return rates
}
