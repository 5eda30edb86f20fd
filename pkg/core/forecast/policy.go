package forecast

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Forecast modes.
const (
	ModeAuto   = "auto"
	ModeManual = "manual"
	ModeHybrid = "hybrid"
)

// autoSentinel is the config value that asks the engine to substitute its
// computed terminal growth rate.
const autoSentinel = "auto"

// Policy describes how one table column is projected.
type Policy struct {
	// Mode selects the projection source: "auto", "manual" or "hybrid".
	Mode string `json:"mode"`
	// Method names the registered forecaster for auto and hybrid columns.
	Method string `json:"method"`
	// Parameters holds the raw algorithm parameters from the config file.
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	// ManualRates lists explicit period growth rates for manual and hybrid
	// columns.
	ManualRates []interface{} `json:"manual_rates,omitempty"`
}

// ValidatePolicy checks a column policy against the registry and the
// forecast horizon. It covers everything that can be verified without data:
// mode spelling, method existence, manual rate types and counts.
func ValidatePolicy(registry *Registry, column string, policy Policy, horizon int) error {
	switch strings.ToLower(policy.Mode) {
	case ModeAuto:
		if policy.Method == "" {
			return fmt.Errorf("column %s: auto mode requires a method", column)
		}
		if !registry.Has(policy.Method) {
			return fmt.Errorf("column %s: unknown forecaster: %s", column, policy.Method)
		}
	case ModeManual:
		rates, err := manualRates(column, policy.ManualRates)
		if err != nil {
			return err
		}
		if len(rates) != horizon {
			return fmt.Errorf("column %s: manual mode needs exactly %d rates, got %d", column, horizon, len(rates))
		}
	case ModeHybrid:
		if policy.Method == "" {
			return fmt.Errorf("column %s: hybrid mode requires a method", column)
		}
		if !registry.Has(policy.Method) {
			return fmt.Errorf("column %s: unknown forecaster: %s", column, policy.Method)
		}
		rates, err := manualRates(column, policy.ManualRates)
		if err != nil {
			return err
		}
		if len(rates) >= horizon {
			return fmt.Errorf("column %s: hybrid mode needs fewer than %d manual rates, got %d", column, horizon, len(rates))
		}
	default:
		return fmt.Errorf("column %s: unknown forecast mode %q", column, policy.Mode)
	}
	return nil
}

// manualRates converts the raw manual rate list, rejecting non-numeric
// entries with the offending column and position named.
func manualRates(column string, raw []interface{}) ([]float64, error) {
	rates := make([]float64, len(raw))
	for i, value := range raw {
		f, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("column %s: manual rate %d is not a number (%T)", column, i, value)
		}
		rates[i] = f
	}
	return rates, nil
}

func toFloat(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toInt(value interface{}) (int, bool) {
	switch n := value.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}
