package forecast

import (
	"fmt"
	"sort"
)

// Registry maps forecaster names to constructors. Keeping the lookup table
// explicit means a config file can only reference methods that actually
// exist, and the failure surfaces during validation instead of mid-run.
type Registry struct {
	forecasters map[string]func() Forecaster
}

// NewRegistry returns a registry with every built-in forecaster registered.
func NewRegistry() *Registry {
	return &Registry{
		forecasters: map[string]func() Forecaster{
			"MovingAverage":                      func() Forecaster { return &MovingAverage{} },
			"ConvergingMovingAverage":            func() Forecaster { return &ConvergingMovingAverage{} },
			"ExponentialMovingAverage":           func() Forecaster { return &ExponentialMovingAverage{} },
			"ConvergingExponentialMovingAverage": func() Forecaster { return &ConvergingExponentialMovingAverage{} },
			"WeightedMovingAverage":              func() Forecaster { return &WeightedMovingAverage{} },
			"ConvergingWeightedMovingAverage":    func() Forecaster { return &ConvergingWeightedMovingAverage{} },
			"MeanReverting":                      func() Forecaster { return &MeanReverting{} },
			"LinearRate":                         func() Forecaster { return &LinearRate{} },
			"Uniform":                            func() Forecaster { return &Uniform{} },
			"MonteCarlo":                         func() Forecaster { return &MonteCarlo{} },
			"ConvergingMonteCarlo":               func() Forecaster { return &ConvergingMonteCarlo{} },
		},
	}
}

// Create instantiates the named forecaster.
func (r *Registry) Create(name string) (Forecaster, error) {
	constructor, exists := r.forecasters[name]
	if !exists {
		return nil, fmt.Errorf("unknown forecaster: %s", name)
	}
	return constructor(), nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, exists := r.forecasters[name]
	return exists
}

// Names lists the registered forecaster names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.forecasters))
	for name := range r.forecasters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
