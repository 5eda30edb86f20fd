package models

import (
	"time"

	"autodcf/pkg/core/fundamentals"
)

// ValuationRun is the complete record of one DCF run: the resolved inputs,
// the projected table and the valuation outputs. It is what the store
// persists, the exporters render and the API returns.
type ValuationRun struct {
	ID        string    `json:"id"`
	Ticker    string    `json:"ticker"`
	Method    string    `json:"method"`
	CreatedAt time.Time `json:"created_at"`

	// Resolved inputs
	HistoricalYears   int     `json:"historical_years"`
	ForecastYears     int     `json:"forecast_years"`
	CostOfEquity      float64 `json:"cost_of_equity"`
	CostOfDebt        float64 `json:"cost_of_debt"`
	WACC              float64 `json:"wacc"`
	TaxRate           float64 `json:"tax_rate"`
	TerminalGrowth    float64 `json:"terminal_growth"`
	ExitMultiple      float64 `json:"exit_multiple,omitempty"`
	NetDebt           float64 `json:"net_debt"`
	SharesOutstanding float64 `json:"shares_outstanding"`

	// Valuation outputs
	TerminalValue        float64 `json:"terminal_value"`
	PresentTerminalValue float64 `json:"present_terminal_value"`
	EnterpriseValue      float64 `json:"enterprise_value"`
	EquityValue          float64 `json:"equity_value"`
	ProjectedPrice       float64 `json:"projected_price"`
	CurrentPrice         float64 `json:"current_price,omitempty"`
	Upside               float64 `json:"upside"`

	// Projection snapshot. Skipped columns are removed from the table
	// because their forecast cells were never filled.
	Table          fundamentals.TableData `json:"table"`
	GrowthRates    map[string][]float64   `json:"growth_rates"`
	UnleveredFCF   []float64              `json:"unlevered_fcf"`
	PresentValue   []float64              `json:"present_value"`
	SkippedColumns []string               `json:"skipped_columns,omitempty"`
}
