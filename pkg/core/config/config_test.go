package config

import (
	"strings"
	"testing"

	"autodcf/pkg/core/forecast"
	"autodcf/pkg/core/valuation"
)

func TestParse_HJSONRunFile(t *testing.T) {
	input := `
{
  # quick perpetuity run
  ticker: AAPL
  forecast_years: 6
  seed: 42
  rates: {
    revenue: {
      mode: auto
      method: ExponentialMovingAverage
      parameters: { window: 3 }
    }
  }
  overrides: {
    wacc: 0.085
    terminal_growth: auto
  }
}
`
	cfg, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Ticker != "AAPL" {
		t.Errorf("expected AAPL, got %s", cfg.Ticker)
	}
	if cfg.ForecastYears != 6 {
		t.Errorf("expected 6 forecast years, got %d", cfg.ForecastYears)
	}
	if cfg.Seed != 42 {
		t.Errorf("expected seed 42, got %d", cfg.Seed)
	}

	// Defaults fill what the file left out.
	if cfg.Years != 4 {
		t.Errorf("expected default lookback 4, got %d", cfg.Years)
	}
	if cfg.Method != valuation.MethodPerpetuity {
		t.Errorf("expected default method perpetuity, got %s", cfg.Method)
	}

	// The rate map merges column-wise: revenue comes from the file, the
	// other DCF columns keep their defaults.
	if cfg.Rates["revenue"].Method != "ExponentialMovingAverage" {
		t.Errorf("expected file policy for revenue, got %s", cfg.Rates["revenue"].Method)
	}
	if cfg.Rates["nopat"].Method != "MovingAverage" {
		t.Errorf("expected default policy for nopat, got %s", cfg.Rates["nopat"].Method)
	}

	if !cfg.Overrides.WACC.IsSet() || cfg.Overrides.WACC.Value != 0.085 {
		t.Errorf("expected wacc override 0.085, got %+v", cfg.Overrides.WACC)
	}
	if cfg.Overrides.TerminalGrowth.IsSet() {
		t.Error("terminal_growth: auto must not count as set")
	}
}

func TestParse_BadInput(t *testing.T) {
	if _, err := Parse([]byte("]]][[")); err == nil {
		t.Fatal("expected error for unparseable run file, got nil")
	}
}

func TestAutoFloat(t *testing.T) {
	var cfg Config
	input := `{"ticker":"X","overrides":{"wacc":"AUTO","shares_outstanding":"15800000000","exit_multiple":12.5}}`
	parsed, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg = parsed

	if cfg.Overrides.WACC.IsSet() {
		t.Error("AUTO must not count as set")
	}
	if !cfg.Overrides.SharesOutstanding.IsSet() || cfg.Overrides.SharesOutstanding.Value != 15800000000 {
		t.Errorf("expected numeric string override, got %+v", cfg.Overrides.SharesOutstanding)
	}
	if got := cfg.Overrides.ExitMultiple.Or(8); got != 12.5 {
		t.Errorf("expected override 12.5 to win, got %f", got)
	}
	if got := cfg.Overrides.WACC.Or(0.09); got != 0.09 {
		t.Errorf("expected fallback 0.09, got %f", got)
	}

	// The zero value behaves like auto.
	var unset AutoFloat
	if unset.IsSet() {
		t.Error("zero AutoFloat must not count as set")
	}
}

func TestAutoFloat_RejectsJunk(t *testing.T) {
	_, err := Parse([]byte(`{"ticker":"X","overrides":{"wacc":"cheap"}}`))
	if err == nil {
		t.Fatal("expected error for non-numeric override, got nil")
	}
}

func TestValidate(t *testing.T) {
	registry := forecast.NewRegistry()

	cfg := Defaults()
	cfg.Ticker = "MSFT"
	if err := cfg.Validate(registry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := cfg
	missing.Ticker = "  "
	if err := missing.Validate(registry); err == nil {
		t.Error("expected error for blank ticker, got nil")
	}

	badMethod := cfg
	badMethod.Method = "liquidation"
	if err := badMethod.Validate(registry); err == nil {
		t.Error("expected error for unknown valuation method, got nil")
	}

	badHorizon := cfg
	badHorizon.ForecastYears = 0
	if err := badHorizon.Validate(registry); err == nil {
		t.Error("expected error for zero horizon, got nil")
	}
}

func TestValidate_BadPolicy(t *testing.T) {
	registry := forecast.NewRegistry()

	cfg := Defaults()
	cfg.Ticker = "MSFT"
	cfg.Rates["revenue"] = forecast.Policy{Mode: forecast.ModeAuto, Method: "Oracle"}

	err := cfg.Validate(registry)
	if err == nil {
		t.Fatal("expected error for unknown forecaster, got nil")
	}
	if !strings.Contains(err.Error(), "revenue") {
		t.Errorf("error should name the column, got %v", err)
	}
}
