package forecast_test

import (
	"math"
	"testing"

	"autodcf/pkg/core/forecast"
	"autodcf/pkg/core/fundamentals"
)

func buildExtended(t *testing.T, column string, values []float64, horizon int) fundamentals.Table {
	t.Helper()
	years := make([]int, len(values))
	for i := range years {
		years[i] = 2020 + i
	}
	table, err := fundamentals.NewBuilder(years).Column(column, values).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	extended, err := table.ExtendPeriods(horizon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return extended
}

func TestEngine_AutoMovingAverage(t *testing.T) {
	table := buildExtended(t, "revenue", []float64{100, 110, 121, 133.1}, 1)
	engine := forecast.NewEngine(forecast.NewRegistry(), 0.025, 1)

	result, err := engine.Run(table, map[string]forecast.Policy{
		"revenue": {
			Mode:       forecast.ModeAuto,
			Method:     "MovingAverage",
			Parameters: map[string]interface{}{"window": 3},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Growth history is 10% a year; the trailing mean projects 10% again,
	// so the next revenue is 133.1 * 1.1 = 146.41.
	series, err := result.Table.Series("revenue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(series[4]-146.41) > 0.01 {
		t.Errorf("expected 146.41, got %f", series[4])
	}

	rates := result.Rates["revenue"]
	if len(rates) != 5 {
		t.Fatalf("expected 5 rates, got %d", len(rates))
	}
	if math.Abs(rates[4]-0.10) > 0.0001 {
		t.Errorf("expected applied rate 0.10, got %f", rates[4])
	}
}

func TestEngine_ManualRates(t *testing.T) {
	table := buildExtended(t, "revenue", []float64{100, 110}, 2)
	engine := forecast.NewEngine(forecast.NewRegistry(), 0, 1)

	result, err := engine.Run(table, map[string]forecast.Policy{
		"revenue": {
			Mode:        forecast.ModeManual,
			ManualRates: []interface{}{0.1, 0.2},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 110 * 1.1 = 121, then 121 * 1.2 = 145.2
	series, _ := result.Table.Series("revenue")
	if math.Abs(series[2]-121) > 0.0001 {
		t.Errorf("expected 121, got %f", series[2])
	}
	if math.Abs(series[3]-145.2) > 0.0001 {
		t.Errorf("expected 145.2, got %f", series[3])
	}
}

func TestEngine_ManualRates_WrongCount(t *testing.T) {
	table := buildExtended(t, "revenue", []float64{100, 110}, 3)
	engine := forecast.NewEngine(forecast.NewRegistry(), 0, 1)

	_, err := engine.Run(table, map[string]forecast.Policy{
		"revenue": {
			Mode:        forecast.ModeManual,
			ManualRates: []interface{}{0.1, 0.2},
		},
	})
	if err == nil {
		t.Fatal("expected error for wrong manual rate count, got nil")
	}
}

func TestEngine_ManualRates_NonNumeric(t *testing.T) {
	table := buildExtended(t, "revenue", []float64{100, 110}, 2)
	engine := forecast.NewEngine(forecast.NewRegistry(), 0, 1)

	_, err := engine.Run(table, map[string]forecast.Policy{
		"revenue": {
			Mode:        forecast.ModeManual,
			ManualRates: []interface{}{0.1, "fast"},
		},
	})
	if err == nil {
		t.Fatal("expected error for non-numeric manual rate, got nil")
	}
}

func TestEngine_HybridAppliesManualFirst(t *testing.T) {
	table := buildExtended(t, "revenue", []float64{100, 110}, 3)
	engine := forecast.NewEngine(forecast.NewRegistry(), 0, 1)

	result, err := engine.Run(table, map[string]forecast.Policy{
		"revenue": {
			Mode:        forecast.ModeHybrid,
			Method:      "MovingAverage",
			Parameters:  map[string]interface{}{"window": 3},
			ManualRates: []interface{}{0.2},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Manual leg: 110 * 1.2 = 132.
	// The forecaster then reads [100, 110, 132] -> changes [0, 0.1, 0.2]:
	//   mean(0, 0.1, 0.2) = 0.1      -> 132 * 1.1 = 145.2
	//   mean(0.1, 0.2, 0.1) = 0.1333 -> 145.2 * 1.1333 = 164.56
	series, _ := result.Table.Series("revenue")
	expected := []float64{132, 145.2, 164.56}
	for i, want := range expected {
		if math.Abs(series[2+i]-want) > 0.01 {
			t.Errorf("period %d: expected %f, got %f", i, want, series[2+i])
		}
	}

	// Full growth series: 3 historical-and-manual changes plus 2 forecast.
	if len(result.Rates["revenue"]) != 5 {
		t.Errorf("expected 5 rates, got %d", len(result.Rates["revenue"]))
	}
}

func TestEngine_HybridRejectsFullManualCount(t *testing.T) {
	table := buildExtended(t, "revenue", []float64{100, 110}, 2)
	engine := forecast.NewEngine(forecast.NewRegistry(), 0, 1)

	_, err := engine.Run(table, map[string]forecast.Policy{
		"revenue": {
			Mode:        forecast.ModeHybrid,
			Method:      "MovingAverage",
			Parameters:  map[string]interface{}{"window": 2},
			ManualRates: []interface{}{0.1, 0.2},
		},
	})
	if err == nil {
		t.Fatal("expected error for hybrid with full manual coverage, got nil")
	}
}

func TestEngine_LinearRateWritesValuesDirectly(t *testing.T) {
	table := buildExtended(t, "da", []float64{2, 5, 10}, 5)
	engine := forecast.NewEngine(forecast.NewRegistry(), 0, 1)

	result, err := engine.Run(table, map[string]forecast.Policy{
		"da": {
			Mode:       forecast.ModeAuto,
			Method:     "LinearRate",
			Parameters: map[string]interface{}{"terminal_rate": 20},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The glide starts at the last observed value and ends on the target,
	// with no compounding in between.
	series, _ := result.Table.Series("da")
	expected := []float64{10, 12.5, 15, 17.5, 20}
	for i, want := range expected {
		if math.Abs(series[3+i]-want) > 0.0001 {
			t.Errorf("period %d: expected %f, got %f", i, want, series[3+i])
		}
	}
	if len(result.Rates["da"]) != 8 {
		t.Errorf("expected 8 rates, got %d", len(result.Rates["da"]))
	}
}

func TestEngine_AutoTerminalSentinel(t *testing.T) {
	table := buildExtended(t, "revenue", []float64{100, 105}, 1)
	engine := forecast.NewEngine(forecast.NewRegistry(), 0.07, 1)

	result, err := engine.Run(table, map[string]forecast.Policy{
		"revenue": {
			Mode:   forecast.ModeAuto,
			Method: "ConvergingMovingAverage",
			Parameters: map[string]interface{}{
				"window":        2,
				"terminal_rate": "auto",
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One forecast period converges fully onto the substituted rate:
	// 105 * 1.07 = 112.35
	series, _ := result.Table.Series("revenue")
	if math.Abs(series[2]-112.35) > 0.0001 {
		t.Errorf("expected 112.35, got %f", series[2])
	}
}

func TestEngine_SkipsUnmappedColumns(t *testing.T) {
	years := []int{2021, 2022}
	table, err := fundamentals.NewBuilder(years).
		Column("revenue", []float64{100, 110}).
		Column("nwc", []float64{10, 12}).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	extended, err := table.ExtendPeriods(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	engine := forecast.NewEngine(forecast.NewRegistry(), 0, 1)
	result, err := engine.Run(extended, map[string]forecast.Policy{
		"revenue": {Mode: forecast.ModeManual, ManualRates: []interface{}{0.1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Skipped) != 1 || result.Skipped[0] != "nwc" {
		t.Errorf("expected nwc to be skipped, got %v", result.Skipped)
	}
	gaps, err := result.Table.HasGaps("nwc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gaps {
		t.Error("skipped column should keep its placeholder cells")
	}
}

func TestEngine_PolicyForUnknownColumn(t *testing.T) {
	table := buildExtended(t, "revenue", []float64{100, 110}, 1)
	engine := forecast.NewEngine(forecast.NewRegistry(), 0, 1)

	_, err := engine.Run(table, map[string]forecast.Policy{
		"margin": {Mode: forecast.ModeManual, ManualRates: []interface{}{0.1}},
	})
	if err == nil {
		t.Fatal("expected error for policy without a matching column, got nil")
	}
}

func TestEngine_UnknownMethod(t *testing.T) {
	table := buildExtended(t, "revenue", []float64{100, 110}, 1)
	engine := forecast.NewEngine(forecast.NewRegistry(), 0, 1)

	_, err := engine.Run(table, map[string]forecast.Policy{
		"revenue": {Mode: forecast.ModeAuto, Method: "Oracle"},
	})
	if err == nil {
		t.Fatal("expected error for unknown method, got nil")
	}
}

func TestEngine_UnknownMode(t *testing.T) {
	table := buildExtended(t, "revenue", []float64{100, 110}, 1)
	engine := forecast.NewEngine(forecast.NewRegistry(), 0, 1)

	_, err := engine.Run(table, map[string]forecast.Policy{
		"revenue": {Mode: "vibes"},
	})
	if err == nil {
		t.Fatal("expected error for unknown mode, got nil")
	}
}

func TestEngine_UnknownParameter(t *testing.T) {
	table := buildExtended(t, "revenue", []float64{100, 110}, 1)
	engine := forecast.NewEngine(forecast.NewRegistry(), 0, 1)

	_, err := engine.Run(table, map[string]forecast.Policy{
		"revenue": {
			Mode:       forecast.ModeAuto,
			Method:     "MovingAverage",
			Parameters: map[string]interface{}{"window": 2, "momentum": 3},
		},
	})
	if err == nil {
		t.Fatal("expected error for unknown parameter, got nil")
	}
}

func TestEngine_TableWithoutForecastPeriods(t *testing.T) {
	table, err := fundamentals.NewBuilder([]int{2021, 2022}).
		Column("revenue", []float64{100, 110}).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	engine := forecast.NewEngine(forecast.NewRegistry(), 0, 1)
	_, err = engine.Run(table, nil)
	if err == nil {
		t.Fatal("expected error for table without forecast periods, got nil")
	}
}

func TestEngine_SeededRunsReproduce(t *testing.T) {
	policy := map[string]forecast.Policy{
		"revenue": {
			Mode:       forecast.ModeAuto,
			Method:     "Uniform",
			Parameters: map[string]interface{}{"max_randomness": 0.15},
		},
	}

	run := func(seed int64) []float64 {
		table := buildExtended(t, "revenue", []float64{100, 110, 121}, 4)
		engine := forecast.NewEngine(forecast.NewRegistry(), 0, seed)
		result, err := engine.Run(table, policy)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		series, _ := result.Table.Series("revenue")
		return series
	}

	first := run(99)
	second := run(99)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("same seed diverged at %d: %f vs %f", i, first[i], second[i])
		}
	}

	other := run(100)
	same := true
	for i := range first {
		if first[i] != other[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical runs")
	}
}
