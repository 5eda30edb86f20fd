package fundamentals

import (
	"math"
	"testing"
)

func TestBuilder_Build(t *testing.T) {
	table, err := NewBuilder([]int{2021, 2022, 2023}).
		Column("revenue", []float64{100, 110, 121}).
		Column("ebitda", []float64{30, 33, 36}).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if table.Len() != 3 {
		t.Errorf("expected 3 periods, got %d", table.Len())
	}
	if table.Horizon() != 0 {
		t.Errorf("expected no forecast periods, got %d", table.Horizon())
	}
	columns := table.Columns()
	if len(columns) != 2 || columns[0] != "revenue" || columns[1] != "ebitda" {
		t.Errorf("expected insertion order [revenue ebitda], got %v", columns)
	}
}

func TestBuilder_DuplicateColumn(t *testing.T) {
	_, err := NewBuilder([]int{2021, 2022}).
		Column("revenue", []float64{100, 110}).
		Column("revenue", []float64{1, 2}).
		Build()
	if err == nil {
		t.Fatal("expected error for duplicate column, got nil")
	}
}

func TestBuilder_LengthMismatch(t *testing.T) {
	_, err := NewBuilder([]int{2021, 2022, 2023}).
		Column("revenue", []float64{100, 110}).
		Build()
	if err == nil {
		t.Fatal("expected error for short column, got nil")
	}
}

func TestBuilder_YearsNotIncreasing(t *testing.T) {
	_, err := NewBuilder([]int{2021, 2021, 2022}).
		Column("revenue", []float64{100, 110, 121}).
		Build()
	if err == nil {
		t.Fatal("expected error for repeated year, got nil")
	}
}

func TestBuilder_NoColumns(t *testing.T) {
	_, err := NewBuilder([]int{2021, 2022}).Build()
	if err == nil {
		t.Fatal("expected error for empty table, got nil")
	}
}

func TestExtendPeriods(t *testing.T) {
	table, err := NewBuilder([]int{2021, 2022}).
		Column("revenue", []float64{100, 110}).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	extended, err := table.ExtendPeriods(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	years := extended.Years()
	expected := []int{2021, 2022, 2023, 2024, 2025}
	for i, want := range expected {
		if years[i] != want {
			t.Errorf("year %d: expected %d, got %d", i, want, years[i])
		}
	}
	if extended.HistoryLen() != 2 {
		t.Errorf("expected 2 historical periods, got %d", extended.HistoryLen())
	}
	gaps, err := extended.HasGaps("revenue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gaps {
		t.Error("extended table should have placeholder cells")
	}

	// The source table is untouched.
	if table.Len() != 2 || table.Horizon() != 0 {
		t.Errorf("source table changed: len %d, horizon %d", table.Len(), table.Horizon())
	}
}

func TestExtendPeriods_Twice(t *testing.T) {
	table, _ := NewBuilder([]int{2021, 2022}).
		Column("revenue", []float64{100, 110}).
		Build()
	extended, _ := table.ExtendPeriods(2)

	if _, err := extended.ExtendPeriods(2); err == nil {
		t.Fatal("expected error for double extension, got nil")
	}
}

func TestFillColumn(t *testing.T) {
	table, _ := NewBuilder([]int{2021, 2022}).
		Column("revenue", []float64{100, 110}).
		Build()
	extended, _ := table.ExtendPeriods(2)

	filled, err := extended.FillColumn("revenue", []float64{121, 133.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	series, _ := filled.Series("revenue")
	if series[2] != 121 || series[3] != 133.1 {
		t.Errorf("expected [121 133.1] in forecast slots, got %v", series[2:])
	}
	gaps, _ := filled.HasGaps("revenue")
	if gaps {
		t.Error("filled column should have no gaps")
	}

	// The source table keeps its placeholders.
	before, _ := extended.Series("revenue")
	if !math.IsNaN(before[2]) {
		t.Error("filling must not mutate the source table")
	}
}

func TestFillColumn_WrongCount(t *testing.T) {
	table, _ := NewBuilder([]int{2021, 2022}).
		Column("revenue", []float64{100, 110}).
		Build()
	extended, _ := table.ExtendPeriods(2)

	if _, err := extended.FillColumn("revenue", []float64{121}); err == nil {
		t.Fatal("expected error for short fill, got nil")
	}
}

func TestFillColumn_NoForecastPeriods(t *testing.T) {
	table, _ := NewBuilder([]int{2021, 2022}).
		Column("revenue", []float64{100, 110}).
		Build()

	if _, err := table.FillColumn("revenue", nil); err == nil {
		t.Fatal("expected error for unextended table, got nil")
	}
}

func TestHistoricalAndLastHistorical(t *testing.T) {
	table, _ := NewBuilder([]int{2021, 2022, 2023}).
		Column("revenue", []float64{100, 110, 121}).
		Build()
	extended, _ := table.ExtendPeriods(2)

	hist, err := extended.Historical("revenue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hist) != 3 || hist[2] != 121 {
		t.Errorf("expected history [100 110 121], got %v", hist)
	}

	last, err := extended.LastHistorical("revenue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last != 121 {
		t.Errorf("expected 121, got %f", last)
	}
}

func TestSeries_ReturnsCopy(t *testing.T) {
	table, _ := NewBuilder([]int{2021, 2022}).
		Column("revenue", []float64{100, 110}).
		Build()

	series, _ := table.Series("revenue")
	series[0] = -1

	again, _ := table.Series("revenue")
	if again[0] != 100 {
		t.Errorf("mutating a returned series changed the table: %f", again[0])
	}
}

func TestSeries_UnknownColumn(t *testing.T) {
	table, _ := NewBuilder([]int{2021}).
		Column("revenue", []float64{100}).
		Build()

	if _, err := table.Series("margin"); err == nil {
		t.Fatal("expected error for unknown column, got nil")
	}
}

func TestDataRoundTrip(t *testing.T) {
	table, _ := NewBuilder([]int{2021, 2022}).
		Column("revenue", []float64{100, 110}).
		Column("ebit", []float64{20, 22}).
		Build()
	extended, _ := table.ExtendPeriods(1)
	filled, _ := extended.FillColumn("revenue", []float64{121})
	filled, _ = filled.FillColumn("ebit", []float64{24.2})

	rebuilt, err := FromData(filled.Data())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rebuilt.Horizon() != 1 || rebuilt.Len() != 3 {
		t.Errorf("expected horizon 1 over 3 periods, got %d over %d", rebuilt.Horizon(), rebuilt.Len())
	}
	series, _ := rebuilt.Series("ebit")
	if math.Abs(series[2]-24.2) > 0.0001 {
		t.Errorf("expected 24.2, got %f", series[2])
	}
	columns := rebuilt.Columns()
	if columns[0] != "revenue" || columns[1] != "ebit" {
		t.Errorf("expected column order to survive, got %v", columns)
	}
}

func TestFromData_MissingColumn(t *testing.T) {
	_, err := FromData(TableData{
		Years:   []int{2021},
		Order:   []string{"revenue"},
		Columns: map[string][]float64{},
	})
	if err == nil {
		t.Fatal("expected error for missing column data, got nil")
	}
}

func TestFromData_BadHorizon(t *testing.T) {
	_, err := FromData(TableData{
		Years:   []int{2021, 2022},
		Order:   []string{"revenue"},
		Columns: map[string][]float64{"revenue": {100, 110}},
		Horizon: 2,
	})
	if err == nil {
		t.Fatal("expected error for horizon covering every period, got nil")
	}
}
