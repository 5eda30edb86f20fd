package fundamentals

import (
	"fmt"
	"math"
)

// Table is a set of yearly series sharing one strictly increasing
// fiscal-year index. The trailing Horizon() periods are forecast slots;
// their cells hold NaN until a forecaster fills them. Tables are treated as
// immutable: operations that change data return a new table.
type Table struct {
	years   []int
	order   []string
	columns map[string][]float64
	horizon int
}

// Builder assembles a Table column by column. The first error sticks and is
// reported by Build.
type Builder struct {
	years []int
	order []string
	cols  map[string][]float64
	err   error
}

// NewBuilder starts a table over the given fiscal years.
func NewBuilder(years []int) *Builder {
	return &Builder{
		years: append([]int(nil), years...),
		cols:  make(map[string][]float64),
	}
}

// Column adds a named series. The series must have one value per year.
func (b *Builder) Column(name string, values []float64) *Builder {
	if b.err != nil {
		return b
	}
	if name == "" {
		b.err = fmt.Errorf("column name must not be empty")
		return b
	}
	if _, exists := b.cols[name]; exists {
		b.err = fmt.Errorf("duplicate column %s", name)
		return b
	}
	if len(values) != len(b.years) {
		b.err = fmt.Errorf("column %s has %d values for %d periods", name, len(values), len(b.years))
		return b
	}
	b.order = append(b.order, name)
	b.cols[name] = append([]float64(nil), values...)
	return b
}

// Build validates the index and returns the finished table.
func (b *Builder) Build() (Table, error) {
	if b.err != nil {
		return Table{}, b.err
	}
	if len(b.years) == 0 {
		return Table{}, fmt.Errorf("table needs at least one period")
	}
	for i := 1; i < len(b.years); i++ {
		if b.years[i] <= b.years[i-1] {
			return Table{}, fmt.Errorf("years must be strictly increasing: %d after %d", b.years[i], b.years[i-1])
		}
	}
	if len(b.order) == 0 {
		return Table{}, fmt.Errorf("table needs at least one column")
	}
	return Table{years: b.years, order: b.order, columns: b.cols}, nil
}

// Len is the total number of periods, historical plus forecast.
func (t Table) Len() int { return len(t.years) }

// Horizon is the number of trailing forecast periods.
func (t Table) Horizon() int { return t.horizon }

// HistoryLen is the number of leading historical periods.
func (t Table) HistoryLen() int { return len(t.years) - t.horizon }

// Years returns a copy of the fiscal-year index.
func (t Table) Years() []int {
	return append([]int(nil), t.years...)
}

// Columns returns the column names in insertion order.
func (t Table) Columns() []string {
	return append([]string(nil), t.order...)
}

// HasColumn reports whether the table carries the named column.
func (t Table) HasColumn(name string) bool {
	_, exists := t.columns[name]
	return exists
}

// Series returns a copy of the named column over all periods.
func (t Table) Series(name string) ([]float64, error) {
	values, exists := t.columns[name]
	if !exists {
		return nil, fmt.Errorf("no column %s in table", name)
	}
	return append([]float64(nil), values...), nil
}

// Historical returns a copy of the named column's historical periods only.
func (t Table) Historical(name string) ([]float64, error) {
	values, exists := t.columns[name]
	if !exists {
		return nil, fmt.Errorf("no column %s in table", name)
	}
	return append([]float64(nil), values[:t.HistoryLen()]...), nil
}

// LastHistorical returns the named column's value in the final historical
// period.
func (t Table) LastHistorical(name string) (float64, error) {
	values, exists := t.columns[name]
	if !exists {
		return 0, fmt.Errorf("no column %s in table", name)
	}
	if t.HistoryLen() == 0 {
		return 0, fmt.Errorf("column %s has no historical periods", name)
	}
	return values[t.HistoryLen()-1], nil
}

// ExtendPeriods appends horizon forecast years after the last historical
// year and pads every column with NaN placeholders.
func (t Table) ExtendPeriods(horizon int) (Table, error) {
	if horizon <= 0 {
		return Table{}, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	if t.horizon != 0 {
		return Table{}, fmt.Errorf("table already has %d forecast periods", t.horizon)
	}
	out := t.clone()
	lastYear := out.years[len(out.years)-1]
	for i := 1; i <= horizon; i++ {
		out.years = append(out.years, lastYear+i)
	}
	for name, values := range out.columns {
		padded := values
		for i := 0; i < horizon; i++ {
			padded = append(padded, math.NaN())
		}
		out.columns[name] = padded
	}
	out.horizon = horizon
	return out, nil
}

// FillColumn writes one value per forecast period into the named column and
// returns the resulting table. Historical cells are never touched.
func (t Table) FillColumn(name string, values []float64) (Table, error) {
	if _, exists := t.columns[name]; !exists {
		return Table{}, fmt.Errorf("no column %s in table", name)
	}
	if t.horizon == 0 {
		return Table{}, fmt.Errorf("table has no forecast periods to fill")
	}
	if len(values) != t.horizon {
		return Table{}, fmt.Errorf("column %s needs %d forecast values, got %d", name, t.horizon, len(values))
	}
	out := t.clone()
	column := out.columns[name]
	copy(column[t.HistoryLen():], values)
	return out, nil
}

// HasGaps reports whether any cell of the named column is NaN.
func (t Table) HasGaps(name string) (bool, error) {
	values, exists := t.columns[name]
	if !exists {
		return false, fmt.Errorf("no column %s in table", name)
	}
	for _, v := range values {
		if math.IsNaN(v) {
			return true, nil
		}
	}
	return false, nil
}

func (t Table) clone() Table {
	cols := make(map[string][]float64, len(t.columns))
	for name, values := range t.columns {
		cols[name] = append([]float64(nil), values...)
	}
	return Table{
		years:   append([]int(nil), t.years...),
		order:   append([]string(nil), t.order...),
		columns: cols,
		horizon: t.horizon,
	}
}

// TableData is the serializable form of a Table, used for caching and run
// documents. NaN cells do not survive JSON, so only fully populated tables
// should be serialized.
type TableData struct {
	Years   []int                `json:"years"`
	Order   []string             `json:"order"`
	Columns map[string][]float64 `json:"columns"`
	Horizon int                  `json:"horizon,omitempty"`
}

// Data exports the table for serialization.
func (t Table) Data() TableData {
	cols := make(map[string][]float64, len(t.columns))
	for name, values := range t.columns {
		cols[name] = append([]float64(nil), values...)
	}
	return TableData{
		Years:   t.Years(),
		Order:   t.Columns(),
		Columns: cols,
		Horizon: t.horizon,
	}
}

// FromData rebuilds a table from its serialized form.
func FromData(data TableData) (Table, error) {
	builder := NewBuilder(data.Years)
	for _, name := range data.Order {
		values, exists := data.Columns[name]
		if !exists {
			return Table{}, fmt.Errorf("table data is missing column %s", name)
		}
		builder.Column(name, values)
	}
	table, err := builder.Build()
	if err != nil {
		return Table{}, err
	}
	if data.Horizon < 0 || data.Horizon >= table.Len() {
		return Table{}, fmt.Errorf("invalid horizon %d for %d periods", data.Horizon, table.Len())
	}
	table.horizon = data.Horizon
	return table, nil
}
