package fundamentals

import "fmt"

// Statements groups the three scraped statement tables. All three must
// cover identical fiscal years.
type Statements struct {
	Income  Table
	Balance Table
	Cash    Table
}

// Aligned verifies the three statements share one fiscal-year index.
func (s Statements) Aligned() error {
	income := s.Income.Years()
	balance := s.Balance.Years()
	cash := s.Cash.Years()
	if len(income) == 0 {
		return fmt.Errorf("income statement has no periods")
	}
	if len(income) != len(balance) || len(income) != len(cash) {
		return fmt.Errorf("statement periods do not match: income %d, balance %d, cash %d",
			len(income), len(balance), len(cash))
	}
	for i := range income {
		if income[i] != balance[i] || income[i] != cash[i] {
			return fmt.Errorf("statement years do not match at position %d: income %d, balance %d, cash %d",
				i, income[i], balance[i], cash[i])
		}
	}
	return nil
}

// Validate checks that no statement cell is missing. Scraped data with
// holes would poison every downstream calculation, so a gap is fatal here.
func (s Statements) Validate() error {
	for _, stmt := range []struct {
		name  string
		table Table
	}{
		{"income", s.Income},
		{"balance", s.Balance},
		{"cash", s.Cash},
	} {
		for _, column := range stmt.table.Columns() {
			gaps, err := stmt.table.HasGaps(column)
			if err != nil {
				return err
			}
			if gaps {
				return fmt.Errorf("%s statement column %s has missing values", stmt.name, column)
			}
		}
	}
	return nil
}

// EffectiveTaxRate is incomeTaxExpense / ebt for the latest historical
// year.
func (s Statements) EffectiveTaxRate() (float64, error) {
	tax, err := s.Income.LastHistorical(ColIncomeTax)
	if err != nil {
		return 0, err
	}
	ebt, err := s.Income.LastHistorical(ColEBT)
	if err != nil {
		return 0, err
	}
	if ebt == 0 {
		return 0, fmt.Errorf("effective tax rate: ebt is zero")
	}
	return tax / ebt, nil
}

// BuildDCFTable derives the projection table the forecast engine operates
// on from the historical statements:
//
//	ebit  = ebitda - DA
//	nopat = ebit * (1 - taxRate)
//
// Revenue, DA, capEx and net working capital carry over unchanged.
func BuildDCFTable(s Statements, taxRate float64) (Table, error) {
	if err := s.Aligned(); err != nil {
		return Table{}, fmt.Errorf("dcf table: %w", err)
	}
	revenue, err := s.Income.Series(ColRevenue)
	if err != nil {
		return Table{}, fmt.Errorf("dcf table: %w", err)
	}
	ebitda, err := s.Income.Series(ColEBITDA)
	if err != nil {
		return Table{}, fmt.Errorf("dcf table: %w", err)
	}
	da, err := s.Cash.Series(ColDA)
	if err != nil {
		return Table{}, fmt.Errorf("dcf table: %w", err)
	}
	capex, err := s.Cash.Series(ColCapEx)
	if err != nil {
		return Table{}, fmt.Errorf("dcf table: %w", err)
	}
	nwc, err := s.Balance.Series(ColNetWorkingCapital)
	if err != nil {
		return Table{}, fmt.Errorf("dcf table: %w", err)
	}

	ebit := sub(ebitda, da)
	nopat := make([]float64, len(ebit))
	for i, v := range ebit {
		nopat[i] = v * (1 - taxRate)
	}

	return NewBuilder(s.Income.Years()).
		Column(ColRevenue, revenue).
		Column(DCFEBIT, ebit).
		Column(DCFNOPAT, nopat).
		Column(DCFDA, da).
		Column(DCFCapEx, capex).
		Column(DCFNWC, nwc).
		Build()
}
