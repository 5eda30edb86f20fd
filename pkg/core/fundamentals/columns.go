// Package fundamentals models scraped financial statements as aligned
// yearly tables and derives the projection table the DCF model runs on.
package fundamentals

// Statement columns, named after the scraper vocabulary. The same names
// appear in column mapping files and in cached statement data.
const (
	ColRevenue                 = "revenue"
	ColEBITDA                  = "ebitda"
	ColEBT                     = "ebt"
	ColIncomeTax               = "incomeTaxExpense"
	ColInterestExpense         = "interestExpense"
	ColDA                      = "DA"
	ColCapEx                   = "capEx"
	ColCashOperating           = "cashOperating"
	ColFreeCashFlow            = "freeCashFlow"
	ColTotalEquity             = "totalEquity"
	ColTotalDebt               = "totalDebt"
	ColTotalCurrentAssets      = "totalCurrentAssets"
	ColTotalCurrentLiabilities = "totalCurrentLiabilities"
	ColCashOnHand              = "cashOnHand"
	ColNetDebt                 = "netDebt"
	ColNetWorkingCapital       = "netWorkingCapital"
)

// Columns of the derived DCF table. Revenue carries over from the income
// statement; the rest are computed or renamed during derivation.
const (
	DCFEBIT  = "ebit"
	DCFNOPAT = "nopat"
	DCFDA    = "da"
	DCFCapEx = "capex"
	DCFNWC   = "nwc"
)

// DCFColumns is the column order of the derived DCF table.
var DCFColumns = []string{ColRevenue, DCFEBIT, DCFNOPAT, DCFDA, DCFCapEx, DCFNWC}

// NetDebt is totalDebt - cashOnHand.
func NetDebt(totalDebt, cashOnHand []float64) []float64 {
	return sub(totalDebt, cashOnHand)
}

// NetWorkingCapital is totalCurrentAssets - totalCurrentLiabilities.
func NetWorkingCapital(currentAssets, currentLiabilities []float64) []float64 {
	return sub(currentAssets, currentLiabilities)
}

// FreeCashFlow is cashOperating - capEx.
func FreeCashFlow(cashOperating, capEx []float64) []float64 {
	return sub(cashOperating, capEx)
}

func sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}
