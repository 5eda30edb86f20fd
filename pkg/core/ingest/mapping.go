package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"autodcf/pkg/core/fundamentals"
)

// ColumnMapping translates canonical column names to the row labels a data
// source publishes, one map per statement. Canonical names are the keys so a
// partial override file only needs to list the rows it renames.
type ColumnMapping struct {
	Income  map[string]string `yaml:"income"`
	Balance map[string]string `yaml:"balance"`
	Cash    map[string]string `yaml:"cash"`
}

// DefaultColumnMapping returns the mapping for Macrotrends statement pages.
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		Income: map[string]string{
			fundamentals.ColRevenue:         "Revenue",
			fundamentals.ColEBITDA:          "EBITDA",
			fundamentals.ColEBT:             "Pre-Tax Income",
			fundamentals.ColIncomeTax:       "Income Taxes",
			fundamentals.ColInterestExpense: "Total Non-Operating Income/Expense",
		},
		Balance: map[string]string{
			fundamentals.ColTotalEquity:             "Share Holder Equity",
			fundamentals.ColTotalDebt:               "Long Term Debt",
			fundamentals.ColTotalCurrentAssets:      "Total Current Assets",
			fundamentals.ColTotalCurrentLiabilities: "Total Current Liabilities",
			fundamentals.ColCashOnHand:              "Cash On Hand",
		},
		Cash: map[string]string{
			fundamentals.ColDA:            "Total Depreciation And Amortization - Cash Flow",
			fundamentals.ColCapEx:         "Net Change In Property, Plant, And Equipment",
			fundamentals.ColCashOperating: "Cash Flow From Operating Activities",
		},
	}
}

// LoadColumnMapping reads a YAML mapping file and merges it over the
// defaults. Entries in the file win; canonical names it omits keep their
// default source label.
func LoadColumnMapping(path string) (ColumnMapping, error) {
	mapping := DefaultColumnMapping()

	data, err := os.ReadFile(path)
	if err != nil {
		return mapping, fmt.Errorf("failed to read column mapping: %w", err)
	}

	var override ColumnMapping
	if err := yaml.Unmarshal(data, &override); err != nil {
		return mapping, fmt.Errorf("failed to parse column mapping: %w", err)
	}

	merge := func(dst, src map[string]string) {
		for canonical, label := range src {
			dst[canonical] = label
		}
	}
	merge(mapping.Income, override.Income)
	merge(mapping.Balance, override.Balance)
	merge(mapping.Cash, override.Cash)

	return mapping, nil
}
