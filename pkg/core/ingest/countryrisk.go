package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CountryRisk carries the two country-level figures CAPM needs.
type CountryRisk struct {
	// Yield10Y is the 10-year government bond yield in percent, e.g. 4.3
	// means 4.3%. Published tables quote yields this way.
	Yield10Y float64
	// EquityRiskPremium is a decimal fraction, e.g. 0.046.
	EquityRiskPremium float64
}

// RiskFreeRate converts the published yield to the decimal the WACC
// calculation consumes.
func (r CountryRisk) RiskFreeRate() float64 {
	return r.Yield10Y / 100
}

// alpha2Names maps the ISO codes the profile API returns to the country
// names risk tables are keyed by.
var alpha2Names = map[string]string{
	"US": "United States",
	"CA": "Canada",
	"GB": "United Kingdom",
	"DE": "Germany",
	"FR": "France",
	"CH": "Switzerland",
	"NL": "Netherlands",
	"IE": "Ireland",
	"JP": "Japan",
	"CN": "China",
	"IN": "India",
	"KR": "South Korea",
	"TW": "Taiwan",
	"AU": "Australia",
	"BR": "Brazil",
}

// CountryRiskTable resolves a company's country to its yield and equity
// risk premium. It starts from a compiled-in snapshot and can be refreshed
// from a workbook in the Damodaran country-risk format.
type CountryRiskTable struct {
	entries map[string]CountryRisk
}

// DefaultCountryRiskTable returns the compiled-in snapshot.
func DefaultCountryRiskTable() *CountryRiskTable {
	return &CountryRiskTable{entries: map[string]CountryRisk{
		"united states":  {Yield10Y: 4.3, EquityRiskPremium: 0.046},
		"canada":         {Yield10Y: 3.3, EquityRiskPremium: 0.048},
		"united kingdom": {Yield10Y: 4.2, EquityRiskPremium: 0.052},
		"germany":        {Yield10Y: 2.4, EquityRiskPremium: 0.049},
		"france":         {Yield10Y: 3.0, EquityRiskPremium: 0.053},
		"switzerland":    {Yield10Y: 0.6, EquityRiskPremium: 0.044},
		"netherlands":    {Yield10Y: 2.7, EquityRiskPremium: 0.049},
		"ireland":        {Yield10Y: 2.6, EquityRiskPremium: 0.051},
		"japan":          {Yield10Y: 1.1, EquityRiskPremium: 0.051},
		"china":          {Yield10Y: 2.1, EquityRiskPremium: 0.057},
		"india":          {Yield10Y: 6.8, EquityRiskPremium: 0.071},
		"south korea":    {Yield10Y: 3.1, EquityRiskPremium: 0.055},
		"taiwan":         {Yield10Y: 1.5, EquityRiskPremium: 0.055},
		"australia":      {Yield10Y: 4.2, EquityRiskPremium: 0.048},
		"brazil":         {Yield10Y: 12.1, EquityRiskPremium: 0.086},
	}}
}

// LoadWorkbook merges country rows from an xlsx workbook over the
// snapshot. The sheet named "PRS Worksheet" is used when present,
// otherwise the first sheet. Expected columns: "Country", "Final ERP" and
// optionally a yield column containing "yield" in its header.
func (t *CountryRiskTable) LoadWorkbook(path string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("failed to open risk workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetList()[0]
	for _, name := range f.GetSheetList() {
		if strings.EqualFold(name, "PRS Worksheet") {
			sheet = name
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	countryCol, erpCol, yieldCol := -1, -1, -1
	start := 0
	for i, row := range rows {
		for j, cell := range row {
			header := strings.ToLower(strings.TrimSpace(cell))
			switch {
			case header == "country":
				countryCol = j
			case strings.Contains(header, "final erp"):
				erpCol = j
			case strings.Contains(header, "yield"):
				yieldCol = j
			}
		}
		if countryCol >= 0 && erpCol >= 0 {
			start = i + 1
			break
		}
		countryCol, erpCol, yieldCol = -1, -1, -1
	}
	if countryCol < 0 || erpCol < 0 {
		return fmt.Errorf("no Country/Final ERP header row in sheet %s", sheet)
	}

	loaded := 0
	for _, row := range rows[start:] {
		if countryCol >= len(row) || erpCol >= len(row) {
			continue
		}
		country := strings.ToLower(strings.TrimSpace(row[countryCol]))
		if country == "" {
			continue
		}
		erp, err := parseRate(row[erpCol])
		if err != nil {
			continue
		}
		entry := t.entries[country]
		entry.EquityRiskPremium = erp
		if yieldCol >= 0 && yieldCol < len(row) {
			if yield, err := parseRate(row[yieldCol]); err == nil {
				entry.Yield10Y = yield * 100
			}
		}
		t.entries[country] = entry
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("no usable country rows in sheet %s", sheet)
	}
	return nil
}

// Lookup resolves a country given either an ISO alpha-2 code or a name.
func (t *CountryRiskTable) Lookup(country string) (CountryRisk, error) {
	name := strings.TrimSpace(country)
	if full, ok := alpha2Names[strings.ToUpper(name)]; ok && len(name) == 2 {
		name = full
	}
	key := strings.ToLower(name)

	if entry, ok := t.entries[key]; ok {
		return entry, nil
	}
	// Tolerate qualified names like "Korea (South)" on either side.
	for candidate, entry := range t.entries {
		if strings.Contains(candidate, key) || strings.Contains(key, candidate) {
			return entry, nil
		}
	}
	return CountryRisk{}, fmt.Errorf("no risk data for country %q", country)
}

// parseRate reads a workbook cell as a decimal rate. Percent-formatted
// cells arrive either as "4.33%" strings or as numbers already divided
// by 100; bare numbers above 1 are treated as percent figures.
func parseRate(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, fmt.Errorf("empty cell")
	}
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	value, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("bad rate %q: %w", cell, err)
	}
	if percent || value > 1 {
		value /= 100
	}
	return value, nil
}
