package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"autodcf/pkg/core/fundamentals"
	"autodcf/pkg/core/utils"
)

const macrotrendsChartsURL = "https://www.macrotrends.net/stocks/charts/%s"

// Statement page slugs appended to the resolved company URL.
const (
	slugIncome  = "income-statement"
	slugCash    = "cash-flow-statement"
	slugBalance = "balance-sheet"
)

// originalDataPattern matches the JSON array Macrotrends embeds in a script
// tag on every statement page.
var originalDataPattern = regexp.MustCompile(`(?s)var originalData = (\[.*?\]);`)

// htmlTagPattern strips markup from field names, which arrive as anchor
// fragments like "<a href='...'>Revenue</a>".
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// Canonical column order per statement. Map iteration is randomized, so the
// mapping alone cannot fix the table layout.
var (
	incomeColumns = []string{
		fundamentals.ColRevenue,
		fundamentals.ColEBITDA,
		fundamentals.ColEBT,
		fundamentals.ColIncomeTax,
		fundamentals.ColInterestExpense,
	}
	cashColumns = []string{
		fundamentals.ColDA,
		fundamentals.ColCapEx,
		fundamentals.ColCashOperating,
	}
	balanceColumns = []string{
		fundamentals.ColTotalEquity,
		fundamentals.ColTotalDebt,
		fundamentals.ColTotalCurrentAssets,
		fundamentals.ColTotalCurrentLiabilities,
		fundamentals.ColCashOnHand,
	}
)

// StatementClient scrapes yearly financial statements from Macrotrends.
type StatementClient struct {
	httpClient *http.Client
	mapping    ColumnMapping

	// ChartsURL is the ticker lookup endpoint, a format string taking the
	// ticker. Tests point it at a local server.
	ChartsURL string
}

// NewStatementClient creates a scraper using the given column mapping.
func NewStatementClient(mapping ColumnMapping) *StatementClient {
	return &StatementClient{
		httpClient: newHTTPClient(),
		mapping:    mapping,
		ChartsURL:  macrotrendsChartsURL,
	}
}

// Statements fetches the income statement, cash flow statement and balance
// sheet for a ticker, keeping the most recent yearsBack fiscal years.
// Values are scaled from millions to actual units, and the balance and cash
// statements carry the derived netDebt, netWorkingCapital and freeCashFlow
// columns.
func (c *StatementClient) Statements(ctx context.Context, ticker string, yearsBack int) (fundamentals.Statements, error) {
	if yearsBack < 2 {
		return fundamentals.Statements{}, fmt.Errorf("need at least 2 historical years, got %d", yearsBack)
	}

	baseURL, err := c.resolveCompanyURL(ctx, ticker)
	if err != nil {
		return fundamentals.Statements{}, err
	}

	income, err := c.fetchStatement(ctx, baseURL, slugIncome, incomeColumns, c.mapping.Income, yearsBack)
	if err != nil {
		return fundamentals.Statements{}, fmt.Errorf("income statement: %w", err)
	}
	cash, err := c.fetchStatement(ctx, baseURL, slugCash, cashColumns, c.mapping.Cash, yearsBack)
	if err != nil {
		return fundamentals.Statements{}, fmt.Errorf("cash flow statement: %w", err)
	}
	balance, err := c.fetchStatement(ctx, baseURL, slugBalance, balanceColumns, c.mapping.Balance, yearsBack)
	if err != nil {
		return fundamentals.Statements{}, fmt.Errorf("balance sheet: %w", err)
	}

	statements := fundamentals.Statements{Income: income, Balance: balance, Cash: cash}
	if err := statements.Aligned(); err != nil {
		return fundamentals.Statements{}, err
	}
	return statements, nil
}

// resolveCompanyURL discovers the company page slug. Requesting the charts
// URL with only the ticker redirects to the full path, e.g.
// /stocks/charts/AAPL -> /stocks/charts/AAPL/apple/.
func (c *StatementClient) resolveCompanyURL(ctx context.Context, ticker string) (string, error) {
	url := fmt.Sprintf(c.ChartsURL, strings.ToUpper(ticker))
	_, finalURL, err := fetch(ctx, c.httpClient, url)
	if err != nil {
		return "", fmt.Errorf("failed to resolve company page for %s: %w", ticker, err)
	}
	if !strings.HasSuffix(finalURL, "/") {
		finalURL += "/"
	}
	return finalURL, nil
}

func (c *StatementClient) fetchStatement(ctx context.Context, baseURL, slug string, columns []string, mapping map[string]string, yearsBack int) (fundamentals.Table, error) {
	body, _, err := fetch(ctx, c.httpClient, baseURL+slug)
	if err != nil {
		return fundamentals.Table{}, err
	}

	rows, err := extractOriginalData(body)
	if err != nil {
		return fundamentals.Table{}, err
	}

	frame, err := parseStatementRows(rows)
	if err != nil {
		return fundamentals.Table{}, err
	}
	frame.trim(yearsBack)

	builder := fundamentals.NewBuilder(frame.years)
	for _, canonical := range columns {
		label, ok := mapping[canonical]
		if !ok {
			return fundamentals.Table{}, fmt.Errorf("no source label mapped for column %s", canonical)
		}
		values, ok := frame.fields[label]
		if !ok {
			return fundamentals.Table{}, fmt.Errorf("row %q not found on page", label)
		}
		builder.Column(canonical, scale(values))
	}

	switch slug {
	case slugCash:
		operating := frame.mustScaled(mapping[fundamentals.ColCashOperating])
		capEx := frame.mustScaled(mapping[fundamentals.ColCapEx])
		builder.Column(fundamentals.ColFreeCashFlow, fundamentals.FreeCashFlow(operating, capEx))
	case slugBalance:
		debt := frame.mustScaled(mapping[fundamentals.ColTotalDebt])
		cash := frame.mustScaled(mapping[fundamentals.ColCashOnHand])
		assets := frame.mustScaled(mapping[fundamentals.ColTotalCurrentAssets])
		liabilities := frame.mustScaled(mapping[fundamentals.ColTotalCurrentLiabilities])
		builder.Column(fundamentals.ColNetDebt, fundamentals.NetDebt(debt, cash))
		builder.Column(fundamentals.ColNetWorkingCapital, fundamentals.NetWorkingCapital(assets, liabilities))
	}

	return builder.Build()
}

// extractOriginalData pulls the embedded statement JSON out of the page's
// script tags. The array is parsed tolerantly because Macrotrends has
// shipped trailing commas before.
func extractOriginalData(page []byte) ([]map[string]interface{}, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var raw string
	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		text := script.Text()
		if !strings.Contains(text, "originalData") {
			return true
		}
		match := originalDataPattern.FindStringSubmatch(text)
		if match == nil {
			return true
		}
		raw = match[1]
		return false
	})
	if raw == "" {
		return nil, fmt.Errorf("could not find originalData JSON in page")
	}

	var rows []map[string]interface{}
	if _, err := utils.SmartParse(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse originalData: %w", err)
	}
	return rows, nil
}

// statementFrame is the intermediate shape between the scraped rows and a
// Table: one value per year per field, years ascending.
type statementFrame struct {
	years  []int
	fields map[string][]float64
}

// parseStatementRows turns the raw row objects into a year-indexed frame.
// Field names are stripped of markup, values are coerced to numbers with
// NaN for blanks, and fields that are NaN across every year are dropped.
func parseStatementRows(rows []map[string]interface{}) (*statementFrame, error) {
	yearSet := make(map[int]bool)
	type fieldRow struct {
		name   string
		byYear map[int]float64
	}
	parsed := make([]fieldRow, 0, len(rows))

	for _, row := range rows {
		rawName, _ := row["field_name"].(string)
		name := strings.TrimSpace(htmlTagPattern.ReplaceAllString(rawName, ""))
		if name == "" {
			continue
		}
		byYear := make(map[int]float64)
		for key, value := range row {
			if key == "field_name" || key == "popup_icon" {
				continue
			}
			year, ok := fiscalYear(key)
			if !ok {
				continue
			}
			yearSet[year] = true
			byYear[year] = coerceNumber(value)
		}
		parsed = append(parsed, fieldRow{name: name, byYear: byYear})
	}

	if len(yearSet) == 0 {
		return nil, fmt.Errorf("no fiscal years found in statement data")
	}
	years := make([]int, 0, len(yearSet))
	for year := range yearSet {
		years = append(years, year)
	}
	sort.Ints(years)

	frame := &statementFrame{years: years, fields: make(map[string][]float64)}
	for _, row := range parsed {
		values := make([]float64, len(years))
		allNaN := true
		for i, year := range years {
			v, ok := row.byYear[year]
			if !ok {
				v = math.NaN()
			}
			if !math.IsNaN(v) {
				allNaN = false
			}
			values[i] = v
		}
		if allNaN {
			continue
		}
		frame.fields[row.name] = values
	}
	return frame, nil
}

// trim keeps the most recent n years.
func (f *statementFrame) trim(n int) {
	if len(f.years) <= n {
		return
	}
	cut := len(f.years) - n
	f.years = f.years[cut:]
	for name, values := range f.fields {
		f.fields[name] = values[cut:]
	}
}

func (f *statementFrame) mustScaled(label string) []float64 {
	return scale(f.fields[label])
}

// scale converts from millions to actual units.
func scale(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * 1e6
	}
	return out
}

// fiscalYear extracts the year from a date column key like "2024-09-30".
func fiscalYear(key string) (int, bool) {
	if len(key) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(key[:4])
	if err != nil || year < 1900 || year > 2200 {
		return 0, false
	}
	if len(key) > 4 && key[4] != '-' {
		return 0, false
	}
	return year, true
}

// coerceNumber parses a scraped cell. Macrotrends serves values as strings
// with thousands separators; blanks and junk become NaN so a single bad
// cell does not sink the whole statement.
func coerceNumber(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if cleaned == "" || cleaned == "-" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}
