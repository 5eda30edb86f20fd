// Package export renders completed valuation runs into shareable files: a
// formatted Excel model and a markdown report with an HTML variant.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"autodcf/pkg/models"
)

const sheetName = "DCF"

// ExcelExporter writes one workbook per run into Dir.
type ExcelExporter struct {
	Dir string
}

func NewExcelExporter(dir string) *ExcelExporter {
	if dir == "" {
		dir = "exports"
	}
	return &ExcelExporter{Dir: dir}
}

// Export writes the DCF model workbook and returns its path. The sheet has
// three zones: a merged title, a summary block and the projection table
// with the per-column growth rates alongside the values.
func (e *ExcelExporter) Export(run *models.ValuationRun) (string, error) {
	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", sheetName)

	styles, err := newStyleSet(f)
	if err != nil {
		return "", err
	}

	// Title
	if err := f.MergeCell(sheetName, "A1", "I1"); err != nil {
		return "", fmt.Errorf("failed to merge title cells: %w", err)
	}
	title := fmt.Sprintf("Discounted Cash Flow (DCF) Model (%s method)", run.Method)
	f.SetCellValue(sheetName, "A1", title)
	f.SetCellStyle(sheetName, "A1", "I1", styles.title)

	// Summary block
	summary := []struct {
		label string
		value interface{}
		style int
	}{
		{"WACC", run.WACC, styles.percent},
		{"Terminal Growth", run.TerminalGrowth, styles.percent},
		{"Projection Years", run.ForecastYears, styles.plain},
		{"Projected Price", run.ProjectedPrice, styles.money},
		{"Upside (Downside)", run.Upside, styles.percent},
	}
	f.SetCellValue(sheetName, "A3", "DCF Summary")
	f.SetCellStyle(sheetName, "A3", "A3", styles.header)
	for i, row := range summary {
		labelCell := fmt.Sprintf("A%d", 4+i)
		valueCell := fmt.Sprintf("B%d", 4+i)
		f.SetCellValue(sheetName, labelCell, row.label)
		f.SetCellStyle(sheetName, labelCell, labelCell, styles.label)
		f.SetCellValue(sheetName, valueCell, row.value)
		f.SetCellStyle(sheetName, valueCell, valueCell, row.style)
	}

	if err := e.writeProjectionTable(f, run, styles); err != nil {
		return "", err
	}

	f.SetColWidth(sheetName, "A", "A", 15)

	path := filepath.Join(e.Dir, fmt.Sprintf("%s_dcf_model.xlsx", strings.ToUpper(run.Ticker)))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return path, nil
}

// writeProjectionTable lays the run's table out at row 11: the year column,
// one column per projected series, the cash flow columns and one growth
// rate column per forecast series.
func (e *ExcelExporter) writeProjectionTable(f *excelize.File, run *models.ValuationRun, styles styleSet) error {
	const startRow = 11

	headers := []string{"Year"}
	headers = append(headers, run.Table.Order...)
	headers = append(headers, "Unlevered FCF", "Present Value")

	rateColumns := make([]string, 0, len(run.GrowthRates))
	for _, column := range run.Table.Order {
		if _, ok := run.GrowthRates[column]; ok {
			rateColumns = append(rateColumns, column)
		}
	}
	for _, column := range rateColumns {
		headers = append(headers, column+" growth")
	}

	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, startRow)
		if err != nil {
			return fmt.Errorf("failed to build cell name: %w", err)
		}
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, styles.header)
	}

	for rowIdx, year := range run.Table.Years {
		row := startRow + 1 + rowIdx
		col := 1

		cell, _ := excelize.CoordinatesToCellName(col, row)
		f.SetCellValue(sheetName, cell, year)
		col++

		for _, column := range run.Table.Order {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			f.SetCellValue(sheetName, cell, run.Table.Columns[column][rowIdx])
			f.SetCellStyle(sheetName, cell, cell, styles.amount)
			col++
		}

		for _, series := range [][]float64{run.UnleveredFCF, run.PresentValue} {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			if rowIdx < len(series) {
				f.SetCellValue(sheetName, cell, series[rowIdx])
			}
			f.SetCellStyle(sheetName, cell, cell, styles.amount)
			col++
		}

		for _, column := range rateColumns {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			rates := run.GrowthRates[column]
			if rowIdx < len(rates) {
				f.SetCellValue(sheetName, cell, rates[rowIdx])
			}
			f.SetCellStyle(sheetName, cell, cell, styles.percent)
			col++
		}
	}

	if len(headers) > 1 {
		last, _ := excelize.ColumnNumberToName(len(headers))
		f.SetColWidth(sheetName, "B", last, 16)
	}
	return nil
}

// styleSet holds the style ids the sheet reuses.
type styleSet struct {
	title   int
	header  int
	label   int
	plain   int
	percent int
	money   int
	amount  int
}

func newStyleSet(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	percentFmt := "0.0%"
	moneyFmt := "0.00"
	amountFmt := "#,##0"

	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return s, fmt.Errorf("failed to create title style: %w", err)
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DCE6F1"}},
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "left"},
	}); err != nil {
		return s, fmt.Errorf("failed to create header style: %w", err)
	}
	if s.label, err = f.NewStyle(&excelize.Style{
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "left"},
	}); err != nil {
		return s, fmt.Errorf("failed to create label style: %w", err)
	}
	if s.plain, err = f.NewStyle(&excelize.Style{
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "right"},
	}); err != nil {
		return s, fmt.Errorf("failed to create plain style: %w", err)
	}
	if s.percent, err = f.NewStyle(&excelize.Style{
		Border:       border,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		CustomNumFmt: &percentFmt,
	}); err != nil {
		return s, fmt.Errorf("failed to create percent style: %w", err)
	}
	if s.money, err = f.NewStyle(&excelize.Style{
		Border:       border,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		CustomNumFmt: &moneyFmt,
	}); err != nil {
		return s, fmt.Errorf("failed to create money style: %w", err)
	}
	if s.amount, err = f.NewStyle(&excelize.Style{
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		CustomNumFmt: &amountFmt,
	}); err != nil {
		return s, fmt.Errorf("failed to create amount style: %w", err)
	}
	return s, nil
}
