package export

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"autodcf/pkg/models"
)

// RunReport renders a run as a markdown document: valuation summary, cost
// of capital and the projection table with growth rates.
func RunReport(run *models.ValuationRun) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s Discounted Cash Flow Valuation\n\n", strings.ToUpper(run.Ticker))
	fmt.Fprintf(&b, "_%s method · %d historical years · %d forecast years · %s_\n\n",
		run.Method, run.HistoricalYears, run.ForecastYears, run.CreatedAt.Format("Jan 2 2006"))

	b.WriteString("## Summary\n\n")
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Projected price | %.2f |\n", run.ProjectedPrice)
	if run.CurrentPrice > 0 {
		fmt.Fprintf(&b, "| Current price | %.2f |\n", run.CurrentPrice)
		fmt.Fprintf(&b, "| Upside (downside) | %s |\n", percent(run.Upside))
	}
	fmt.Fprintf(&b, "| Enterprise value | %s |\n", amount(run.EnterpriseValue))
	fmt.Fprintf(&b, "| Equity value | %s |\n", amount(run.EquityValue))
	fmt.Fprintf(&b, "| Terminal value | %s |\n", amount(run.TerminalValue))
	fmt.Fprintf(&b, "| PV of terminal value | %s |\n", amount(run.PresentTerminalValue))
	fmt.Fprintf(&b, "| Net debt | %s |\n", amount(run.NetDebt))
	fmt.Fprintf(&b, "| Shares outstanding | %s |\n", amount(run.SharesOutstanding))
	b.WriteString("\n")

	b.WriteString("## Cost of capital\n\n")
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| WACC | %s |\n", percent(run.WACC))
	fmt.Fprintf(&b, "| Cost of equity | %s |\n", percent(run.CostOfEquity))
	fmt.Fprintf(&b, "| Cost of debt | %s |\n", percent(run.CostOfDebt))
	fmt.Fprintf(&b, "| Effective tax rate | %s |\n", percent(run.TaxRate))
	fmt.Fprintf(&b, "| Terminal growth | %s |\n", percent(run.TerminalGrowth))
	if run.Method == "exit_multiple" && run.ExitMultiple > 0 {
		fmt.Fprintf(&b, "| Exit multiple | %.1fx |\n", run.ExitMultiple)
	}
	b.WriteString("\n")

	writeProjectionSection(&b, run)

	if len(run.SkippedColumns) > 0 {
		fmt.Fprintf(&b, "**Skipped columns:** %s (no forecast policy was configured for them).\n",
			strings.Join(run.SkippedColumns, ", "))
	}
	return b.String()
}

func writeProjectionSection(b *strings.Builder, run *models.ValuationRun) {
	if len(run.Table.Years) == 0 {
		return
	}

	b.WriteString("## Projections\n\n")
	histLen := len(run.Table.Years) - run.Table.Horizon

	b.WriteString("| Year |")
	for _, column := range run.Table.Order {
		fmt.Fprintf(b, " %s |", column)
	}
	b.WriteString(" UFCF | PV |\n|---|")
	for range run.Table.Order {
		b.WriteString("---|")
	}
	b.WriteString("---|---|\n")

	for i, year := range run.Table.Years {
		marker := ""
		if i >= histLen {
			marker = "F"
		}
		fmt.Fprintf(b, "| %d%s |", year, marker)
		for _, column := range run.Table.Order {
			fmt.Fprintf(b, " %s |", amount(run.Table.Columns[column][i]))
		}
		ufcf, pv := "", ""
		if i < len(run.UnleveredFCF) {
			ufcf = amount(run.UnleveredFCF[i])
		}
		if i < len(run.PresentValue) {
			pv = amount(run.PresentValue[i])
		}
		fmt.Fprintf(b, " %s | %s |\n", ufcf, pv)
	}
	b.WriteString("\nYears marked F are forecast periods.\n\n")

	if len(run.GrowthRates) == 0 {
		return
	}
	b.WriteString("## Growth rates\n\n")
	b.WriteString("| Year |")
	columns := make([]string, 0, len(run.GrowthRates))
	for _, column := range run.Table.Order {
		if _, ok := run.GrowthRates[column]; ok {
			columns = append(columns, column)
			fmt.Fprintf(b, " %s |", column)
		}
	}
	b.WriteString("\n|---|")
	for range columns {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for i, year := range run.Table.Years {
		fmt.Fprintf(b, "| %d |", year)
		for _, column := range columns {
			rates := run.GrowthRates[column]
			if i < len(rates) {
				fmt.Fprintf(b, " %s |", percent(rates[i]))
			} else {
				b.WriteString(" |")
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// RenderHTML converts a markdown report into a standalone HTML document.
func RenderHTML(markdown string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}

	return "<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"/></head>\n<body>\n" +
		buf.String() + "</body>\n</html>\n", nil
}

// ReportExporter writes the markdown report and its HTML rendering.
type ReportExporter struct {
	Dir string
}

func NewReportExporter(dir string) *ReportExporter {
	if dir == "" {
		dir = "exports"
	}
	return &ReportExporter{Dir: dir}
}

// Export writes <TICKER>_report.md and <TICKER>_report.html, returning
// both paths.
func (e *ReportExporter) Export(run *models.ValuationRun) (mdPath, htmlPath string, err error) {
	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create export dir: %w", err)
	}

	markdown := RunReport(run)
	rendered, err := RenderHTML(markdown)
	if err != nil {
		return "", "", err
	}

	base := strings.ToUpper(run.Ticker) + "_report"
	mdPath = filepath.Join(e.Dir, base+".md")
	htmlPath = filepath.Join(e.Dir, base+".html")

	if err := os.WriteFile(mdPath, []byte(markdown), 0644); err != nil {
		return "", "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.WriteFile(htmlPath, []byte(rendered), 0644); err != nil {
		return "", "", fmt.Errorf("failed to write html report: %w", err)
	}
	return mdPath, htmlPath, nil
}

// percent formats a decimal rate for people, e.g. 0.085 -> "8.50%".
func percent(rate float64) string {
	return fmt.Sprintf("%.2f%%", rate*100)
}

// amount formats large money amounts with a magnitude suffix.
func amount(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%.2fT", v/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
