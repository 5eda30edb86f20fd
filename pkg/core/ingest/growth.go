package ingest

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const finvizQuoteURL = "https://finviz.com/quote.ashx?t=%s"

// percentPattern matches figures like "12%", "8.5%" or "-3.2%".
var percentPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?%`)

// growthLabels mark table cells whose neighbor holds a long-run growth
// estimate, in preference order.
var growthLabels = []string{"eps next 5y", "sales next 5y", "eps next y"}

// GrowthClient scrapes analyst long-run growth estimates. The figure feeds
// the terminal growth rate when no manual value is configured.
type GrowthClient struct {
	httpClient *http.Client

	// QuoteURL is the quote page endpoint, a format string taking the
	// ticker. Tests point it at a local server.
	QuoteURL string
}

func NewGrowthClient() *GrowthClient {
	return &GrowthClient{
		httpClient: newHTTPClient(),
		QuoteURL:   finvizQuoteURL,
	}
}

// LongRunGrowth returns an estimated long-run growth rate as a decimal
// fraction. Callers are expected to fall back to a historical CAGR when
// this errors; a scrape failure is routine, not exceptional.
func (c *GrowthClient) LongRunGrowth(ctx context.Context, ticker string) (float64, error) {
	doc, err := fetchDocument(ctx, c.httpClient, fmt.Sprintf(c.QuoteURL, strings.ToUpper(ticker)))
	if err != nil {
		return 0, fmt.Errorf("growth page for %s: %w", ticker, err)
	}

	estimates := make(map[string]float64)
	doc.Find("table.snapshot-table2 td").Each(func(_ int, cell *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(cell.Text()))
		for _, want := range growthLabels {
			if label != want {
				continue
			}
			value := strings.TrimSpace(cell.Next().Text())
			if rate, err := parsePercent(value); err == nil {
				estimates[want] = rate
			}
		}
	})

	for _, label := range growthLabels {
		if rate, ok := estimates[label]; ok && sanePerpetualGrowth(rate) {
			return rate, nil
		}
	}
	return 0, fmt.Errorf("no growth estimate found for %s", ticker)
}

// parsePercent converts "8.5%" to 0.085.
func parsePercent(s string) (float64, error) {
	match := percentPattern.FindString(s)
	if match == "" {
		return 0, fmt.Errorf("no percent figure in %q", s)
	}
	value, err := strconv.ParseFloat(strings.TrimSuffix(match, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("bad percent figure %q: %w", match, err)
	}
	return value / 100, nil
}

// sanePerpetualGrowth rejects estimates a perpetuity cannot carry. Growth
// at or above the discount rate breaks the terminal value formula.
func sanePerpetualGrowth(rate float64) bool {
	return rate > -0.5 && rate < 0.25
}
