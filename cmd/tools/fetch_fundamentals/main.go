// Batch-fetches Macrotrends statements for a list of tickers and writes
// them into the statement cache directory. Run it to pre-warm the cache
// before demos, or to capture fixtures while the scraper and the site
// still agree.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"autodcf/pkg/core/config"
	"autodcf/pkg/core/ingest"
	"autodcf/pkg/core/store"
)

func main() {
	tickers := flag.String("tickers", "", "comma separated tickers, e.g. AAPL,MSFT,TSLA")
	years := flag.Int("years", 4, "historical lookback in fiscal years")
	out := flag.String("out", "cache/statements", "cache directory to write into")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env not found, using environment variables")
	}

	if *tickers == "" {
		log.Fatal("Error: -tickers is required")
	}

	settings, err := config.LoadSettings()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	mapping := ingest.DefaultColumnMapping()
	if settings.ColumnMapping != "" {
		mapping, err = ingest.LoadColumnMapping(settings.ColumnMapping)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
	}

	client := ingest.NewStatementClient(mapping)
	cache := store.NewStatementCache(nil, *out, 24*time.Hour)
	ctx := context.Background()

	for _, ticker := range strings.Split(*tickers, ",") {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker == "" {
			continue
		}
		fmt.Printf("\n=== Fetching %s (%d years) ===\n", ticker, *years)

		start := time.Now()
		statements, err := client.Statements(ctx, ticker, *years)
		if err != nil {
			log.Printf("Error fetching %s: %v\n", ticker, err)
			continue
		}
		fmt.Printf("Fetched in %v\n", time.Since(start))

		if err := statements.Validate(); err != nil {
			log.Printf("Warning: %s has gaps: %v\n", ticker, err)
		}

		if err := cache.Save(ctx, ticker, *years, statements); err != nil {
			log.Printf("Error writing cache for %s: %v\n", ticker, err)
			continue
		}
		fmt.Printf("Saved %s to %s\n", ticker, *out)

		// Be polite to the site between tickers.
		time.Sleep(2 * time.Second)
	}

	fmt.Println("\n=== Done ===")
}
