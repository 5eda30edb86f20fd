package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"autodcf/pkg/core/config"
	"autodcf/pkg/core/export"
	"autodcf/pkg/core/pipeline"
	"autodcf/pkg/core/store"
)

func main() {
	configPath := flag.String("config", "", "run file (json or hjson), optional")
	ticker := flag.String("ticker", "", "stock symbol to value, overrides the run file")
	method := flag.String("method", "", "terminal value method: perpetuity or exit_multiple")
	years := flag.Int("years", 0, "historical lookback in fiscal years")
	forecast := flag.Int("forecast", 0, "projection horizon in years")
	exportFiles := flag.Bool("export", false, "write the Excel model and report files")
	save := flag.Bool("save", true, "persist the run when a database is configured")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, assuming environment variables are set.")
	}

	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		cfg = loaded
	}
	if *ticker != "" {
		cfg.Ticker = *ticker
	}
	if *method != "" {
		cfg.Method = *method
	}
	if *years > 0 {
		cfg.Years = *years
	}
	if *forecast > 0 {
		cfg.ForecastYears = *forecast
	}
	if *exportFiles {
		cfg.Export.Excel = true
	}
	if cfg.Ticker == "" {
		log.Fatal("Error: a ticker is required, pass -ticker or set one in the run file.")
	}

	settings, err := config.LoadSettings()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	ctx := context.Background()
	orchestrator, err := pipeline.NewDefaultOrchestrator(ctx, settings)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer store.Close()
	if !*save {
		orchestrator.SetRunStore(nil)
	}

	fmt.Printf("Valuing %s...\n\n", strings.ToUpper(cfg.Ticker))
	run, err := orchestrator.Run(ctx, cfg)
	if err != nil {
		log.Fatalf("Valuation failed: %v", err)
	}

	fmt.Println()
	fmt.Println(export.RunReport(run))
}
