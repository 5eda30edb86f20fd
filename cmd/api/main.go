package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"autodcf/pkg/api/valuation"
	"autodcf/pkg/core/config"
	"autodcf/pkg/core/pipeline"
	"autodcf/pkg/core/store"
)

func main() {
	// Load environment variables
	godotenv.Load()

	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Printf("[FATAL] %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	orchestrator, err := pipeline.NewDefaultOrchestrator(ctx, settings)
	if err != nil {
		fmt.Printf("[FATAL] %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// The read endpoints need the database; without one they answer 503.
	var runs valuation.RunReader
	if settings.DatabaseURL != "" {
		runs = store.NewRunRepo()
	} else {
		fmt.Println("[WARN] DATABASE_URL not set, stored-run endpoints are disabled")
	}

	handler := valuation.NewHandler(orchestrator, runs)
	http.HandleFunc("/api/valuation/run", handler.HandleRun)
	http.HandleFunc("/api/valuation/latest", handler.HandleLatest)
	http.HandleFunc("/api/valuation/history", handler.HandleHistory)
	http.HandleFunc("/api/valuation/report", handler.HandleReport)

	fmt.Printf("API server starting on %s...\n", settings.ListenAddr)
	fmt.Println("  - POST /api/valuation/run")
	fmt.Println("  - GET  /api/valuation/latest?ticker=")
	fmt.Println("  - GET  /api/valuation/history?ticker=&limit=")
	fmt.Println("  - GET  /api/valuation/report?ticker=")

	if err := http.ListenAndServe(settings.ListenAddr, nil); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}
