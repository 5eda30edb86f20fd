// An offline walkthrough of the valuation pipeline. All inputs are canned,
// so it runs without network access, API keys or a database. Useful for
// eyeballing the projection and valuation behavior after changes.
package main

import (
	"context"
	"fmt"
	"os"

	"autodcf/pkg/core/config"
	"autodcf/pkg/core/export"
	"autodcf/pkg/core/fundamentals"
	"autodcf/pkg/core/ingest"
	"autodcf/pkg/core/pipeline"
	"autodcf/pkg/core/valuation"
)

func logStep(step string, details string) {
	fmt.Printf("\n[STEP] %s\n", step)
	fmt.Println("---------------------------------------------------------")
	fmt.Println(details)
	fmt.Println("---------------------------------------------------------")
}

// cannedFundamentals serves a frozen Apple-flavored dataset, FY2021-FY2024,
// in absolute dollars.
type cannedFundamentals struct{}

func (cannedFundamentals) Statements(ctx context.Context, ticker string, years int) (fundamentals.Statements, error) {
	fiscalYears := []int{2021, 2022, 2023, 2024}

	income, err := fundamentals.NewBuilder(fiscalYears).
		Column(fundamentals.ColRevenue, []float64{365.8e9, 394.3e9, 383.3e9, 391.0e9}).
		Column(fundamentals.ColEBITDA, []float64{120.2e9, 130.5e9, 125.8e9, 134.7e9}).
		Column(fundamentals.ColEBT, []float64{109.2e9, 119.1e9, 113.7e9, 123.5e9}).
		Column(fundamentals.ColIncomeTax, []float64{14.5e9, 19.3e9, 16.7e9, 29.7e9}).
		Column(fundamentals.ColInterestExpense, []float64{2.6e9, 2.9e9, 3.9e9, 3.4e9}).
		Build()
	if err != nil {
		return fundamentals.Statements{}, err
	}

	cashOperating := []float64{104.0e9, 122.2e9, 110.5e9, 118.3e9}
	capEx := []float64{-11.1e9, -10.7e9, -11.0e9, -9.4e9}
	cash, err := fundamentals.NewBuilder(fiscalYears).
		Column(fundamentals.ColDA, []float64{11.3e9, 11.1e9, 11.5e9, 11.4e9}).
		Column(fundamentals.ColCapEx, capEx).
		Column(fundamentals.ColCashOperating, cashOperating).
		Column(fundamentals.ColFreeCashFlow, fundamentals.FreeCashFlow(cashOperating, capEx)).
		Build()
	if err != nil {
		return fundamentals.Statements{}, err
	}

	totalDebt := []float64{109.1e9, 98.9e9, 95.3e9, 85.8e9}
	cashOnHand := []float64{35.0e9, 23.6e9, 30.0e9, 29.9e9}
	currentAssets := []float64{134.8e9, 135.4e9, 143.6e9, 153.0e9}
	currentLiabilities := []float64{125.5e9, 154.0e9, 145.3e9, 176.4e9}
	balance, err := fundamentals.NewBuilder(fiscalYears).
		Column(fundamentals.ColTotalEquity, []float64{63.1e9, 50.7e9, 62.1e9, 57.0e9}).
		Column(fundamentals.ColTotalDebt, totalDebt).
		Column(fundamentals.ColCashOnHand, cashOnHand).
		Column(fundamentals.ColTotalCurrentAssets, currentAssets).
		Column(fundamentals.ColTotalCurrentLiabilities, currentLiabilities).
		Column(fundamentals.ColNetDebt, fundamentals.NetDebt(totalDebt, cashOnHand)).
		Column(fundamentals.ColNetWorkingCapital, fundamentals.NetWorkingCapital(currentAssets, currentLiabilities)).
		Build()
	if err != nil {
		return fundamentals.Statements{}, err
	}

	return fundamentals.Statements{Income: income, Balance: balance, Cash: cash}, nil
}

type cannedGrowth struct{}

func (cannedGrowth) LongRunGrowth(ctx context.Context, ticker string) (float64, error) {
	return 0.04, nil
}

type cannedMarket struct{}

func (cannedMarket) Profile(ctx context.Context, ticker string) (*ingest.Profile, error) {
	return &ingest.Profile{
		Ticker:    ticker,
		Company:   "Apple Inc.",
		Beta:      1.25,
		Price:     190.0,
		MarketCap: 2.9e12,
		Country:   "United States",
		Industry:  "Consumer Electronics",
	}, nil
}

func (cannedMarket) EVToEBITDA(ctx context.Context, ticker string) (float64, error) {
	return 22.0, nil
}

func (cannedMarket) Peers(ctx context.Context, ticker string) ([]string, error) {
	return []string{"MSFT", "GOOGL", "DELL"}, nil
}

func (cannedMarket) PeerMultiples(ctx context.Context, peers []string) []float64 {
	return []float64{24.1, 18.9, 9.8}
}

func main() {
	logStep("0. Initialization", "Starting offline valuation pipeline demo for AAPL (canned data).")

	orchestrator := pipeline.NewOrchestrator(cannedFundamentals{}, cannedGrowth{}, cannedMarket{})

	cfg := config.Defaults()
	cfg.Ticker = "AAPL"
	cfg.Seed = 42

	ctx := context.Background()

	logStep("1. Perpetuity run", "Terminal value from growing perpetuity of the last unlevered FCF.")
	perpetuity, err := orchestrator.Run(ctx, cfg)
	if err != nil {
		fmt.Printf("[FATAL] perpetuity run: %v\n", err)
		os.Exit(1)
	}

	logStep("2. Exit multiple run", "Terminal value from the peer EV/EBITDA basket.")
	cfg.Method = valuation.MethodExitMultiple
	exitMultiple, err := orchestrator.Run(ctx, cfg)
	if err != nil {
		fmt.Printf("[FATAL] exit multiple run: %v\n", err)
		os.Exit(1)
	}

	logStep("3. Report", "Markdown report for the perpetuity run.")
	fmt.Println(export.RunReport(perpetuity))

	fmt.Println("\n#########################################################")
	fmt.Println("                METHOD COMPARISON")
	fmt.Println("#########################################################")
	fmt.Printf("%-22s | %12s | %12s\n", "", "perpetuity", "exit multiple")
	fmt.Printf("%-22s | %12.2f | %12.2f\n", "Projected price", perpetuity.ProjectedPrice, exitMultiple.ProjectedPrice)
	fmt.Printf("%-22s | %11.1f%% | %11.1f%%\n", "Upside vs market", perpetuity.Upside*100, exitMultiple.Upside*100)
	fmt.Printf("%-22s | %11.1f%% | %11.1f%%\n", "WACC", perpetuity.WACC*100, exitMultiple.WACC*100)
	fmt.Printf("%-22s | %12s | %12s\n", "Terminal value", short(perpetuity.TerminalValue), short(exitMultiple.TerminalValue))

	fmt.Println("\n[Done] Demo complete.")
}

func short(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
