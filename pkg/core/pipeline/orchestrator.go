// Package pipeline wires the valuation steps end to end: statements in,
// cost of capital, projections, discounting, persistence and export.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"autodcf/pkg/core/config"
	"autodcf/pkg/core/export"
	"autodcf/pkg/core/forecast"
	"autodcf/pkg/core/fundamentals"
	"autodcf/pkg/core/ingest"
	"autodcf/pkg/core/store"
	"autodcf/pkg/core/valuation"
	"autodcf/pkg/models"
)

// FundamentalsProvider supplies the three aligned statement tables.
// Implementations may scrape, read fixtures or replay cached data.
type FundamentalsProvider interface {
	Statements(ctx context.Context, ticker string, years int) (fundamentals.Statements, error)
}

// GrowthEstimator supplies a long-run growth figure for the terminal rate.
type GrowthEstimator interface {
	LongRunGrowth(ctx context.Context, ticker string) (float64, error)
}

// MarketData supplies company profile figures and peer multiples.
type MarketData interface {
	Profile(ctx context.Context, ticker string) (*ingest.Profile, error)
	EVToEBITDA(ctx context.Context, ticker string) (float64, error)
	Peers(ctx context.Context, ticker string) ([]string, error)
	PeerMultiples(ctx context.Context, peers []string) []float64
}

// RunStore persists completed runs.
type RunStore interface {
	Save(ctx context.Context, run *models.ValuationRun) error
}

// StatementCache short-circuits repeated statement fetches.
type StatementCache interface {
	Get(ctx context.Context, ticker string, years int) (fundamentals.Statements, bool)
	Save(ctx context.Context, ticker string, years int, statements fundamentals.Statements) error
}

// Orchestrator runs the valuation pipeline. The three market-facing
// collaborators are required; cache, store and country risk have working
// defaults and setters for tests.
type Orchestrator struct {
	fundamentals FundamentalsProvider
	growth       GrowthEstimator
	market       MarketData
	risk         *ingest.CountryRiskTable
	registry     *forecast.Registry
	cache        StatementCache
	runs         RunStore
}

// NewOrchestrator creates an orchestrator around the given collaborators.
func NewOrchestrator(fundamentals FundamentalsProvider, growth GrowthEstimator, market MarketData) *Orchestrator {
	return &Orchestrator{
		fundamentals: fundamentals,
		growth:       growth,
		market:       market,
		risk:         ingest.DefaultCountryRiskTable(),
		registry:     forecast.NewRegistry(),
	}
}

// NewDefaultOrchestrator wires the production collaborators from process
// settings: the Macrotrends scraper, the growth scraper, the market data
// APIs, the statement cache and, when a database is configured, the run
// store.
func NewDefaultOrchestrator(ctx context.Context, settings config.Settings) (*Orchestrator, error) {
	mapping := ingest.DefaultColumnMapping()
	if settings.ColumnMapping != "" {
		loaded, err := ingest.LoadColumnMapping(settings.ColumnMapping)
		if err != nil {
			return nil, err
		}
		mapping = loaded
	}

	o := NewOrchestrator(
		ingest.NewStatementClient(mapping),
		ingest.NewGrowthClient(),
		ingest.NewMarketClient(settings.FMPAPIKey, settings.FinnhubAPIKey),
	)

	if settings.ERPWorkbook != "" {
		if err := o.risk.LoadWorkbook(settings.ERPWorkbook); err != nil {
			fmt.Printf("[WARN] country risk workbook: %v, using compiled table\n", err)
		}
	}

	if settings.DatabaseURL != "" {
		if err := store.Connect(ctx, settings.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to connect run store: %w", err)
		}
		o.runs = store.NewRunRepo()
	}
	o.cache = store.NewStatementCache(store.GetPool(), settings.CacheDir, 24*time.Hour)

	return o, nil
}

// SetStatementCache replaces the statement cache, nil disables caching.
func (o *Orchestrator) SetStatementCache(cache StatementCache) {
	o.cache = cache
}

// SetRunStore replaces the run store, nil disables persistence.
func (o *Orchestrator) SetRunStore(runs RunStore) {
	o.runs = runs
}

// SetCountryRisk replaces the country risk table.
func (o *Orchestrator) SetCountryRisk(table *ingest.CountryRiskTable) {
	o.risk = table
}

// Run executes one valuation and returns the completed run document.
func (o *Orchestrator) Run(ctx context.Context, cfg config.Config) (*models.ValuationRun, error) {
	start := time.Now()
	ticker := strings.ToUpper(cfg.Ticker)
	if err := cfg.Validate(o.registry); err != nil {
		return nil, err
	}

	// 1. Statements
	fmt.Printf("[STEP] fetching %d years of statements for %s\n", cfg.Years, ticker)
	statements, err := o.loadStatements(ctx, ticker, cfg.Years)
	if err != nil {
		return nil, err
	}
	taxRate, err := statements.EffectiveTaxRate()
	if err != nil {
		return nil, err
	}

	// 2. Market profile
	fmt.Printf("[STEP] fetching market profile for %s\n", ticker)
	profile, err := o.market.Profile(ctx, ticker)
	if err != nil {
		return nil, err
	}

	// 3. Cost of capital
	fmt.Printf("[STEP] resolving cost of capital\n")
	waccResult, wacc, err := o.resolveWACC(cfg, statements, profile, taxRate)
	if err != nil {
		return nil, err
	}

	// 4. Terminal growth
	terminalGrowth := o.resolveTerminalGrowth(ctx, cfg, ticker, statements)
	fmt.Printf("[STEP] terminal growth %.2f%%\n", terminalGrowth*100)

	// 5. Projections
	fmt.Printf("[STEP] projecting %d forecast years\n", cfg.ForecastYears)
	dcfTable, err := fundamentals.BuildDCFTable(statements, taxRate)
	if err != nil {
		return nil, err
	}
	extended, err := dcfTable.ExtendPeriods(cfg.ForecastYears)
	if err != nil {
		return nil, err
	}
	engine := forecast.NewEngine(o.registry, terminalGrowth, cfg.Seed)
	forecasted, err := engine.Run(extended, cfg.Rates)
	if err != nil {
		return nil, err
	}

	// 6. Valuation
	fmt.Printf("[STEP] valuing %s with the %s method\n", ticker, cfg.Method)
	netDebt, err := statements.Balance.LastHistorical(fundamentals.ColNetDebt)
	if err != nil {
		return nil, err
	}
	shares, err := o.resolveShares(cfg, profile)
	if err != nil {
		return nil, err
	}
	exitMultiple := 0.0
	if cfg.Method == valuation.MethodExitMultiple {
		exitMultiple, err = o.resolveExitMultiple(ctx, cfg, ticker)
		if err != nil {
			return nil, err
		}
	}

	dcfResult, err := valuation.CalculateDCF(valuation.DCFInput{
		Table:             forecasted.Table,
		WACC:              wacc,
		TerminalGrowth:    terminalGrowth,
		ExitMultiple:      exitMultiple,
		Method:            cfg.Method,
		NetDebt:           netDebt,
		SharesOutstanding: shares,
	})
	if err != nil {
		return nil, err
	}

	currentPrice := cfg.Overrides.CurrentPrice.Or(profile.Price)
	run := &models.ValuationRun{
		ID:        uuid.NewString(),
		Ticker:    ticker,
		Method:    cfg.Method,
		CreatedAt: time.Now().UTC(),

		HistoricalYears:   cfg.Years,
		ForecastYears:     cfg.ForecastYears,
		CostOfEquity:      waccResult.CostOfEquity,
		CostOfDebt:        waccResult.CostOfDebt,
		WACC:              wacc,
		TaxRate:           taxRate,
		TerminalGrowth:    terminalGrowth,
		ExitMultiple:      exitMultiple,
		NetDebt:           netDebt,
		SharesOutstanding: shares,

		TerminalValue:        dcfResult.TerminalValue,
		PresentTerminalValue: dcfResult.PresentTerminalValue,
		EnterpriseValue:      dcfResult.EnterpriseValue,
		EquityValue:          dcfResult.EquityValue,
		ProjectedPrice:       dcfResult.SharePrice,
		CurrentPrice:         currentPrice,
		Upside:               valuation.Upside(dcfResult.SharePrice, currentPrice),

		Table:          snapshotTable(forecasted.Table, forecasted.Skipped),
		GrowthRates:    forecasted.Rates,
		UnleveredFCF:   dcfResult.UnleveredFCF,
		PresentValue:   dcfResult.PresentValue,
		SkippedColumns: forecasted.Skipped,
	}

	// 7. Persistence and export
	if o.runs != nil {
		if err := o.runs.Save(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to persist run: %w", err)
		}
	}
	if err := o.export(cfg, run); err != nil {
		return nil, err
	}

	fmt.Printf("[DONE] %s valued at %.2f in %v\n", ticker, run.ProjectedPrice, time.Since(start).Round(time.Millisecond))
	return run, nil
}

// loadStatements consults the cache before scraping, and validates that
// the statements arrive complete either way.
func (o *Orchestrator) loadStatements(ctx context.Context, ticker string, years int) (fundamentals.Statements, error) {
	if o.cache != nil {
		if cached, ok := o.cache.Get(ctx, ticker, years); ok {
			fmt.Printf("[STEP] statements for %s served from cache\n", ticker)
			return cached, nil
		}
	}

	statements, err := o.fundamentals.Statements(ctx, ticker, years)
	if err != nil {
		return fundamentals.Statements{}, err
	}
	if err := statements.Validate(); err != nil {
		return fundamentals.Statements{}, err
	}

	if o.cache != nil {
		if err := o.cache.Save(ctx, ticker, years, statements); err != nil {
			fmt.Printf("[WARN] statement cache save: %v\n", err)
		}
	}
	return statements, nil
}

// resolveWACC computes the cost of capital from the observed capital
// structure, honoring the per-figure manual overrides. A WACC override
// wins outright but the component rates are still reported when they can
// be computed.
func (o *Orchestrator) resolveWACC(cfg config.Config, statements fundamentals.Statements, profile *ingest.Profile, taxRate float64) (valuation.WACCResult, float64, error) {
	overrides := cfg.Overrides

	riskFree := overrides.RiskFreeRate
	erp := overrides.EquityRiskPremium
	if !riskFree.IsSet() || !erp.IsSet() {
		countryRisk, err := o.risk.Lookup(profile.Country)
		if err != nil {
			if overrides.WACC.IsSet() {
				fmt.Printf("[WARN] %v, relying on the wacc override\n", err)
				return valuation.WACCResult{WACC: overrides.WACC.Value}, overrides.WACC.Value, nil
			}
			return valuation.WACCResult{}, 0, err
		}
		riskFree = config.AutoFloat{Value: riskFree.Or(countryRisk.RiskFreeRate())}
		erp = config.AutoFloat{Value: erp.Or(countryRisk.EquityRiskPremium)}
	}

	interest, err := statements.Income.LastHistorical(fundamentals.ColInterestExpense)
	if err != nil {
		return valuation.WACCResult{}, 0, err
	}
	debt, err := statements.Balance.LastHistorical(fundamentals.ColTotalDebt)
	if err != nil {
		return valuation.WACCResult{}, 0, err
	}
	equity, err := statements.Balance.LastHistorical(fundamentals.ColTotalEquity)
	if err != nil {
		return valuation.WACCResult{}, 0, err
	}

	result, err := valuation.CalculateWACC(valuation.WACCInput{
		RiskFreeRate:      riskFree.Value,
		Beta:              overrides.Beta.Or(profile.Beta),
		EquityRiskPremium: erp.Value,
		InterestExpense:   interest,
		TotalDebt:         debt,
		TotalEquity:       equity,
		TaxRate:           taxRate,
	})
	if err != nil {
		if overrides.WACC.IsSet() {
			fmt.Printf("[WARN] %v, relying on the wacc override\n", err)
			return valuation.WACCResult{WACC: overrides.WACC.Value}, overrides.WACC.Value, nil
		}
		return valuation.WACCResult{}, 0, err
	}
	return result, overrides.WACC.Or(result.WACC), nil
}

// resolveTerminalGrowth prefers the manual override, then a scraped
// analyst estimate, then the historical revenue CAGR.
func (o *Orchestrator) resolveTerminalGrowth(ctx context.Context, cfg config.Config, ticker string, statements fundamentals.Statements) float64 {
	if cfg.Overrides.TerminalGrowth.IsSet() {
		return cfg.Overrides.TerminalGrowth.Value
	}

	rate, err := o.growth.LongRunGrowth(ctx, ticker)
	if err == nil {
		return rate
	}
	fmt.Printf("[WARN] growth estimate: %v, falling back to revenue CAGR\n", err)

	revenue, err := statements.Income.Historical(fundamentals.ColRevenue)
	if err == nil && len(revenue) >= 2 {
		cagr, err := valuation.CAGR(revenue[0], revenue[len(revenue)-1], len(revenue)-1)
		if err == nil {
			return cagr
		}
		fmt.Printf("[WARN] revenue CAGR: %v\n", err)
	}
	return 0
}

func (o *Orchestrator) resolveShares(cfg config.Config, profile *ingest.Profile) (float64, error) {
	if cfg.Overrides.SharesOutstanding.IsSet() {
		return cfg.Overrides.SharesOutstanding.Value, nil
	}
	return profile.SharesOutstanding()
}

// resolveExitMultiple works through override, peer basket, then the
// company's own trailing multiple.
func (o *Orchestrator) resolveExitMultiple(ctx context.Context, cfg config.Config, ticker string) (float64, error) {
	if cfg.Overrides.ExitMultiple.IsSet() {
		return cfg.Overrides.ExitMultiple.Value, nil
	}

	peers := cfg.Peers
	if len(peers) == 0 {
		listed, err := o.market.Peers(ctx, ticker)
		if err != nil {
			fmt.Printf("[WARN] peer listing: %v\n", err)
		}
		peers = listed
	}

	if len(peers) > 0 {
		multiple, err := valuation.ExitMultipleFromPeers(o.market.PeerMultiples(ctx, peers))
		if err == nil {
			return multiple, nil
		}
		fmt.Printf("[WARN] peer basket: %v, falling back to historical multiple\n", err)
	}

	multiple, err := o.market.EVToEBITDA(ctx, ticker)
	if err != nil {
		return 0, fmt.Errorf("no exit multiple available for %s: %w", ticker, err)
	}
	return multiple, nil
}

// export writes the configured artifacts for a finished run.
func (o *Orchestrator) export(cfg config.Config, run *models.ValuationRun) error {
	if !cfg.Export.Excel {
		return nil
	}

	path, err := export.NewExcelExporter(cfg.Export.Dir).Export(run)
	if err != nil {
		return fmt.Errorf("excel export: %w", err)
	}
	fmt.Printf("[STEP] wrote %s\n", path)

	mdPath, htmlPath, err := export.NewReportExporter(cfg.Export.Dir).Export(run)
	if err != nil {
		return fmt.Errorf("report export: %w", err)
	}
	fmt.Printf("[STEP] wrote %s and %s\n", mdPath, htmlPath)
	return nil
}

// snapshotTable drops skipped columns from the run document; their
// forecast cells hold NaN, which JSON cannot carry.
func snapshotTable(table fundamentals.Table, skipped []string) fundamentals.TableData {
	data := table.Data()
	if len(skipped) == 0 {
		return data
	}

	drop := make(map[string]bool, len(skipped))
	for _, column := range skipped {
		drop[column] = true
	}

	order := make([]string, 0, len(data.Order))
	for _, column := range data.Order {
		if drop[column] {
			delete(data.Columns, column)
			continue
		}
		order = append(order, column)
	}
	data.Order = order
	return data
}
