package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"autodcf/pkg/core/config"
	"autodcf/pkg/core/fundamentals"
	"autodcf/pkg/core/ingest"
	"autodcf/pkg/models"
)

// --- Mocks ---

type MockFundamentals struct {
	StatementsFunc func(ctx context.Context, ticker string, years int) (fundamentals.Statements, error)
	calls          int
}

func (m *MockFundamentals) Statements(ctx context.Context, ticker string, years int) (fundamentals.Statements, error) {
	m.calls++
	if m.StatementsFunc != nil {
		return m.StatementsFunc(ctx, ticker, years)
	}
	return cannedStatements(), nil
}

type MockGrowth struct {
	LongRunGrowthFunc func(ctx context.Context, ticker string) (float64, error)
}

func (m *MockGrowth) LongRunGrowth(ctx context.Context, ticker string) (float64, error) {
	if m.LongRunGrowthFunc != nil {
		return m.LongRunGrowthFunc(ctx, ticker)
	}
	return 0.025, nil
}

type MockMarket struct {
	ProfileFunc       func(ctx context.Context, ticker string) (*ingest.Profile, error)
	EVToEBITDAFunc    func(ctx context.Context, ticker string) (float64, error)
	PeersFunc         func(ctx context.Context, ticker string) ([]string, error)
	PeerMultiplesFunc func(ctx context.Context, peers []string) []float64
}

func (m *MockMarket) Profile(ctx context.Context, ticker string) (*ingest.Profile, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, ticker)
	}
	return &ingest.Profile{
		Ticker:    ticker,
		Company:   "Test Corp",
		Beta:      1.1,
		Price:     50,
		MarketCap: 5000,
		Country:   "United States",
	}, nil
}

func (m *MockMarket) EVToEBITDA(ctx context.Context, ticker string) (float64, error) {
	if m.EVToEBITDAFunc != nil {
		return m.EVToEBITDAFunc(ctx, ticker)
	}
	return 9.5, nil
}

func (m *MockMarket) Peers(ctx context.Context, ticker string) ([]string, error) {
	if m.PeersFunc != nil {
		return m.PeersFunc(ctx, ticker)
	}
	return []string{"PEER1", "PEER2"}, nil
}

func (m *MockMarket) PeerMultiples(ctx context.Context, peers []string) []float64 {
	if m.PeerMultiplesFunc != nil {
		return m.PeerMultiplesFunc(ctx, peers)
	}
	return []float64{10, 12}
}

type MockRunStore struct {
	SaveFunc func(ctx context.Context, run *models.ValuationRun) error
	saved    []*models.ValuationRun
}

func (m *MockRunStore) Save(ctx context.Context, run *models.ValuationRun) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, run)
	}
	m.saved = append(m.saved, run)
	return nil
}

type MockCache struct {
	entries map[string]fundamentals.Statements
	hits    int
}

func (m *MockCache) key(ticker string, years int) string {
	return fmt.Sprintf("%s/%d", ticker, years)
}

func (m *MockCache) Get(ctx context.Context, ticker string, years int) (fundamentals.Statements, bool) {
	statements, ok := m.entries[m.key(ticker, years)]
	if ok {
		m.hits++
	}
	return statements, ok
}

func (m *MockCache) Save(ctx context.Context, ticker string, years int, statements fundamentals.Statements) error {
	if m.entries == nil {
		m.entries = make(map[string]fundamentals.Statements)
	}
	m.entries[m.key(ticker, years)] = statements
	return nil
}

// --- Fixtures ---

func cannedStatements() fundamentals.Statements {
	years := []int{2021, 2022, 2023}

	income, err := fundamentals.NewBuilder(years).
		Column(fundamentals.ColRevenue, []float64{1000, 1100, 1210}).
		Column(fundamentals.ColEBITDA, []float64{300, 330, 363}).
		Column(fundamentals.ColEBT, []float64{250, 275, 302.5}).
		Column(fundamentals.ColIncomeTax, []float64{50, 55, 60.5}).
		Column(fundamentals.ColInterestExpense, []float64{20, 21, 22}).
		Build()
	if err != nil {
		panic(err)
	}

	cash, err := fundamentals.NewBuilder(years).
		Column(fundamentals.ColDA, []float64{80, 85, 90}).
		Column(fundamentals.ColCapEx, []float64{-100, -105, -110}).
		Column(fundamentals.ColCashOperating, []float64{280, 300, 320}).
		Column(fundamentals.ColFreeCashFlow, []float64{380, 405, 430}).
		Build()
	if err != nil {
		panic(err)
	}

	balance, err := fundamentals.NewBuilder(years).
		Column(fundamentals.ColTotalEquity, []float64{800, 880, 960}).
		Column(fundamentals.ColTotalDebt, []float64{400, 420, 440}).
		Column(fundamentals.ColCashOnHand, []float64{100, 120, 140}).
		Column(fundamentals.ColTotalCurrentAssets, []float64{500, 520, 540}).
		Column(fundamentals.ColTotalCurrentLiabilities, []float64{350, 360, 370}).
		Column(fundamentals.ColNetDebt, []float64{300, 300, 300}).
		Column(fundamentals.ColNetWorkingCapital, []float64{150, 160, 170}).
		Build()
	if err != nil {
		panic(err)
	}

	return fundamentals.Statements{Income: income, Balance: balance, Cash: cash}
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Ticker = "test"
	cfg.Years = 3
	cfg.ForecastYears = 2
	cfg.Seed = 1
	cfg.Overrides.RiskFreeRate = config.AutoFloat{Value: 0.04}
	cfg.Overrides.EquityRiskPremium = config.AutoFloat{Value: 0.05}
	cfg.Export.Excel = false
	return cfg
}

func newTestOrchestrator() (*Orchestrator, *MockFundamentals, *MockGrowth, *MockMarket, *MockRunStore) {
	funds := &MockFundamentals{}
	growth := &MockGrowth{}
	market := &MockMarket{}
	store := &MockRunStore{}

	o := NewOrchestrator(funds, growth, market)
	o.SetRunStore(store)
	return o, funds, growth, market, store
}

// --- Tests ---

func TestOrchestratorRun(t *testing.T) {
	o, _, _, _, store := newTestOrchestrator()

	run, err := o.Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if run.ID == "" {
		t.Error("expected a run id")
	}
	if run.Ticker != "TEST" {
		t.Errorf("expected ticker TEST, got %s", run.Ticker)
	}
	if math.Abs(run.TaxRate-0.2) > 1e-9 {
		t.Errorf("expected tax rate 0.2, got %v", run.TaxRate)
	}
	if math.Abs(run.CostOfEquity-0.095) > 1e-9 {
		t.Errorf("expected cost of equity 0.095, got %v", run.CostOfEquity)
	}
	if math.Abs(run.CostOfDebt-0.05) > 1e-9 {
		t.Errorf("expected cost of debt 0.05, got %v", run.CostOfDebt)
	}
	// 0.095*960/1400 + 0.05*440/1400*0.8
	if math.Abs(run.WACC-0.0777142857) > 1e-9 {
		t.Errorf("expected wacc 0.0777, got %v", run.WACC)
	}
	if math.Abs(run.TerminalGrowth-0.025) > 1e-9 {
		t.Errorf("expected terminal growth 0.025, got %v", run.TerminalGrowth)
	}
	if run.NetDebt != 300 {
		t.Errorf("expected net debt 300, got %v", run.NetDebt)
	}
	if run.SharesOutstanding != 100 {
		t.Errorf("expected 100 shares, got %v", run.SharesOutstanding)
	}
	if run.CurrentPrice != 50 {
		t.Errorf("expected current price 50, got %v", run.CurrentPrice)
	}
	if run.ProjectedPrice <= 0 {
		t.Errorf("expected a positive projected price, got %v", run.ProjectedPrice)
	}

	if run.HistoricalYears != 3 || run.ForecastYears != 2 {
		t.Errorf("expected 3+2 years, got %d+%d", run.HistoricalYears, run.ForecastYears)
	}
	if len(run.Table.Years) != 5 || run.Table.Horizon != 2 {
		t.Errorf("expected 5 years with horizon 2, got %d with %d", len(run.Table.Years), run.Table.Horizon)
	}
	if len(run.Table.Order) != len(fundamentals.DCFColumns) {
		t.Errorf("expected %d columns, got %d", len(fundamentals.DCFColumns), len(run.Table.Order))
	}
	if len(run.SkippedColumns) != 0 {
		t.Errorf("expected no skipped columns, got %v", run.SkippedColumns)
	}
	if len(run.UnleveredFCF) != 5 || len(run.PresentValue) != 5 {
		t.Errorf("expected full-length cash flow series, got %d and %d", len(run.UnleveredFCF), len(run.PresentValue))
	}
	if len(run.GrowthRates[fundamentals.ColRevenue]) != 5 {
		t.Errorf("expected a full-length revenue rate series, got %d", len(run.GrowthRates[fundamentals.ColRevenue]))
	}

	if len(store.saved) != 1 {
		t.Fatalf("expected 1 persisted run, got %d", len(store.saved))
	}
	if store.saved[0].ID != run.ID {
		t.Errorf("persisted run does not match returned run")
	}
}

func TestOrchestratorRunErrors(t *testing.T) {
	tests := []struct {
		name          string
		mutateConfig  func(*config.Config)
		setupMocks    func(*MockFundamentals, *MockGrowth, *MockMarket, *MockRunStore)
		expectedError string
	}{
		{
			name:          "missing ticker",
			mutateConfig:  func(cfg *config.Config) { cfg.Ticker = "" },
			expectedError: "ticker is required",
		},
		{
			name: "statement fetch failure",
			setupMocks: func(f *MockFundamentals, g *MockGrowth, m *MockMarket, s *MockRunStore) {
				f.StatementsFunc = func(ctx context.Context, ticker string, years int) (fundamentals.Statements, error) {
					return fundamentals.Statements{}, fmt.Errorf("macrotrends down")
				}
			},
			expectedError: "macrotrends down",
		},
		{
			name: "statement gaps",
			setupMocks: func(f *MockFundamentals, g *MockGrowth, m *MockMarket, s *MockRunStore) {
				f.StatementsFunc = func(ctx context.Context, ticker string, years int) (fundamentals.Statements, error) {
					statements := cannedStatements()
					holed, err := fundamentals.NewBuilder(statements.Income.Years()).
						Column(fundamentals.ColRevenue, []float64{1000, math.NaN(), 1210}).
						Column(fundamentals.ColEBT, []float64{250, 275, 302.5}).
						Column(fundamentals.ColIncomeTax, []float64{50, 55, 60.5}).
						Build()
					if err != nil {
						return fundamentals.Statements{}, err
					}
					statements.Income = holed
					return statements, nil
				}
			},
			expectedError: "missing values",
		},
		{
			name: "profile failure",
			setupMocks: func(f *MockFundamentals, g *MockGrowth, m *MockMarket, s *MockRunStore) {
				m.ProfileFunc = func(ctx context.Context, ticker string) (*ingest.Profile, error) {
					return nil, fmt.Errorf("profile unavailable")
				}
			},
			expectedError: "profile unavailable",
		},
		{
			name: "unknown country without overrides",
			mutateConfig: func(cfg *config.Config) {
				cfg.Overrides.RiskFreeRate = config.AutoFloat{}
				cfg.Overrides.EquityRiskPremium = config.AutoFloat{}
			},
			setupMocks: func(f *MockFundamentals, g *MockGrowth, m *MockMarket, s *MockRunStore) {
				m.ProfileFunc = func(ctx context.Context, ticker string) (*ingest.Profile, error) {
					return &ingest.Profile{Ticker: ticker, Beta: 1, Price: 50, MarketCap: 5000, Country: "Atlantis"}, nil
				}
			},
			expectedError: "no risk data for country",
		},
		{
			name: "storage failure",
			setupMocks: func(f *MockFundamentals, g *MockGrowth, m *MockMarket, s *MockRunStore) {
				s.SaveFunc = func(ctx context.Context, run *models.ValuationRun) error {
					return fmt.Errorf("db connection lost")
				}
			},
			expectedError: "failed to persist run: db connection lost",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o, funds, growth, market, store := newTestOrchestrator()
			cfg := testConfig()
			if tc.mutateConfig != nil {
				tc.mutateConfig(&cfg)
			}
			if tc.setupMocks != nil {
				tc.setupMocks(funds, growth, market, store)
			}

			_, err := o.Run(context.Background(), cfg)
			if err == nil {
				t.Fatalf("expected error containing %q, got none", tc.expectedError)
			}
			if !strings.Contains(err.Error(), tc.expectedError) {
				t.Errorf("expected error containing %q, got: %v", tc.expectedError, err)
			}
		})
	}
}

func TestOrchestratorWACCOverrideSurvivesUnknownCountry(t *testing.T) {
	o, _, _, market, _ := newTestOrchestrator()
	market.ProfileFunc = func(ctx context.Context, ticker string) (*ingest.Profile, error) {
		return &ingest.Profile{Ticker: ticker, Beta: 1, Price: 50, MarketCap: 5000, Country: "Atlantis"}, nil
	}

	cfg := testConfig()
	cfg.Overrides.RiskFreeRate = config.AutoFloat{}
	cfg.Overrides.EquityRiskPremium = config.AutoFloat{}
	cfg.Overrides.WACC = config.AutoFloat{Value: 0.09}

	run, err := o.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if run.WACC != 0.09 {
		t.Errorf("expected overridden wacc 0.09, got %v", run.WACC)
	}
}

func TestOrchestratorStatementCache(t *testing.T) {
	o, funds, _, _, _ := newTestOrchestrator()
	cache := &MockCache{}
	o.SetStatementCache(cache)

	cfg := testConfig()
	if _, err := o.Run(context.Background(), cfg); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if funds.calls != 1 {
		t.Fatalf("expected 1 provider call after first run, got %d", funds.calls)
	}
	if cache.hits != 0 {
		t.Fatalf("expected no cache hits on first run, got %d", cache.hits)
	}

	if _, err := o.Run(context.Background(), cfg); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if funds.calls != 1 {
		t.Errorf("expected the second run to be served from cache, provider called %d times", funds.calls)
	}
	if cache.hits != 1 {
		t.Errorf("expected 1 cache hit, got %d", cache.hits)
	}
}

func TestOrchestratorTerminalGrowthFallsBackToCAGR(t *testing.T) {
	o, _, growth, _, _ := newTestOrchestrator()
	growth.LongRunGrowthFunc = func(ctx context.Context, ticker string) (float64, error) {
		return 0, fmt.Errorf("finviz unreachable")
	}

	run, err := o.Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// Revenue grew 1000 -> 1210 over two year steps, a 10% CAGR.
	if math.Abs(run.TerminalGrowth-0.10) > 1e-9 {
		t.Errorf("expected terminal growth 0.10 from revenue CAGR, got %v", run.TerminalGrowth)
	}
}

func TestOrchestratorExitMultipleFromPeers(t *testing.T) {
	o, _, _, market, _ := newTestOrchestrator()

	var sawPeers []string
	market.PeerMultiplesFunc = func(ctx context.Context, peers []string) []float64 {
		sawPeers = peers
		return []float64{10, 12}
	}

	cfg := testConfig()
	cfg.Method = "exit_multiple"
	cfg.Peers = []string{"AAA", "BBB"}

	run, err := o.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(sawPeers) != 2 || sawPeers[0] != "AAA" {
		t.Errorf("expected configured peers to be used, got %v", sawPeers)
	}
	if math.Abs(run.ExitMultiple-11) > 1e-9 {
		t.Errorf("expected exit multiple 11, got %v", run.ExitMultiple)
	}
}

func TestOrchestratorExitMultipleFallsBackToOwnMultiple(t *testing.T) {
	o, _, _, market, _ := newTestOrchestrator()
	market.PeerMultiplesFunc = func(ctx context.Context, peers []string) []float64 {
		return nil
	}

	cfg := testConfig()
	cfg.Method = "exit_multiple"

	run, err := o.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if math.Abs(run.ExitMultiple-9.5) > 1e-9 {
		t.Errorf("expected the company's own multiple 9.5, got %v", run.ExitMultiple)
	}
}
