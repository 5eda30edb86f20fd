// Package valuation turns a fully forecast DCF table into a share price:
// cost of capital, discounting of unlevered free cash flow and the terminal
// value treatments.
package valuation

import "fmt"

// WACCInput holds the capital structure figures for the latest historical
// year. Rates are decimals; equity, debt and interest are absolute amounts.
type WACCInput struct {
	RiskFreeRate      float64
	Beta              float64
	EquityRiskPremium float64
	InterestExpense   float64
	TotalDebt         float64
	TotalEquity       float64
	TaxRate           float64
}

// WACCResult holds the calculated rates.
type WACCResult struct {
	CostOfEquity float64
	CostOfDebt   float64 // Pre-tax
	WeightDebt   float64
	WeightEquity float64
	WACC         float64
}

// CostOfEquityCAPM computes the cost of equity using CAPM.
// Ke = Rf + Beta * ERP
func CostOfEquityCAPM(riskFreeRate, beta, equityRiskPremium float64) float64 {
	return riskFreeRate + beta*equityRiskPremium
}

// CostOfDebt approximates the pre-tax cost of debt from the latest interest
// expense and debt load.
// Kd = InterestExpense / TotalDebt
func CostOfDebt(interestExpense, totalDebt float64) (float64, error) {
	if totalDebt == 0 {
		return 0, fmt.Errorf("cost of debt: total debt is zero")
	}
	return interestExpense / totalDebt, nil
}

// CalculateWACC computes the Weighted Average Cost of Capital from the
// observed capital structure.
func CalculateWACC(input WACCInput) (WACCResult, error) {
	total := input.TotalEquity + input.TotalDebt
	if total == 0 {
		return WACCResult{}, fmt.Errorf("wacc: equity and debt are both zero")
	}

	// 1. Cost of Equity (CAPM)
	ke := CostOfEquityCAPM(input.RiskFreeRate, input.Beta, input.EquityRiskPremium)

	// 2. Cost of Debt (pre-tax, the tax shield is applied in the weighting)
	kd := 0.0
	if input.TotalDebt != 0 {
		var err error
		kd, err = CostOfDebt(input.InterestExpense, input.TotalDebt)
		if err != nil {
			return WACCResult{}, err
		}
	}

	// 3. Weights from the observed structure
	we := input.TotalEquity / total
	wd := input.TotalDebt / total

	// 4. WACC = Ke*We + Kd*Wd*(1-t)
	wacc := ke*we + kd*wd*(1-input.TaxRate)

	return WACCResult{
		CostOfEquity: ke,
		CostOfDebt:   kd,
		WeightDebt:   wd,
		WeightEquity: we,
		WACC:         wacc,
	}, nil
}
