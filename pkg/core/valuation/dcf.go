package valuation

import (
	"fmt"
	"math"
	"strings"

	"autodcf/pkg/core/fundamentals"
)

// Terminal value methods.
const (
	MethodPerpetuity   = "perpetuity"
	MethodExitMultiple = "exit_multiple"
)

// DCFInput encapsulates all inputs for a Discounted Cash Flow valuation.
type DCFInput struct {
	// Table is the fully forecast projection table.
	Table fundamentals.Table
	// WACC discounts future cash flows, as a decimal.
	WACC float64
	// TerminalGrowth is the perpetual growth rate, e.g. 0.025. Used by the
	// perpetuity method.
	TerminalGrowth float64
	// ExitMultiple is the EV/EBITDA multiple applied to the final forecast
	// year. Used by the exit multiple method.
	ExitMultiple float64
	// Method selects the terminal value treatment.
	Method string
	// NetDebt and SharesOutstanding bridge enterprise value to share price.
	NetDebt           float64
	SharesOutstanding float64
}

// DCFResult holds the valuation outputs.
type DCFResult struct {
	// UnleveredFCF and PresentValue have one entry per table period.
	// Historical periods carry their realized cash flow with a present
	// value of zero, since only forecast flows are discounted.
	UnleveredFCF         []float64
	PresentValue         []float64
	TerminalValue        float64
	PresentTerminalValue float64
	EnterpriseValue      float64
	EquityValue          float64
	SharePrice           float64
}

// CalculateDCF performs a standard 2-stage DCF: explicit forecast flows plus
// a terminal value, both discounted at the WACC.
func CalculateDCF(input DCFInput) (*DCFResult, error) {
	table := input.Table
	horizon := table.Horizon()
	if horizon <= 0 {
		return nil, fmt.Errorf("dcf: table has no forecast periods")
	}
	if input.SharesOutstanding <= 0 {
		return nil, fmt.Errorf("dcf: shares outstanding must be positive, got %v", input.SharesOutstanding)
	}
	for _, column := range []string{fundamentals.DCFNOPAT, fundamentals.DCFDA, fundamentals.DCFCapEx, fundamentals.DCFNWC} {
		gaps, err := table.HasGaps(column)
		if err != nil {
			return nil, fmt.Errorf("dcf: %w", err)
		}
		if gaps {
			return nil, fmt.Errorf("dcf: column %s has unfilled values", column)
		}
	}

	nopat, err := table.Series(fundamentals.DCFNOPAT)
	if err != nil {
		return nil, fmt.Errorf("dcf: %w", err)
	}
	da, err := table.Series(fundamentals.DCFDA)
	if err != nil {
		return nil, fmt.Errorf("dcf: %w", err)
	}
	capex, err := table.Series(fundamentals.DCFCapEx)
	if err != nil {
		return nil, fmt.Errorf("dcf: %w", err)
	}
	nwc, err := table.Series(fundamentals.DCFNWC)
	if err != nil {
		return nil, fmt.Errorf("dcf: %w", err)
	}

	// 1. Unlevered free cash flow per period
	// UFCF = NOPAT + D&A - |CapEx| - deltaNWC
	// The first period has no prior one, so its NWC delta is zero.
	n := table.Len()
	ufcf := make([]float64, n)
	for i := 0; i < n; i++ {
		deltaNWC := 0.0
		if i > 0 {
			deltaNWC = nwc[i] - nwc[i-1]
		}
		ufcf[i] = nopat[i] + da[i] - math.Abs(capex[i]) - deltaNWC
	}

	// 2. Discount the forecast flows
	// PV_i = UFCF_i / (1+WACC)^i, counting i from the first forecast year
	histLen := n - horizon
	pv := make([]float64, n)
	pvSum := 0.0
	for i := histLen; i < n; i++ {
		periodsOut := float64(i - histLen + 1)
		pv[i] = ufcf[i] / math.Pow(1+input.WACC, periodsOut)
		pvSum += pv[i]
	}

	// 3. Terminal Value
	var terminalValue float64
	switch strings.ToLower(input.Method) {
	case MethodPerpetuity:
		// TV = UFCF_last * (1+g) / (WACC - g)
		if input.WACC <= input.TerminalGrowth {
			return nil, fmt.Errorf("dcf: wacc %.4f must exceed terminal growth %.4f for the perpetuity method",
				input.WACC, input.TerminalGrowth)
		}
		terminalValue = ufcf[n-1] * (1 + input.TerminalGrowth) / (input.WACC - input.TerminalGrowth)
	case MethodExitMultiple:
		// TV = multiple * EBITDA_last, with EBITDA rebuilt as EBIT + D&A
		if input.ExitMultiple <= 0 {
			return nil, fmt.Errorf("dcf: exit multiple must be positive, got %v", input.ExitMultiple)
		}
		ebit, err := table.Series(fundamentals.DCFEBIT)
		if err != nil {
			return nil, fmt.Errorf("dcf: %w", err)
		}
		if math.IsNaN(ebit[n-1]) {
			return nil, fmt.Errorf("dcf: column %s has unfilled values", fundamentals.DCFEBIT)
		}
		terminalValue = input.ExitMultiple * (ebit[n-1] + da[n-1])
	default:
		return nil, fmt.Errorf("dcf: unknown valuation method %q", input.Method)
	}
	pvTerminal := terminalValue / math.Pow(1+input.WACC, float64(horizon))

	// 4. Aggregation
	enterpriseValue := pvSum + pvTerminal
	equityValue := enterpriseValue - input.NetDebt
	sharePrice := equityValue / input.SharesOutstanding

	return &DCFResult{
		UnleveredFCF:         ufcf,
		PresentValue:         pv,
		TerminalValue:        terminalValue,
		PresentTerminalValue: pvTerminal,
		EnterpriseValue:      enterpriseValue,
		EquityValue:          equityValue,
		SharePrice:           sharePrice,
	}, nil
}
