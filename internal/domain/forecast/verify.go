package forecast

import (
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/money"
)

// CheckTolerance is the largest difference a check accepts.
var CheckTolerance = decimal.RequireFromString("0.01")

// Check is one recomputed identity on a report line.
type Check struct {
	CostCode string          `json:"cost_code"`
	Name     string          `json:"name"`
	Expected decimal.Decimal `json:"expected"`
	Actual   decimal.Decimal `json:"actual"`
	OK       bool            `json:"ok"`
}

// VerificationChecks recomputes the column identities for every line and
// the totals row. It reads only the report, so a stored or exported
// report can be re-verified later.
func VerificationChecks(r *Report) []Check {
	var checks []Check
	for i := range r.Lines {
		checks = append(checks, lineChecks(&r.Lines[i], r)...)
	}
	checks = append(checks, totalsChecks(r)...)
	return checks
}

// Failed returns the checks that did not pass.
func Failed(checks []Check) []Check {
	var out []Check
	for _, c := range checks {
		if !c.OK {
			out = append(out, c)
		}
	}
	return out
}

func equal(code, name string, expected, actual decimal.Decimal) Check {
	return Check{
		CostCode: code,
		Name:     name,
		Expected: expected,
		Actual:   actual,
		OK:       money.Within(expected, actual, CheckTolerance),
	}
}

func lineChecks(l *Line, r *Report) []Check {
	code := l.CostCode
	markup := r.RevenueMarkup
	forecastCheck := equal(code, "I = C + G + H", costForecast(l, false), l.CostForecast)
	if r.FromBudget {
		forecastCheck = equal(code, "I = A + F", costForecast(l, true), l.CostForecast)
	}
	h := l.CostToCompleteUnposted
	checks := []Check{
		equal(code, "C = committed + received + invoiced",
			money.Sum(l.Committed, l.ReceivedDeliveries, l.InvoiceSpent), l.SpentCommittedTotal),
		equal(code, "B = C - advanced SCOs", money.Sub(l.SpentCommittedTotal, l.AdvancedSCOs), l.SpentCommittedLessSCOs),
		equal(code, "F = D + E", money.Add(l.UnpostedInternalPCICost, l.UnpostedExternalPCICost), l.UnpostedPCICostAdjusted),
		equal(code, "G = max(A - C, 0), 0 when A < B",
			costToComplete(l.CurrentCostBudget, l.SpentCommittedLessSCOs, l.SpentCommittedTotal), l.CostToComplete),
		{
			CostCode: code,
			Name:     "0 <= H <= F",
			Expected: l.UnpostedPCICostAdjusted,
			Actual:   h,
			OK:       !h.IsNegative() && h.LessThanOrEqual(l.UnpostedPCICostAdjusted.Add(CheckTolerance)),
		},
		forecastCheck,
		equal(code, "J = A * (1 + markup)",
			money.Mul(l.CurrentCostBudget, decimal.NewFromInt(1).Add(markup)), l.CurrentRevenueBudget),
		equal(code, "L = K", l.UnpostedPCIRevenue, l.UnpostedPCIRevenueAdjusted),
		equal(code, "M = J + L", money.Add(l.CurrentRevenueBudget, l.UnpostedPCIRevenueAdjusted), l.RevenueForecast),
		equal(code, "N = M - I", money.Sub(l.RevenueForecast, l.CostForecast), l.ProjectedGainLoss),
	}
	if !r.IncludePending {
		checks = append(checks,
			equal(code, "D = 0 without pending", decimal.Zero, l.UnpostedInternalPCICost),
			equal(code, "E = 0 without pending", decimal.Zero, l.UnpostedExternalPCICost),
			equal(code, "F = 0 without pending", decimal.Zero, l.UnpostedPCICostAdjusted),
			equal(code, "K = 0 without pending", decimal.Zero, l.UnpostedPCIRevenue),
		)
	}
	return checks
}

func totalsChecks(r *Report) []Check {
	sum := totals(r.Lines)
	t := &r.Totals
	return []Check{
		equal(TotalsLabel, "total A = sum of A", sum.CurrentCostBudget, t.CurrentCostBudget),
		equal(TotalsLabel, "total C = sum of C", sum.SpentCommittedTotal, t.SpentCommittedTotal),
		equal(TotalsLabel, "total I = sum of I", sum.CostForecast, t.CostForecast),
		equal(TotalsLabel, "total M = sum of M", sum.RevenueForecast, t.RevenueForecast),
		equal(TotalsLabel, "total N = sum of N", sum.ProjectedGainLoss, t.ProjectedGainLoss),
	}
}
