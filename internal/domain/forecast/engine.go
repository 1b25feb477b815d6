// Package forecast computes the per-cost-code budget forecast (sheet
// columns A through N) from a project snapshot.
//
// Every intermediate value is rounded to cents before it feeds the next
// formula, so the report reconciles exactly against a spreadsheet that
// rounds per cell.
package forecast

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/allocator"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/money"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
)

// DefaultRevenueMarkup is the markup applied to the cost budget to derive
// the revenue budget (J).
var DefaultRevenueMarkup = decimal.RequireFromString("0.15")

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	RevenueMarkup *decimal.Decimal // nil means DefaultRevenueMarkup
	Allocation    allocator.Strategy
	ChangeOrders  ChangeOrderSource

	// ForecastFromBudget computes I as A + F instead of C + G + H, for
	// projects that forecast cost from the budget plus pending changes.
	ForecastFromBudget bool
}

// Engine computes forecasts. It holds no per-project state and is safe
// for concurrent use.
type Engine struct {
	markup       decimal.Decimal
	allocation   allocator.Strategy
	changeOrders ChangeOrderSource
	fromBudget   bool
}

// NewEngine returns an engine with opts applied over the defaults.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		markup:       DefaultRevenueMarkup,
		allocation:   opts.Allocation,
		changeOrders: opts.ChangeOrders,
		fromBudget:   opts.ForecastFromBudget,
	}
	if opts.RevenueMarkup != nil {
		e.markup = *opts.RevenueMarkup
	}
	if e.allocation == nil {
		e.allocation = allocator.ProportionalByBudgetShare{}
	}
	if e.changeOrders == nil {
		e.changeOrders = NoChangeOrders{}
	}
	return e
}

// RevenueMarkup returns the markup used for J.
func (e *Engine) RevenueMarkup() decimal.Decimal {
	return e.markup
}

// projectIndex is the snapshot folded into per-cost-code inputs.
type projectIndex struct {
	projectID    string
	codes        []string
	budgets      map[string]decimal.Decimal
	descriptions map[string]string
	direct       map[string]decimal.Decimal
	received     map[string]decimal.Decimal
	allocCommit  map[string]decimal.Decimal
	allocInvoice map[string]decimal.Decimal
}

func (e *Engine) index(snap *Snapshot) (*projectIndex, error) {
	idx := &projectIndex{
		projectID:    snap.ProjectID,
		budgets:      make(map[string]decimal.Decimal),
		descriptions: make(map[string]string),
		direct:       make(map[string]decimal.Decimal),
		received:     make(map[string]decimal.Decimal),
	}
	seen := make(map[string]bool)
	addCode := func(code string) {
		if code != "" && !seen[code] {
			seen[code] = true
			idx.codes = append(idx.codes, code)
		}
	}

	for _, est := range snap.Estimates {
		if !inProject(snap.ProjectID, est.ProjectID) || est.CostCode == "" {
			continue
		}
		addCode(est.CostCode)
		idx.budgets[est.CostCode] = money.Add(idx.budgets[est.CostCode], est.AwardedValue)
		if idx.descriptions[est.CostCode] == "" && est.Description != "" {
			idx.descriptions[est.CostCode] = est.Description
		}
	}

	materialCodes := make(map[string]string, len(snap.Materials))
	for _, m := range snap.Materials {
		materialCodes[m.ID] = m.CostCode
	}
	attribute := func(line *procurement.PurchaseOrderLine) string {
		if line.CostCode != "" {
			return line.CostCode
		}
		return materialCodes[line.MaterialID]
	}

	pos := make(map[string]*procurement.PurchaseOrder, len(snap.PurchaseOrders))
	unattributed := decimal.Zero
	for i := range snap.PurchaseOrders {
		po := &snap.PurchaseOrders[i]
		if !inProject(snap.ProjectID, po.ProjectID) {
			continue
		}
		pos[po.ID] = po
		for j := range po.Lines {
			addCode(attribute(&po.Lines[j]))
		}
		if !po.Status.IsCommitted() {
			continue
		}
		if len(po.Lines) == 0 {
			unattributed = money.Add(unattributed, po.TotalAmount)
			continue
		}
		for j := range po.Lines {
			line := &po.Lines[j]
			code := attribute(line)
			if code == "" {
				unattributed = money.Add(unattributed, line.LineTotal)
				continue
			}
			idx.direct[code] = money.Add(idx.direct[code], line.LineTotal)
		}
	}

	for _, d := range snap.Deliveries {
		if d.Status != procurement.DeliveryStatusComplete {
			continue
		}
		po, ok := pos[d.PurchaseOrderID]
		if !ok {
			continue
		}
		for _, dl := range d.Lines {
			line, ok := po.Line(dl.PurchaseOrderLineID)
			if !ok {
				continue
			}
			code := attribute(line)
			if code == "" {
				continue
			}
			value := money.Mul(dl.QuantityReceived, line.UnitPrice)
			idx.received[code] = money.Add(idx.received[code], value)
		}
	}

	invoiced := decimal.Zero
	for _, inv := range snap.Invoices {
		if !inProject(snap.ProjectID, inv.ProjectID) {
			continue
		}
		if inv.Status == procurement.InvoiceStatusApproved || inv.Status == procurement.InvoiceStatusPaid {
			invoiced = money.Add(invoiced, inv.TotalAmount)
		}
	}

	sort.Strings(idx.codes)
	shares := make([]allocator.Share, 0, len(idx.codes))
	for _, code := range idx.codes {
		shares = append(shares, allocator.Share{Key: code, Weight: idx.budgets[code]})
	}

	var err error
	if idx.allocCommit, err = e.allocation.Distribute(unattributed, shares); err != nil {
		return nil, fmt.Errorf("allocate unattributed commitments: %w", err)
	}
	if idx.allocInvoice, err = e.allocation.Distribute(invoiced, shares); err != nil {
		return nil, fmt.Errorf("allocate invoice spend: %w", err)
	}
	return idx, nil
}

// inProject treats an empty record project as belonging to the snapshot.
func inProject(want, got string) bool {
	return got == "" || want == "" || got == want
}

func (idx *projectIndex) label(code string) string {
	if desc := idx.descriptions[code]; desc != "" {
		return code + " - " + desc
	}
	return code
}

// ComputeLine computes the forecast for a single cost code. A cost code
// absent from the snapshot yields a zero-budget line.
func (e *Engine) ComputeLine(snap *Snapshot, costCode string, includePending bool) (Line, error) {
	idx, err := e.index(snap)
	if err != nil {
		return Line{}, err
	}
	return e.computeLine(idx, costCode, includePending), nil
}

func (e *Engine) computeLine(idx *projectIndex, code string, includePending bool) Line {
	co := e.changeOrders.ChangeOrders(idx.projectID, code)

	l := Line{
		CostCode:           code,
		Label:              idx.label(code),
		Committed:          money.Add(idx.direct[code], idx.allocCommit[code]),
		ReceivedDeliveries: money.Q(idx.received[code]),
		InvoiceSpent:       money.Q(idx.allocInvoice[code]),
		AdvancedSCOs:       money.Q(co.AdvancedSCOs),
	}

	l.CurrentCostBudget = money.Q(idx.budgets[code])
	l.SpentCommittedTotal = money.Sum(l.Committed, l.ReceivedDeliveries, l.InvoiceSpent)
	l.SpentCommittedLessSCOs = money.Sub(l.SpentCommittedTotal, l.AdvancedSCOs)
	l.CurrentPeriodCost = money.Add(l.ReceivedDeliveries, l.InvoiceSpent)

	l.UnpostedInternalPCICost = decimal.Zero
	l.UnpostedExternalPCICost = decimal.Zero
	l.UnpostedPCIRevenue = decimal.Zero
	if includePending {
		l.UnpostedInternalPCICost = money.Q(co.InternalPCICost)
		l.UnpostedExternalPCICost = money.Q(co.ExternalPCICost)
		l.UnpostedPCIRevenue = money.Q(co.PCIRevenue)
	}
	l.UnpostedPCICostAdjusted = money.Add(l.UnpostedInternalPCICost, l.UnpostedExternalPCICost)

	l.CostToComplete = costToComplete(l.CurrentCostBudget, l.SpentCommittedLessSCOs, l.SpentCommittedTotal)
	l.CostToCompleteUnposted = money.NonNegative(money.Sub(l.UnpostedPCICostAdjusted, l.AdvancedSCOs))
	l.CostForecast = costForecast(&l, e.fromBudget)

	l.CurrentRevenueBudget = money.Mul(l.CurrentCostBudget, decimal.NewFromInt(1).Add(e.markup))
	l.UnpostedPCIRevenueAdjusted = l.UnpostedPCIRevenue
	l.RevenueForecast = money.Add(l.CurrentRevenueBudget, l.UnpostedPCIRevenueAdjusted)
	l.ProjectedGainLoss = money.Sub(l.RevenueForecast, l.CostForecast)
	return l
}

// costForecast is C + G + H, or A + F when forecasting from the budget.
func costForecast(l *Line, fromBudget bool) decimal.Decimal {
	if fromBudget {
		return money.Add(l.CurrentCostBudget, l.UnpostedPCICostAdjusted)
	}
	return money.Sum(l.SpentCommittedTotal, l.CostToComplete, l.CostToCompleteUnposted)
}

// costToComplete is max(A - C, 0), forced to zero when A < B.
func costToComplete(budget, lessSCOs, total decimal.Decimal) decimal.Decimal {
	if budget.LessThan(lessSCOs) {
		return decimal.Zero
	}
	return money.NonNegative(money.Sub(budget, total))
}

// GenerateReport computes every cost code in the snapshot, sorted
// ascending, plus a totals row.
func (e *Engine) GenerateReport(snap *Snapshot, includePending bool) (*Report, error) {
	idx, err := e.index(snap)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ProjectID:      snap.ProjectID,
		IncludePending: includePending,
		RevenueMarkup:  e.markup,
		FromBudget:     e.fromBudget,
		Lines:          make([]Line, 0, len(idx.codes)),
	}
	for _, code := range idx.codes {
		report.Lines = append(report.Lines, e.computeLine(idx, code, includePending))
	}
	report.Totals = totals(report.Lines)
	return report, nil
}

func totals(lines []Line) Line {
	t := Line{CostCode: TotalsLabel, Label: TotalsLabel}
	sum := func(field func(*Line) decimal.Decimal) decimal.Decimal {
		acc := decimal.Zero
		for i := range lines {
			acc = money.Add(acc, field(&lines[i]))
		}
		return acc
	}
	t.Committed = sum(func(l *Line) decimal.Decimal { return l.Committed })
	t.ReceivedDeliveries = sum(func(l *Line) decimal.Decimal { return l.ReceivedDeliveries })
	t.InvoiceSpent = sum(func(l *Line) decimal.Decimal { return l.InvoiceSpent })
	t.AdvancedSCOs = sum(func(l *Line) decimal.Decimal { return l.AdvancedSCOs })
	t.CurrentCostBudget = sum(func(l *Line) decimal.Decimal { return l.CurrentCostBudget })
	t.SpentCommittedLessSCOs = sum(func(l *Line) decimal.Decimal { return l.SpentCommittedLessSCOs })
	t.SpentCommittedTotal = sum(func(l *Line) decimal.Decimal { return l.SpentCommittedTotal })
	t.CurrentPeriodCost = sum(func(l *Line) decimal.Decimal { return l.CurrentPeriodCost })
	t.UnpostedInternalPCICost = sum(func(l *Line) decimal.Decimal { return l.UnpostedInternalPCICost })
	t.UnpostedExternalPCICost = sum(func(l *Line) decimal.Decimal { return l.UnpostedExternalPCICost })
	t.UnpostedPCICostAdjusted = sum(func(l *Line) decimal.Decimal { return l.UnpostedPCICostAdjusted })
	t.CostToComplete = sum(func(l *Line) decimal.Decimal { return l.CostToComplete })
	t.CostToCompleteUnposted = sum(func(l *Line) decimal.Decimal { return l.CostToCompleteUnposted })
	t.CostForecast = sum(func(l *Line) decimal.Decimal { return l.CostForecast })
	t.CurrentRevenueBudget = sum(func(l *Line) decimal.Decimal { return l.CurrentRevenueBudget })
	t.UnpostedPCIRevenue = sum(func(l *Line) decimal.Decimal { return l.UnpostedPCIRevenue })
	t.UnpostedPCIRevenueAdjusted = sum(func(l *Line) decimal.Decimal { return l.UnpostedPCIRevenueAdjusted })
	t.RevenueForecast = sum(func(l *Line) decimal.Decimal { return l.RevenueForecast })
	t.ProjectedGainLoss = sum(func(l *Line) decimal.Decimal { return l.ProjectedGainLoss })
	return t
}
