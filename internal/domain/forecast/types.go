package forecast

import (
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
)

// Snapshot is a coherent read of everything the forecast needs for one
// project. The caller assembles it once; the engine never re-queries.
type Snapshot struct {
	ProjectID      string
	Estimates      []procurement.ContractEstimate
	PurchaseOrders []procurement.PurchaseOrder
	Deliveries     []procurement.Delivery
	Invoices       []procurement.Invoice
	Materials      []procurement.Material
}

// Line is the forecast for one cost code. Letters follow the forecast
// sheet columns (see Headers).
type Line struct {
	CostCode string `json:"cost_code"`
	Label    string `json:"label"`

	// Inputs to C, kept for drill-down
	Committed          decimal.Decimal `json:"committed"`
	ReceivedDeliveries decimal.Decimal `json:"received_deliveries"`
	InvoiceSpent       decimal.Decimal `json:"invoice_spent"`
	AdvancedSCOs       decimal.Decimal `json:"advanced_scos"`

	CurrentCostBudget          decimal.Decimal `json:"a_current_cost_budget"`
	SpentCommittedLessSCOs     decimal.Decimal `json:"b_spent_committed_less_scos"`
	SpentCommittedTotal        decimal.Decimal `json:"c_spent_committed_total"`
	CurrentPeriodCost          decimal.Decimal `json:"current_period_cost"`
	UnpostedInternalPCICost    decimal.Decimal `json:"d_unposted_internal_pci_cost"`
	UnpostedExternalPCICost    decimal.Decimal `json:"e_unposted_external_pci_cost"`
	UnpostedPCICostAdjusted    decimal.Decimal `json:"f_unposted_pci_cost_adjusted"`
	CostToComplete             decimal.Decimal `json:"g_cost_to_complete"`
	CostToCompleteUnposted     decimal.Decimal `json:"h_cost_to_complete_unposted"`
	CostForecast               decimal.Decimal `json:"i_cost_forecast"`
	CurrentRevenueBudget       decimal.Decimal `json:"j_current_revenue_budget"`
	UnpostedPCIRevenue         decimal.Decimal `json:"k_unposted_pci_revenue"`
	UnpostedPCIRevenueAdjusted decimal.Decimal `json:"l_unposted_pci_revenue_adjusted"`
	RevenueForecast            decimal.Decimal `json:"m_revenue_forecast"`
	ProjectedGainLoss          decimal.Decimal `json:"n_projected_gain_loss"`
}

// Values returns the 15 sheet columns in Headers order.
func (l *Line) Values() []decimal.Decimal {
	return []decimal.Decimal{
		l.CurrentCostBudget,
		l.SpentCommittedLessSCOs,
		l.SpentCommittedTotal,
		l.CurrentPeriodCost,
		l.UnpostedInternalPCICost,
		l.UnpostedExternalPCICost,
		l.UnpostedPCICostAdjusted,
		l.CostToComplete,
		l.CostToCompleteUnposted,
		l.CostForecast,
		l.CurrentRevenueBudget,
		l.UnpostedPCIRevenue,
		l.UnpostedPCIRevenueAdjusted,
		l.RevenueForecast,
		l.ProjectedGainLoss,
	}
}

// Report is the forecast for a whole project.
type Report struct {
	ProjectID      string          `json:"project_id"`
	IncludePending bool            `json:"include_pending"`
	RevenueMarkup  decimal.Decimal `json:"revenue_markup"`
	FromBudget     bool            `json:"forecast_from_budget"` // I = A + F
	Lines          []Line          `json:"lines"`
	Totals         Line            `json:"totals"`
}
