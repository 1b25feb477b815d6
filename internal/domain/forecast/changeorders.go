package forecast

import "github.com/shopspring/decimal"

// ChangeOrderAmounts are the change-order inputs for one cost code.
type ChangeOrderAmounts struct {
	AdvancedSCOs    decimal.Decimal // subcontract change orders issued ahead of the owner change
	InternalPCICost decimal.Decimal // D
	ExternalPCICost decimal.Decimal // E
	PCIRevenue      decimal.Decimal // K
}

// ChangeOrderSource supplies change-order amounts per cost code.
// Change orders are not tracked yet; NoChangeOrders keeps every amount at
// zero until they are.
type ChangeOrderSource interface {
	ChangeOrders(projectID, costCode string) ChangeOrderAmounts
}

// NoChangeOrders reports zero for every change-order bucket.
type NoChangeOrders struct{}

// ChangeOrders implements ChangeOrderSource.
func (NoChangeOrders) ChangeOrders(string, string) ChangeOrderAmounts {
	return ChangeOrderAmounts{
		AdvancedSCOs:    decimal.Zero,
		InternalPCICost: decimal.Zero,
		ExternalPCICost: decimal.Zero,
		PCIRevenue:      decimal.Zero,
	}
}
