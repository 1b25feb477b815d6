package forecast

// Headers are the forecast sheet column titles, in column order. The text
// mirrors the ERP layout the numbers are reconciled against, line breaks
// included.
var Headers = []string{
	"A. Current Cost Budget\n(Original Budget + Posted PCIs Thru Current Period)",
	"B. Spent/Committed (Less Advance SCOs)\n(C - SCOs Issued On Unposted PCI/OCO)",
	"C. Spent/Committed Total\n(Committed $ + $ Spent Outside Commitment)",
	"Current Period Cost",
	"D. Unposted Internal PCI Cost Budget",
	"E. Unposted External PCI Cost Budget",
	"F. Unposted Int & Ext PCI Cost Budget Adjusted\n(D+E if not overridden)",
	"G. Cost to Complete\n(A - C) unless A less than B, then (CTC = 0)",
	"H. Cost To Complete Unposted PCIs\n(F - Advanced SCOs)",
	"I. Cost Forecast\n(C + G + H)  or  (A + F if G not overridden)",
	"J. Current Revenue Budget\n(Original Budget + Posted PCIs Thru Current Period)",
	"K. Unposted PCI Revenue Budget",
	"L. Unposted PCI Revenue Budget Adjusted\n(K if not overridden)",
	"M. Revenue Forecast\n(J + L)",
	"N. Projected Gain/Loss\n(M - I)",
}

// CostCodeHeader titles the leading cost-code column in exports.
const CostCodeHeader = "Cost Code"

// TotalsLabel labels the totals row.
const TotalsLabel = "Total"
