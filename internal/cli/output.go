package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/eshaffer321/sitebuy-backend/internal/application/invoicing"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/forecast"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/money"
)

// shortHeaders label the sheet columns in terminal output.
var shortHeaders = []string{"A", "B", "C", "Period", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M", "N"}

// PrintForecast prints the report as an aligned table with a legend.
func PrintForecast(w io.Writer, report *forecast.Report) {
	pending := "excluded"
	if report.IncludePending {
		pending = "included"
	}
	fmt.Fprintf(w, "Contract forecast: %s (pending change orders %s, revenue markup %s)\n\n",
		report.ProjectID, pending, money.FormatPercent(report.RevenueMarkup.Shift(2)))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s\t%s\t\n", forecast.CostCodeHeader, strings.Join(shortHeaders, "\t"))
	for i := range report.Lines {
		writeRow(tw, &report.Lines[i])
	}
	writeRow(tw, &report.Totals)
	_ = tw.Flush()

	fmt.Fprintln(w)
	for i, h := range forecast.Headers {
		fmt.Fprintf(w, "  %-6s %s\n", shortHeaders[i], h)
	}
}

func writeRow(w io.Writer, l *forecast.Line) {
	cells := make([]string, 0, len(shortHeaders))
	for _, v := range l.Values() {
		cells = append(cells, money.FormatUSD(v))
	}
	fmt.Fprintf(w, "%s\t%s\t\n", l.Label, strings.Join(cells, "\t"))
}

// PrintChecks prints failed consistency checks, or a single OK line.
func PrintChecks(w io.Writer, checks []forecast.Check) {
	failed := forecast.Failed(checks)
	if len(failed) == 0 {
		fmt.Fprintf(w, "Verification: %d checks passed\n", len(checks))
		return
	}
	fmt.Fprintf(w, "Verification: %d of %d checks FAILED\n", len(failed), len(checks))
	for _, c := range failed {
		fmt.Fprintf(w, "  - %s [%s]: expected %s, got %s\n",
			c.CostCode, c.Name, money.FormatUSD(c.Expected), money.FormatUSD(c.Actual))
	}
}

// PrintSweepSummary prints the result of a match sweep.
func PrintSweepSummary(w io.Writer, result invoicing.SweepResult) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Scanned=%d Approved=%d Exceptions=%d Skipped=%d Failed=%d\n",
		result.Scanned, result.Approved, result.Exceptions, result.Skipped, result.Failed)
}
