// Package export renders forecast reports as CSV and XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/forecast"
)

// HeaderRow returns the export header: the cost-code column followed by
// the forecast columns.
func HeaderRow() []string {
	return append([]string{forecast.CostCodeHeader}, forecast.Headers...)
}

func valueRow(l *forecast.Line) []string {
	values := l.Values()
	row := make([]string, 0, len(values)+1)
	row = append(row, l.Label)
	for _, v := range values {
		row = append(row, v.StringFixed(2))
	}
	return row
}

// WriteCSV writes one row per cost code and a closing totals row.
func WriteCSV(w io.Writer, report *forecast.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(HeaderRow()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range report.Lines {
		if err := cw.Write(valueRow(&report.Lines[i])); err != nil {
			return fmt.Errorf("write csv row %s: %w", report.Lines[i].CostCode, err)
		}
	}
	if err := cw.Write(valueRow(&report.Totals)); err != nil {
		return fmt.Errorf("write csv totals: %w", err)
	}
	cw.Flush()
	return cw.Error()
}
