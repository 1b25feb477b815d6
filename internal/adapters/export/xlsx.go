package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/forecast"
)

// SheetName is the worksheet the forecast is written to.
const SheetName = "Forecast"

const moneyFormat = "#,##0.00;[Red]-#,##0.00"

// WriteXLSX writes the report as a single-sheet workbook. Amounts are
// numeric cells so the sheet can be re-footed in Excel.
func WriteXLSX(w io.Writer, report *forecast.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(moneyFormat)})
	if err != nil {
		return fmt.Errorf("amount style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true},
		CustomNumFmt: strPtr(moneyFormat),
	})
	if err != nil {
		return fmt.Errorf("total style: %w", err)
	}

	header := HeaderRow()
	for col, title := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(SheetName, cell, title); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return err
	}

	row := 2
	for i := range report.Lines {
		if err := writeLine(f, row, &report.Lines[i], amountStyle); err != nil {
			return err
		}
		row++
	}
	if err := writeLine(f, row, &report.Totals, totalStyle); err != nil {
		return err
	}

	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetColWidth(SheetName, "A", "A", 32); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "B", lastCol, 18); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeLine(f *excelize.File, row int, l *forecast.Line, style int) error {
	first, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetCellValue(SheetName, first, l.Label); err != nil {
		return err
	}
	values := l.Values()
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+2, row)
		if err := f.SetCellValue(SheetName, cell, v.InexactFloat64()); err != nil {
			return err
		}
	}
	start, _ := excelize.CoordinatesToCellName(2, row)
	end, _ := excelize.CoordinatesToCellName(len(values)+1, row)
	return f.SetCellStyle(SheetName, start, end, style)
}

func strPtr(s string) *string { return &s }
