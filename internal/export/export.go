// Package export renders expense records as CSV or XLSX attachments.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"expensebot/internal/core"

	"github.com/xuri/excelize/v2"
)

// Format is the attachment type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Header is the column order shared with the spreadsheet layout.
var Header = []string{"Timestamp", "Username", "Amount", "Category", "Description"}

// SheetName is the worksheet name used inside XLSX exports.
const SheetName = "Expenses"

// ParseFormat accepts csv and xlsx (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// FileName returns expenses-<period>-<unix millis>.<ext>.
func FileName(p core.Period, f Format, now time.Time) string {
	return fmt.Sprintf("expenses-%s-%d.%s", p, now.UnixMilli(), f)
}

// Render serializes records in the requested format.
func Render(f Format, records []core.ExpenseRecord) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case FormatCSV:
		err = WriteCSV(&buf, records)
	case FormatXLSX:
		err = WriteXLSX(&buf, records)
	default:
		err = fmt.Errorf("unknown export format %q", f)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV writes the header and one line per record. Amounts use two decimals.
func WriteCSV(w io.Writer, records []core.ExpenseRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{r.Timestamp, r.Username, core.FormatAmount(r.Amount), r.Category, r.Description}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with a styled header, one row per record and a
// total row.
func WriteXLSX(w io.Writer, records []core.ExpenseRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder(),
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2, Border: thinBorder()})
	if err != nil {
		return fmt.Errorf("amount style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		NumFmt: 2,
		Border: thinBorder(),
	})
	if err != nil {
		return fmt.Errorf("total style: %w", err)
	}

	for col, width := range map[string]float64{"A": 20, "B": 16, "C": 12, "D": 16, "E": 40} {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}

	for i, h := range Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	var total float64
	row := 2
	for _, r := range records {
		values := []interface{}{r.Timestamp, r.Username, core.RoundCents(r.Amount), r.Category, r.Description}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("data row %d: %w", row, err)
		}
		amountCell, _ := excelize.CoordinatesToCellName(3, row)
		if err := f.SetCellStyle(SheetName, amountCell, amountCell, amountStyle); err != nil {
			return fmt.Errorf("amount style: %w", err)
		}
		total += r.Amount
		row++
	}

	summary := []interface{}{"Total", "", core.RoundCents(total), fmt.Sprintf("%d records", len(records)), ""}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(SheetName, cell, &summary); err != nil {
		return fmt.Errorf("total row: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(5, row)
	if err := f.SetCellStyle(SheetName, cell, last, totalStyle); err != nil {
		return fmt.Errorf("total style: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "D9D9D9", Style: 1},
		{Type: "top", Color: "D9D9D9", Style: 1},
		{Type: "bottom", Color: "D9D9D9", Style: 1},
		{Type: "right", Color: "D9D9D9", Style: 1},
	}
}
