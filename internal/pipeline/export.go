package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"quotescribe/internal"
)

// ExportQuoteToXLSX writes a quote breakdown to an XLSX workbook, one line
// per row plus totals.
func ExportQuoteToXLSX(rows []internal.QuoteExportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"line_no", "product", "quantity", "confidence",
		"unit_price", "subtotal", "gst_rate", "gst_amount", "unpriced",
		"customer_name", "email_address",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	totalPrice, totalGST := 0.0, 0.0
	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.LineNo)
		set(2, row.Product)
		set(3, row.Quantity)
		set(4, row.Confidence)
		set(5, row.UnitPrice)
		set(6, row.Subtotal)
		set(7, row.GSTRate)
		set(8, row.GSTAmount)
		set(9, row.Unpriced)
		set(10, row.CustomerName)
		set(11, row.EmailAddress)

		totalPrice += row.Subtotal
		totalGST += row.GSTAmount
	}

	totalRow := len(rows) + 2
	setTotal := func(col int, value any) {
		cell, _ := excelize.CoordinatesToCellName(col, totalRow)
		_ = f.SetCellValue(sheet, cell, value)
	}
	setTotal(2, "TOTAL")
	setTotal(6, totalPrice)
	setTotal(8, totalGST)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
