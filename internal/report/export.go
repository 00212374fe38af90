package report

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"optika/internal"
)

// ExportSalesToXLSX writes outbound and custom fulfillment rows joined
// with their orders into a flat worksheet.
func ExportSalesToXLSX(rows []internal.SalesExportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"order_no", "order_date", "customer", "kind",
		"product_id", "product_name", "spec", "quantity", "sales_price", "created_at",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.OrderNo)
		set(2, row.OrderDate)
		set(3, row.CustomerName)
		set(4, row.Kind)
		set(5, row.ProductID)
		set(6, row.ProductName)
		set(7, row.Spec)
		set(8, row.Quantity)
		set(9, row.SalesPrice)
		set(10, row.CreatedAt)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
