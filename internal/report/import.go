package report

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"optika/internal"
)

var reDecimal = regexp.MustCompile(`^[+-]?\d+(?:[.,]\d+)?$`)

// ImportLotRowsFromXLSX reads a purchase lot's degree rows from a
// worksheet of (degree, quantity, unit price) columns. Column order is
// inferred from a header row when one exists; rows with no degree or a
// non-positive quantity are skipped.
func ImportLotRowsFromXLSX(path string) ([]internal.LensPurchaseRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := []internal.LensPurchaseRow{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if len(rows) == 0 {
			continue
		}

		degreeIdx, qtyIdx, priceIdx := -1, -1, -1
		for i, row := range rows {
			cells := normalizeCells(row)
			if len(cells) == 0 {
				continue
			}
			if i < 3 && degreeIdx < 0 {
				degreeIdx, qtyIdx, priceIdx = inferLotColumns(cells)
				if degreeIdx >= 0 || qtyIdx >= 0 {
					continue
				}
			}
			if degreeIdx < 0 {
				degreeIdx, qtyIdx, priceIdx = 0, 1, 2
			}

			degree := pickCell(cells, degreeIdx, 0)
			qty := parseInt(pickCell(cells, qtyIdx, 1))
			if strings.TrimSpace(degree) == "" || qty <= 0 {
				continue
			}

			out = append(out, internal.LensPurchaseRow{
				Degree:    strings.TrimSpace(degree),
				Quantity:  qty,
				UnitPrice: parseFloat(pickCell(cells, priceIdx, 2)),
			})
		}
	}

	return out, nil
}

func inferLotColumns(headers []string) (degreeIdx, qtyIdx, priceIdx int) {
	norm := make([]string, 0, len(headers))
	for _, h := range headers {
		norm = append(norm, strings.ToLower(h))
	}
	degreeIdx = findHeaderIndex(norm, []string{"度数", "规格", "degree", "spec"})
	qtyIdx = findHeaderIndex(norm, []string{"数量", "qty", "quantity"})
	priceIdx = findHeaderIndex(norm, []string{"单价", "price"})
	return
}

func findHeaderIndex(headers []string, probes []string) int {
	for i, h := range headers {
		for _, probe := range probes {
			if strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx int, fallback int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	if fallback >= 0 && fallback < len(cells) {
		return strings.TrimSpace(cells[fallback])
	}
	return ""
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, strings.TrimSpace(c))
	}
	return out
}

func parseInt(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}

func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if !reDecimal.MatchString(s) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return v
}
