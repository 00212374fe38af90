package stock

import (
	"errors"
	"fmt"
	"sort"

	"optika/internal"
)

// ErrStockInconsistent reports a deduction that fell short of a
// quantity the matcher had already confirmed. It marks a bookkeeping
// defect (stale snapshot, concurrent mutation), not a business
// outcome, and must not be downgraded to the custom-order path.
var ErrStockInconsistent = errors.New("stock deduction fell short of confirmed quantity")

// Deduct consumes qty units of the degree key from the product's
// received lots, oldest stock-in first. Matching rows are reduced in
// place; a fully consumed row is dropped from its lot. The returned
// slice holds only the lots whose row sets actually changed, so
// unchanged lots are never rewritten.
func Deduct(productID string, lots []*internal.PurchaseListOrder, degree string, qty int) ([]*internal.PurchaseListOrder, error) {
	received := make([]*internal.PurchaseListOrder, 0, len(lots))
	for _, lot := range lots {
		if lot.StockInAt != nil {
			received = append(received, lot)
		}
	}
	sort.SliceStable(received, func(i, j int) bool {
		return *received[i].StockInAt < *received[j].StockInAt
	})

	remain := qty
	changed := make([]*internal.PurchaseListOrder, 0, 2)
	for _, lot := range received {
		if remain == 0 {
			break
		}
		rows := make([]internal.LensPurchaseRow, 0, len(lot.Rows))
		lotChanged := false
		for _, row := range lot.Rows {
			if remain > 0 && row.Quantity > 0 && RowKey(row.Degree) == degree {
				take := row.Quantity
				if take > remain {
					take = remain
				}
				remain -= take
				row.Quantity -= take
				lotChanged = true
				if row.Quantity == 0 {
					continue
				}
			}
			rows = append(rows, row)
		}
		if lotChanged {
			lot.Rows = rows
			changed = append(changed, lot)
		}
	}

	if remain > 0 {
		return changed, fmt.Errorf("%w: product=%s degree=%s short=%d", ErrStockInconsistent, productID, degree, remain)
	}
	return changed, nil
}
