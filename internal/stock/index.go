package stock

import (
	"strings"

	"optika/internal"
)

// RowKey canonicalizes a purchase row's own degree text. Both the
// index build and the deduction engine key rows this way, so the
// quantity the matcher confirms is always reachable by the engine.
func RowKey(degree string) string {
	d := strings.TrimSpace(degree)
	if d == "" {
		return NoVariantKey
	}
	return d
}

// Index maps productId -> degree key -> available quantity. It is
// derived from received purchase lots and never persisted.
type Index map[string]map[string]int

// BuildIndex aggregates sellable stock across lots. Lots without a
// stock-in timestamp are not sellable and are skipped.
func BuildIndex(lots []*internal.PurchaseListOrder) Index {
	idx := Index{}
	for _, lot := range lots {
		if lot.StockInAt == nil {
			continue
		}
		entry := idx[lot.ProductID]
		if entry == nil {
			entry = map[string]int{}
			idx[lot.ProductID] = entry
		}
		for _, row := range lot.Rows {
			entry[RowKey(row.Degree)] += row.Quantity
		}
	}
	return idx
}

// EntryFromLots aggregates one product's lots into a key -> quantity
// entry, the shape Match consumes.
func EntryFromLots(lots []*internal.PurchaseListOrder) map[string]int {
	entry := map[string]int{}
	for _, lot := range lots {
		if lot.StockInAt == nil {
			continue
		}
		for _, row := range lot.Rows {
			entry[RowKey(row.Degree)] += row.Quantity
		}
	}
	return entry
}

// Available resolves a product's stock for a derived degree key.
func (idx Index) Available(productID, key string) (matched string, qty int) {
	return Match(idx[productID], key)
}
